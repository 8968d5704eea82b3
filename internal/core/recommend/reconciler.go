package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// defaultMaxSelections はランキングで選ばせる候補数の上限
	defaultMaxSelections = 3

	// maxDescriptionTokens はランキングペイロードに載せるあらすじのトークン上限。
	// 候補プール全体がコンテキストに収まるよう、長いあらすじはここで切り詰める。
	maxDescriptionTokens = 120
)

// Reconciler は候補プールとユーザー文を補完サービスへ渡し、
// 返ってきた自由文の選択結果を検証して候補プールを並べ替える。
type Reconciler struct {
	completion    CompletionClient
	encoding      *tiktoken.Tiktoken
	maxSelections int
	logger        *slog.Logger
}

// NewReconciler は新しいReconcilerを作成する
func NewReconciler(completion CompletionClient, maxSelections int, logger *slog.Logger) (*Reconciler, error) {
	if maxSelections <= 0 {
		maxSelections = defaultMaxSelections
	}
	if logger == nil {
		logger = slog.Default()
	}

	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &Reconciler{
		completion:    completion,
		encoding:      encoding,
		maxSelections: maxSelections,
		logger:        logger,
	}, nil
}

// rankingItem はランキング用に縮約した候補表現（id・タイトル・あらすじ・ジャンルのみ）
type rankingItem struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
}

// rankingPayload は補完サービスへ渡す入力
type rankingPayload struct {
	List       []rankingItem `json:"list"`
	UserPrompt string        `json:"user_prompt"`
}

// Reconcile は候補プールをモデルの選択結果で並べ替える。
// 返り値はモデルが選んだ部分集合のみ、モデルの指定順。選ばれなかった候補は落とす。
// プール内に存在しないid（ハルシネーション）は黙って捨てるが、
// 有効なidが一つも残らなければErrEmptySelectionを返す。
func (r *Reconciler) Reconcile(ctx context.Context, pool []*CandidateMovie, userText string) ([]*CandidateMovie, error) {
	if len(pool) == 0 {
		return nil, ErrEmptySelection
	}

	byID := make(map[int64]*CandidateMovie, len(pool))
	for _, movie := range pool {
		if _, exists := byID[movie.ShowID]; exists {
			// 取得側で重複排除済みのはずなので、ここに来たら事前条件違反
			return nil, fmt.Errorf("candidate pool contains duplicate show id %d", movie.ShowID)
		}
		byID[movie.ShowID] = movie
	}

	input, err := json.Marshal(r.buildPayload(pool, userText))
	if err != nil {
		return nil, fmt.Errorf("failed to encode ranking payload: %w", err)
	}

	raw, err := r.completion.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: rankingSystemPrompt(r.maxSelections)},
			{Role: RoleUser, Content: string(input)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking call failed: %w", err)
	}

	r.logger.Debug("ranking response", "raw", raw)

	ids, err := parseSelection(raw)
	if err != nil {
		return nil, err
	}

	selected := make([]*CandidateMovie, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		movie, ok := byID[id]
		if !ok {
			// プール外のidはモデルの部分的なハルシネーションとして黙って捨てる
			r.logger.Warn("ranking returned unknown show id", "showID", id)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, movie)
	}

	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	return selected, nil
}

// buildPayload は候補をid・タイトル・あらすじ・ジャンルへ縮約する
func (r *Reconciler) buildPayload(pool []*CandidateMovie, userText string) rankingPayload {
	items := make([]rankingItem, 0, len(pool))
	for _, movie := range pool {
		items = append(items, rankingItem{
			ID:          movie.ShowID,
			Title:       movie.Title,
			Description: r.truncateByTokens(movie.Description, maxDescriptionTokens),
			Genres:      movie.Genres,
		})
	}
	return rankingPayload{List: items, UserPrompt: userText}
}

// truncateByTokens はテキストをトークン数上限で切り詰める
func (r *Reconciler) truncateByTokens(text string, maxTokens int) string {
	tokens := r.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return r.encoding.Decode(tokens[:maxTokens])
}

// parseSelection はカンマ区切りのid列を解析する。
// 空白のみの応答はErrEmptySelection、整数に変換できないトークンは
// MalformedOutputError（原文付き）。
func parseSelection(raw string) ([]int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptySelection
	}

	var ids []int64
	for _, token := range strings.Split(trimmed, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, &MalformedOutputError{
				Stage:   StageRanking,
				RawText: raw,
				Err:     fmt.Errorf("token %q is not an integer id", token),
			}
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	return ids, nil
}
