package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Extractor は自由文からSearchConstraintsを抽出する。
// 1回の呼び出しにつき補完サービスをちょうど1回呼び、壊れた出力をリトライしない。
type Extractor struct {
	completion CompletionClient
	logger     *slog.Logger
}

// NewExtractor は新しいExtractorを作成する
func NewExtractor(completion CompletionClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		completion: completion,
		logger:     logger,
	}
}

// constraintsPayload は抽出結果のワイヤ表現
type constraintsPayload struct {
	SemanticSearch string     `json:"semantic_search"`
	Media          string     `json:"media"`
	Genre          genreField `json:"genre"`
}

// genreField は文字列と文字列配列の両方を受け付けるジャンルフィールド。
// 単一ジャンルは一要素の配列に正規化される。
type genreField []string

func (g *genreField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*g = []string{single}
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return fmt.Errorf("genre must be a string or an array of strings")
	}
	*g = multiple
	return nil
}

// Extract はユーザーの自由文を構造化検索条件へ変換する。
// 応答が構造化データとして解析できない場合はMalformedOutputErrorを返し、
// 原文を保持する（会話としての拒否応答はそのまま表示できる）。
func (e *Extractor) Extract(ctx context.Context, userText string) (SearchConstraints, error) {
	raw, err := e.completion.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: extractionSystemPrompt()},
			{Role: RoleUser, Content: userText},
		},
		Temperature: 0,
	})
	if err != nil {
		return SearchConstraints{}, fmt.Errorf("constraint extraction call failed: %w", err)
	}

	e.logger.Debug("constraint extraction response", "raw", raw)

	payload, err := decodeConstraints(raw)
	if err != nil {
		return SearchConstraints{}, &MalformedOutputError{
			Stage:   StageExtraction,
			RawText: raw,
			Err:     err,
		}
	}

	constraints, err := validateConstraints(payload)
	if err != nil {
		return SearchConstraints{}, &MalformedOutputError{
			Stage:   StageExtraction,
			RawText: raw,
			Err:     err,
		}
	}

	return constraints, nil
}

// fencedJSONPattern は散文に埋め込まれたコードフェンス付きJSONブロックを探す
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// decodeConstraints は二段階でデコードを試みる。
// まず応答全体をJSONとして解釈し、失敗したら埋め込みブロックの抽出を試み、
// それでも失敗したら型付きエラーを返す。デフォルト値への握り潰しはしない。
func decodeConstraints(raw string) (constraintsPayload, error) {
	var payload constraintsPayload

	trimmed := strings.TrimSpace(raw)
	directErr := json.Unmarshal([]byte(trimmed), &payload)
	if directErr == nil {
		return payload, nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &payload); err == nil {
			return payload, nil
		}
	}

	return constraintsPayload{}, fmt.Errorf("response is not a JSON object: %w", directErr)
}

// validateConstraints はデコード済みペイロードをスキーマ検証し、ドメイン型へ変換する
func validateConstraints(payload constraintsPayload) (SearchConstraints, error) {
	semantic := strings.TrimSpace(payload.SemanticSearch)
	if semantic == "" {
		return SearchConstraints{}, fmt.Errorf("%w: semantic_search must not be empty", ErrInvalidConstraints)
	}

	media, err := ParseMediaType(payload.Media)
	if err != nil {
		return SearchConstraints{}, err
	}

	genre := AllGenres()
	if !isAllSentinel(payload.Genre) {
		genre, err = NewGenreSelector(payload.Genre)
		if err != nil {
			return SearchConstraints{}, err
		}
	}

	return SearchConstraints{
		SemanticSearch: semantic,
		Media:          media,
		Genre:          genre,
	}, nil
}

// isAllSentinel はジャンルフィールドがALLセンチネルかどうかを判定する
func isAllSentinel(genres []string) bool {
	return len(genres) == 0 || (len(genres) == 1 && genres[0] == "ALL")
}
