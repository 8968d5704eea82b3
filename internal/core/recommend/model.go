package recommend

import (
	"fmt"

	"github.com/jinford/llmovies/internal/core/catalog"
	"github.com/samber/mo"
)

// MediaType は検索対象のメディア種別
type MediaType string

const (
	MediaMovie  MediaType = "Movie"
	MediaTVShow MediaType = "TV Show"
	MediaAll    MediaType = "ALL"
)

// ParseMediaType は抽出結果の文字列をMediaTypeへ変換する。
// 三値の列挙以外はバリデーションエラー。
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaMovie, MediaTVShow, MediaAll:
		return MediaType(s), nil
	default:
		return "", fmt.Errorf("%w: media type %q is not one of Movie, TV Show, ALL", ErrInvalidConstraints, s)
	}
}

// GenreSelector はジャンル指定を表す。値が空のときはALL（絞り込みなし）。
type GenreSelector struct {
	values []string
}

// AllGenres は絞り込みなしのセレクタを返す
func AllGenres() GenreSelector {
	return GenreSelector{}
}

// NewGenreSelector は語彙検証付きでセレクタを構築する。
// 単一ジャンルは一要素の集合として渡す（正規化は呼び出し側の責務ではない）。
func NewGenreSelector(values []string) (GenreSelector, error) {
	if len(values) == 0 {
		return GenreSelector{}, fmt.Errorf("%w: genre set must not be empty", ErrInvalidConstraints)
	}
	for _, v := range values {
		if !catalog.IsGenre(v) {
			return GenreSelector{}, fmt.Errorf("%w: genre %q is not in the vocabulary", ErrInvalidConstraints, v)
		}
	}
	out := make([]string, len(values))
	copy(out, values)
	return GenreSelector{values: out}, nil
}

// IsAll は絞り込みなしかどうかを返す
func (g GenreSelector) IsAll() bool {
	return len(g.values) == 0
}

// Values は指定されたジャンルを返す（ALLの場合はnil）
func (g GenreSelector) Values() []string {
	if len(g.values) == 0 {
		return nil
	}
	out := make([]string, len(g.values))
	copy(out, g.values)
	return out
}

// SearchConstraints は自由文から抽出した構造化検索条件。
// 抽出が成功した時点でSemanticSearchは非空、ジャンルは語彙の部分集合であることが保証される。
type SearchConstraints struct {
	SemanticSearch string        // 類似検索に使うトピック（ジャンル・メディア語を含まない）
	Media          MediaType     // Movie / TV Show / ALL
	Genre          GenreSelector // ALL または語彙の非空部分集合
}

// CandidateMovie は類似検索で取得した候補映画。
// リクエストごとにストアのレスポンスから構築され、永続化されない。
type CandidateMovie struct {
	ShowID      int64
	Title       string
	Description string
	Genres      []string
	ReleaseDate string
	Runtime     int // 分
	VoteAverage float64
	VoteCount   int64
	TrailerURL  mo.Option[string] // YouTubeの動画キーまたはURL（欠損あり）
	WatchURL    string
	Providers   []string // 配信プロバイダID（文字列表現）
	Distance    float64  // コサイン距離（小さいほど近い）。取得時に付与される
}

// RecommendParams は推薦リクエストのパラメータ
type RecommendParams struct {
	UserText    string // ユーザーの自由文
	ProviderIDs []int  // ユーザーが選択した配信サービス（非空必須）
}

// RecommendResult は推薦パイプラインの結果。
// MoviesかReplyのどちらか一方のみが設定される。
// Replyはモデルが構造化出力の代わりに会話として応答した場合の原文で、
// 呼び出し側はこれをそのまま表示する。
type RecommendResult struct {
	Movies []*CandidateMovie
	Reply  string
}

// IsReply は会話応答（推薦なし）かどうかを返す
func (r *RecommendResult) IsReply() bool {
	return r.Reply != ""
}
