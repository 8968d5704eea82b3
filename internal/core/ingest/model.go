package ingest

import "fmt"

// SourceMovie は外部カタログから取得した映画メタデータ
type SourceMovie struct {
	ShowID      int64
	Title       string
	Description string
	ReleaseDate string
	Runtime     int
	Genres      []string
	VoteAverage float64
	VoteCount   int64
	TrailerKey  string   // YouTubeの動画キー（欠損あり）
	WatchURL    string   // 視聴ページへのリンク
	Providers   []string // 配信プロバイダID（文字列表現）
}

// IndexedMovie は埋め込み済みの映画レコード
type IndexedMovie struct {
	SourceMovie
	FullDescription string
	Embedding       []float32
}

// DiscoverParams はカタログ探索の範囲指定
type DiscoverParams struct {
	YearFrom    int
	YearTo      int
	PageFrom    int
	PageTo      int
	ProviderIDs []int
}

// Validate は範囲指定の整合性を検証する
func (p DiscoverParams) Validate() error {
	if p.YearFrom > p.YearTo {
		return fmt.Errorf("year range is inverted: %d..%d", p.YearFrom, p.YearTo)
	}
	if p.PageFrom <= 0 || p.PageFrom > p.PageTo {
		return fmt.Errorf("page range is invalid: %d..%d", p.PageFrom, p.PageTo)
	}
	if len(p.ProviderIDs) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	return nil
}

// BuildFullDescription は埋め込み対象のテキスト表現を組み立てる
func (m SourceMovie) BuildFullDescription() string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nGenres: %v", m.Title, m.Description, m.Genres)
}
