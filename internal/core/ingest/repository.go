package ingest

import "context"

// CatalogSource は外部カタログAPIとの通信ポート
type CatalogSource interface {
	// DiscoverMovieIDs は範囲指定に合致する映画IDを列挙する
	DiscoverMovieIDs(ctx context.Context, params DiscoverParams) ([]int64, error)

	// FetchMovieDetails は映画の詳細メタデータを取得する。
	// 実装は同時リクエスト数を固定上限で制限すること。
	FetchMovieDetails(ctx context.Context, ids []int64) ([]*SourceMovie, error)
}

// Embedder はテキスト集合をまとめてベクトル化するポート
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// MovieStore はベクトルストアへの書き込みポート。
// 書き込みとスキーマ管理は取り込み時のみの責務で、推薦パイプラインはストアを変更しない。
type MovieStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertMovies(ctx context.Context, movies []*IndexedMovie) error
}
