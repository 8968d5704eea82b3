package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// embedBatchSize は1回のAPI呼び出しでまとめる件数（OpenAI APIは最大100件）
const embedBatchSize = 100

// Service はカタログ取り込みパイプラインを提供する。
// 探索 → 詳細取得 → 埋め込み → 書き込み。推薦リクエストとは独立したバッチ処理。
type Service struct {
	catalog  CatalogSource
	embedder Embedder
	store    MovieStore
	logger   *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService は新しいServiceを作成する
func NewService(catalog CatalogSource, embedder Embedder, store MovieStore, opts ...ServiceOption) *Service {
	svc := &Service{
		catalog:  catalog,
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store は書き込み先のMovieStoreを返す
func (s *Service) Store() MovieStore {
	return s.store
}

// Run は取り込みパイプラインを実行し、書き込んだ件数を返す
func (s *Service) Run(ctx context.Context, params DiscoverParams) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("invalid discover params: %w", err)
	}

	ids, err := s.catalog.DiscoverMovieIDs(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to discover movies: %w", err)
	}

	s.logger.Info("catalog discovery completed", "movies", len(ids))
	if len(ids) == 0 {
		return 0, nil
	}

	details, err := s.catalog.FetchMovieDetails(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch movie details: %w", err)
	}

	s.logger.Info("movie details fetched", "movies", len(details))

	indexed, err := s.embedAll(ctx, details)
	if err != nil {
		return 0, err
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure schema: %w", err)
	}

	if err := s.store.UpsertMovies(ctx, indexed); err != nil {
		return 0, fmt.Errorf("failed to upsert movies: %w", err)
	}

	s.logger.Info("catalog ingestion completed", "movies", len(indexed))

	return len(indexed), nil
}

// embedAll は全件をバッチに分割して埋め込みを生成する
func (s *Service) embedAll(ctx context.Context, movies []*SourceMovie) ([]*IndexedMovie, error) {
	indexed := make([]*IndexedMovie, 0, len(movies))

	for start := 0; start < len(movies); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(movies) {
			end = len(movies)
		}
		batch := movies[start:end]

		texts := make([]string, len(batch))
		for i, movie := range batch {
			texts[i] = movie.BuildFullDescription()
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(batch))
		}

		for i, movie := range batch {
			indexed = append(indexed, &IndexedMovie{
				SourceMovie:     *movie,
				FullDescription: texts[i],
				Embedding:       vectors[i],
			})
		}

		s.logger.Debug("embedded batch", "from", start, "to", end)
	}

	return indexed, nil
}
