package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/llmovies/internal/core/ingest"
	"github.com/jinford/llmovies/internal/core/recommend"
	"github.com/jinford/llmovies/internal/infra/openai"
	"github.com/jinford/llmovies/internal/infra/postgres"
	"github.com/jinford/llmovies/internal/infra/tmdb"
	"github.com/jinford/llmovies/internal/platform/config"
)

// Embedder は推薦と取り込みの両方が利用する埋め込み生成ポート
type Embedder interface {
	recommend.Embedder
	ingest.Embedder
}

// Container はアプリケーションの依存関係を保持する。
// ベクトルストアと補完サービスへのハンドルはプロセス内で一度だけ構築し、
// 各リクエストから読み取り専用で再利用する。
type Container struct {
	RecommendService *recommend.Service
	IngestService    *ingest.Service

	Logger   *slog.Logger
	Database *postgres.DB
}

type containerOptions struct {
	logger     *slog.Logger
	completion recommend.CompletionClient
	embedder   Embedder
	catalog    ingest.CatalogSource
}

// Option は Container 構築時のオプション
type Option func(*containerOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithCompletionClient は補完サービスクライアントを差し替える（テスト用）
func WithCompletionClient(client recommend.CompletionClient) Option {
	return func(opts *containerOptions) {
		opts.completion = client
	}
}

// WithEmbedder は Embedder を差し替える（テスト用）
func WithEmbedder(embedder Embedder) Option {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithCatalogSource はカタログ取得元を差し替える（テスト用）
func WithCatalogSource(source ingest.CatalogSource) Option {
	return func(opts *containerOptions) {
		opts.catalog = source
	}
}

// New は設定からコンテナを生成する。
// 必須設定（DB接続・APIキー）が欠けている場合はここで即座に失敗する。
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db, err := postgres.New(ctx, postgres.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	completion := options.completion
	if completion == nil {
		client, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("OpenAIクライアント初期化に失敗しました: %w", err)
		}
		completion = client
	}

	var embedder Embedder = options.embedder
	if embedder == nil {
		if cfg.OpenAI.APIKey == "" {
			db.Close()
			return nil, openai.ErrAPIKeyNotSet
		}
		embedder = openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)
	}

	movies := postgres.NewMovieRepository(db.Pool, cfg.OpenAI.EmbeddingDimension)

	recommendSvc, err := recommend.NewService(
		completion,
		embedder,
		movies,
		recommend.Tuning{
			MaxCandidates:      cfg.Pipeline.MaxCandidates,
			MinVoteCount:       cfg.Pipeline.MinVoteCount,
			MaxRecommendations: cfg.Pipeline.MaxRecommendations,
		},
		recommend.WithLogger(options.logger),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("推薦サービス初期化に失敗しました: %w", err)
	}

	catalog := options.catalog
	if catalog == nil {
		catalog = tmdb.NewClient(
			cfg.TMDB.AccessToken,
			tmdb.WithBaseURL(cfg.TMDB.BaseURL),
			tmdb.WithWatchRegion(cfg.TMDB.WatchRegion),
			tmdb.WithMaxConcurrency(cfg.TMDB.MaxConcurrency),
		)
	}

	ingestSvc := ingest.NewService(
		catalog,
		embedder,
		movies,
		ingest.WithLogger(options.logger),
	)

	return &Container{
		RecommendService: recommendSvc,
		IngestService:    ingestSvc,
		Logger:           options.logger,
		Database:         db,
	}, nil
}

// Close はコンテナが保持するリソースを解放する
func (c *Container) Close() {
	if c.Database != nil {
		c.Database.Close()
	}
}
