package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jinford/llmovies/internal/core/catalog"
)

const (
	defaultMaxCandidates = 10
	defaultMinVoteCount  = 500
)

// Tuning は推薦パイプラインの調整値
type Tuning struct {
	MaxCandidates      int // 類似検索で取得する候補数の上限
	MinVoteCount       int // 候補に求めるレビュー数の下限（厳密により大きい）
	MaxRecommendations int // 最終推薦の上限
}

// Service は推薦パイプラインを提供する。
// 抽出・埋め込み・検索・ランキングを順に実行する逐次パイプラインで、
// リクエスト間で共有する可変状態は持たない。
type Service struct {
	extractor  *Extractor
	reconciler *Reconciler
	embedder   Embedder
	movies     MovieSearcher
	tuning     Tuning
	logger     *slog.Logger
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
func NewService(
	completion CompletionClient,
	embedder Embedder,
	movies MovieSearcher,
	tuning Tuning,
	opts ...ServiceOption,
) (*Service, error) {
	if completion == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if movies == nil {
		return nil, fmt.Errorf("movie searcher is required")
	}

	if tuning.MaxCandidates <= 0 {
		tuning.MaxCandidates = defaultMaxCandidates
	}
	if tuning.MinVoteCount <= 0 {
		tuning.MinVoteCount = defaultMinVoteCount
	}
	if tuning.MaxRecommendations <= 0 {
		tuning.MaxRecommendations = defaultMaxSelections
	}

	svc := &Service{
		embedder: embedder,
		movies:   movies,
		tuning:   tuning,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.extractor = NewExtractor(completion, svc.logger)

	reconciler, err := NewReconciler(completion, tuning.MaxRecommendations, svc.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build reconciler: %w", err)
	}
	svc.reconciler = reconciler

	return svc, nil
}

// Recommend は自由文と選択済みプロバイダから推薦リストを生成する。
// モデルが会話として応答した場合はエラーではなくReplyを返す。
// ErrEmptySelection・ErrRetrieval・ErrAuthenticationはそのまま伝播する。
func (s *Service) Recommend(ctx context.Context, params RecommendParams) (*RecommendResult, error) {
	if strings.TrimSpace(params.UserText) == "" {
		return nil, fmt.Errorf("user text is required")
	}
	if len(params.ProviderIDs) == 0 {
		return nil, fmt.Errorf("at least one streaming provider must be selected")
	}
	for _, id := range params.ProviderIDs {
		if !catalog.IsProvider(id) {
			return nil, &catalog.UnknownProviderError{ID: id}
		}
	}

	requestID := uuid.New().String()
	logger := s.logger.With("requestID", requestID)

	logger.Info("starting recommendation pipeline",
		"providers", params.ProviderIDs,
	)

	// 1. 検索条件の抽出
	constraints, err := s.extractor.Extract(ctx, params.UserText)
	if err != nil {
		var malformed *MalformedOutputError
		if errors.As(err, &malformed) && malformed.Stage == StageExtraction {
			// 構造化出力の代わりに会話として応答したケース。
			// 正常な結果の一分岐として原文を返し、呼び出し側がそのまま表示する。
			logger.Info("model replied conversationally instead of structured output")
			return &RecommendResult{Reply: malformed.RawText}, nil
		}
		return nil, fmt.Errorf("constraint extraction failed: %w", err)
	}

	logger.Info("constraints extracted",
		"semanticSearch", constraints.SemanticSearch,
		"media", string(constraints.Media),
		"genres", constraints.Genre.Values(),
	)

	// 2. 意味ベクトルの計算（semantic_searchに対してちょうど1回）
	vector, err := s.embedder.Embed(ctx, constraints.SemanticSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed semantic text: %w", err)
	}

	// 3. フィルタ付き類似検索
	filter := BuildFilter(constraints, params.ProviderIDs, s.tuning.MinVoteCount)

	pool, err := s.movies.SearchMovies(ctx, vector, filter, s.tuning.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("candidate retrieval failed: %w", err)
	}

	logger.Info("candidate pool retrieved", "candidates", len(pool))

	// 4. ランキング結果の照合・並べ替え
	selected, err := s.reconciler.Reconcile(ctx, pool, params.UserText)
	if err != nil {
		return nil, fmt.Errorf("ranking reconciliation failed: %w", err)
	}

	logger.Info("recommendation pipeline completed", "selected", len(selected))

	return &RecommendResult{Movies: selected}, nil
}
