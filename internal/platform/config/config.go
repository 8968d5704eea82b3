package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（映画カタログのベクトルストア）
	Database DatabaseConfig

	// OpenAI設定（抽出・ランキング・Embeddings用）
	OpenAI OpenAIConfig

	// TMDB設定（カタログ取り込み用）
	TMDB TMDBConfig

	// 推薦パイプラインのチューニング
	Pipeline PipelineConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	ChatModel          string // 抽出・ランキングに使用するチャットモデル
	EmbeddingModel     string
	EmbeddingDimension int
}

// TMDBConfig はTMDB API設定（ingestコマンドのみが使用）
type TMDBConfig struct {
	AccessToken    string
	BaseURL        string
	WatchRegion    string
	MaxConcurrency int // 詳細取得の同時リクエスト数上限
}

// PipelineConfig は推薦パイプラインの設定
type PipelineConfig struct {
	MaxCandidates      int // 類似検索で取得する候補数の上限
	MinVoteCount       int // 候補に求めるレビュー数の下限
	MaxRecommendations int // 最終推薦の上限（プロンプトにも反映される）
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "llmovies"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "llmovies"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		TMDB: TMDBConfig{
			AccessToken:    getEnv("TMDB_ACCESS_TOKEN", ""),
			BaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			WatchRegion:    getEnv("TMDB_WATCH_REGION", "US"),
			MaxConcurrency: getEnvAsInt("TMDB_MAX_CONCURRENCY", 10),
		},
		Pipeline: PipelineConfig{
			MaxCandidates:      getEnvAsInt("LLMOVIES_MAX_CANDIDATES", 10),
			MinVoteCount:       getEnvAsInt("LLMOVIES_MIN_VOTE_COUNT", 500),
			MaxRecommendations: getEnvAsInt("LLMOVIES_MAX_RECOMMENDATIONS", 3),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
