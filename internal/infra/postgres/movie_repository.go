package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/llmovies/internal/core/ingest"
	"github.com/jinford/llmovies/internal/core/recommend"
)

// MovieRepository は映画カタログのベクトルストアアダプター。
// 推薦側には読み取り（類似検索）を、取り込み側には書き込みとスキーマ管理を提供する。
type MovieRepository struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewMovieRepository は新しいMovieRepositoryを作成する
func NewMovieRepository(pool *pgxpool.Pool, dimension int) *MovieRepository {
	return &MovieRepository{pool: pool, dimension: dimension}
}

// インターフェース実装の確認
var _ recommend.MovieSearcher = (*MovieRepository)(nil)
var _ ingest.MovieStore = (*MovieRepository)(nil)

// SearchMovies はフィルタ述語の下でコサイン距離による類似検索を実行する。
// 結果は距離の昇順で返り、再ソートはしない。show_idは主キーのため重複しない。
// 失敗は recommend.ErrRetrieval を包んで返す。
func (r *MovieRepository) SearchMovies(ctx context.Context, vector []float32, filter recommend.FilterPredicate, limit int) ([]*recommend.CandidateMovie, error) {
	where, filterArgs, err := compileFilter(filter, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", recommend.ErrRetrieval, err)
	}

	args := make([]any, 0, len(filterArgs)+2)
	args = append(args, pgvector.NewVector(vector))
	args = append(args, filterArgs...)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT show_id, title, description, genres, release_date, runtime,
		       vote_average, vote_count, trailer_url, watch_url, providers,
		       embedding <=> $1 AS distance
		FROM movies
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", recommend.ErrRetrieval, err)
	}
	defer rows.Close()

	var movies []*recommend.CandidateMovie
	for rows.Next() {
		movie, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", recommend.ErrRetrieval, err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", recommend.ErrRetrieval, err)
	}

	return movies, nil
}

// scanCandidate は1行をCandidateMovieへ変換する
func scanCandidate(row pgx.Row) (*recommend.CandidateMovie, error) {
	var (
		movie      recommend.CandidateMovie
		trailerURL *string
	)
	if err := row.Scan(
		&movie.ShowID,
		&movie.Title,
		&movie.Description,
		&movie.Genres,
		&movie.ReleaseDate,
		&movie.Runtime,
		&movie.VoteAverage,
		&movie.VoteCount,
		&trailerURL,
		&movie.WatchURL,
		&movie.Providers,
		&movie.Distance,
	); err != nil {
		return nil, fmt.Errorf("failed to scan movie row: %v", err)
	}

	if trailerURL != nil {
		movie.TrailerURL = mo.Some(*trailerURL)
	} else {
		movie.TrailerURL = mo.None[string]()
	}

	return &movie, nil
}

// EnsureSchema はpgvector拡張・moviesテーブル・コサイン距離インデックスを作成する
func (r *MovieRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS movies (
			show_id      BIGINT PRIMARY KEY,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			genres       TEXT[] NOT NULL DEFAULT '{}',
			release_date TEXT NOT NULL DEFAULT '',
			runtime      INTEGER NOT NULL DEFAULT 0,
			vote_average DOUBLE PRECISION NOT NULL DEFAULT 0,
			vote_count   BIGINT NOT NULL DEFAULT 0,
			trailer_url  TEXT,
			watch_url    TEXT NOT NULL DEFAULT '',
			providers    TEXT[] NOT NULL DEFAULT '{}',
			full_description TEXT NOT NULL DEFAULT '',
			embedding    vector(%d) NOT NULL
		)`, r.dimension),
		`CREATE INDEX IF NOT EXISTS movies_embedding_idx
			ON movies USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}

// UpsertMovies は埋め込み済みレコードをまとめて書き込む（show_idで冪等）
func (r *MovieRepository) UpsertMovies(ctx context.Context, movies []*ingest.IndexedMovie) error {
	if len(movies) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, movie := range movies {
		var trailerURL *string
		if movie.TrailerKey != "" {
			key := movie.TrailerKey
			trailerURL = &key
		}

		batch.Queue(`
			INSERT INTO movies (
				show_id, title, description, genres, release_date, runtime,
				vote_average, vote_count, trailer_url, watch_url, providers,
				full_description, embedding
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (show_id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				genres = EXCLUDED.genres,
				release_date = EXCLUDED.release_date,
				runtime = EXCLUDED.runtime,
				vote_average = EXCLUDED.vote_average,
				vote_count = EXCLUDED.vote_count,
				trailer_url = EXCLUDED.trailer_url,
				watch_url = EXCLUDED.watch_url,
				providers = EXCLUDED.providers,
				full_description = EXCLUDED.full_description,
				embedding = EXCLUDED.embedding`,
			movie.ShowID,
			movie.Title,
			movie.Description,
			movie.Genres,
			movie.ReleaseDate,
			movie.Runtime,
			movie.VoteAverage,
			movie.VoteCount,
			trailerURL,
			movie.WatchURL,
			movie.Providers,
			movie.FullDescription,
			pgvector.NewVector(movie.Embedding),
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range movies {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert movie batch: %w", err)
		}
	}

	return nil
}
