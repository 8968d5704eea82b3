package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	ids     []int64
	details []*SourceMovie
	err     error
}

func (s *stubCatalog) DiscoverMovieIDs(ctx context.Context, params DiscoverParams) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func (s *stubCatalog) FetchMovieDetails(ctx context.Context, ids []int64) ([]*SourceMovie, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.details, nil
}

type stubEmbedder struct {
	batches [][]string
	err     error
}

func (s *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	s.batches = append(s.batches, texts)
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

type stubStore struct {
	schemaCalls int
	upserted    []*IndexedMovie
	err         error
}

func (s *stubStore) EnsureSchema(ctx context.Context) error {
	s.schemaCalls++
	return s.err
}

func (s *stubStore) UpsertMovies(ctx context.Context, movies []*IndexedMovie) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, movies...)
	return nil
}

func sampleMovies(n int) []*SourceMovie {
	movies := make([]*SourceMovie, 0, n)
	for i := 0; i < n; i++ {
		movies = append(movies, &SourceMovie{
			ShowID:      int64(i + 1),
			Title:       fmt.Sprintf("Movie %d", i+1),
			Description: "A movie.",
			Genres:      []string{"Drama"},
		})
	}
	return movies
}

func validParams() DiscoverParams {
	return DiscoverParams{
		YearFrom:    2020,
		YearTo:      2021,
		PageFrom:    1,
		PageTo:      2,
		ProviderIDs: []int{8},
	}
}

func TestRun(t *testing.T) {
	catalog := &stubCatalog{
		ids:     []int64{1, 2, 3},
		details: sampleMovies(3),
	}
	embedder := &stubEmbedder{}
	store := &stubStore{}

	svc := NewService(catalog, embedder, store)

	count, err := svc.Run(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, store.schemaCalls)
	require.Len(t, store.upserted, 3)

	// 埋め込み対象のテキストはFullDescriptionとして保存される
	assert.Equal(t, store.upserted[0].SourceMovie.BuildFullDescription(), store.upserted[0].FullDescription)
	assert.NotNil(t, store.upserted[0].Embedding)
}

func TestRun_BatchesEmbeddings(t *testing.T) {
	// 100件超は複数バッチに分割される
	catalog := &stubCatalog{
		ids:     make([]int64, 150),
		details: sampleMovies(150),
	}
	embedder := &stubEmbedder{}
	store := &stubStore{}

	svc := NewService(catalog, embedder, store)

	count, err := svc.Run(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, 150, count)

	require.Len(t, embedder.batches, 2)
	assert.Len(t, embedder.batches[0], 100)
	assert.Len(t, embedder.batches[1], 50)
}

func TestRun_NoMoviesDiscovered(t *testing.T) {
	catalog := &stubCatalog{ids: nil}
	embedder := &stubEmbedder{}
	store := &stubStore{}

	svc := NewService(catalog, embedder, store)

	count, err := svc.Run(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, embedder.batches)
	assert.Zero(t, store.schemaCalls)
}

func TestRun_InvalidParams(t *testing.T) {
	svc := NewService(&stubCatalog{}, &stubEmbedder{}, &stubStore{})

	_, err := svc.Run(context.Background(), DiscoverParams{
		YearFrom:    2022,
		YearTo:      2020,
		PageFrom:    1,
		PageTo:      1,
		ProviderIDs: []int{8},
	})
	require.Error(t, err)
}

func TestRun_EmbedderError(t *testing.T) {
	catalog := &stubCatalog{ids: []int64{1}, details: sampleMovies(1)}
	embedder := &stubEmbedder{err: errors.New("rate limited")}
	store := &stubStore{}

	svc := NewService(catalog, embedder, store)

	_, err := svc.Run(context.Background(), validParams())
	require.Error(t, err)
	assert.Empty(t, store.upserted)
}

func TestDiscoverParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  DiscoverParams
		wantErr bool
	}{
		{name: "妥当な範囲", params: validParams()},
		{
			name: "単年・単ページ",
			params: DiscoverParams{
				YearFrom: 2023, YearTo: 2023, PageFrom: 1, PageTo: 1, ProviderIDs: []int{8},
			},
		},
		{
			name: "年範囲の逆転",
			params: DiscoverParams{
				YearFrom: 2023, YearTo: 2020, PageFrom: 1, PageTo: 1, ProviderIDs: []int{8},
			},
			wantErr: true,
		},
		{
			name: "ページ0は不正",
			params: DiscoverParams{
				YearFrom: 2020, YearTo: 2021, PageFrom: 0, PageTo: 1, ProviderIDs: []int{8},
			},
			wantErr: true,
		},
		{
			name: "プロバイダなし",
			params: DiscoverParams{
				YearFrom: 2020, YearTo: 2021, PageFrom: 1, PageTo: 1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
