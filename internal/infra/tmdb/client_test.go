package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jinford/llmovies/internal/core/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMovieIDs(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())

		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/discover/movie", r.URL.Path)

		query := r.URL.Query()
		assert.Equal(t, "popularity.desc", query.Get("sort_by"))
		assert.Equal(t, "US", query.Get("watch_region"))
		assert.Equal(t, "8|337", query.Get("with_watch_providers"))

		// 2ページ目は1ページ目と一部重複したIDを返す
		if query.Get("page") == "1" {
			fmt.Fprint(w, `{"results": [{"id": 100}, {"id": 200}], "total_pages": 2}`)
		} else {
			fmt.Fprint(w, `{"results": [{"id": 200}, {"id": 300}], "total_pages": 2}`)
		}
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	ids, err := client.DiscoverMovieIDs(context.Background(), ingest.DiscoverParams{
		YearFrom:    2023,
		YearTo:      2023,
		PageFrom:    1,
		PageTo:      2,
		ProviderIDs: []int{8, 337},
	})
	require.NoError(t, err)

	// 重複IDは排除される
	assert.Equal(t, []int64{100, 200, 300}, ids)
	assert.Len(t, requests, 2)
}

func TestDiscoverMovieIDs_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	_, err := client.DiscoverMovieIDs(context.Background(), ingest.DiscoverParams{
		YearFrom:    2023,
		YearTo:      2023,
		PageFrom:    1,
		PageTo:      1,
		ProviderIDs: []int{8},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestFetchMovieDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "videos,watch/providers", r.URL.Query().Get("append_to_response"))

		fmt.Fprint(w, `{
			"id": 603,
			"title": "The Matrix",
			"overview": "A hacker discovers reality is a simulation.",
			"release_date": "1999-03-31",
			"runtime": 136,
			"vote_average": 8.2,
			"vote_count": 24000,
			"genres": [{"name": "Action"}, {"name": "Science Fiction"}],
			"videos": {"results": [
				{"site": "YouTube", "type": "Clip", "key": "clip123"},
				{"site": "YouTube", "type": "Trailer", "key": "trailer456"}
			]},
			"watch/providers": {"results": {
				"US": {"link": "https://www.themoviedb.org/movie/603/watch", "flatrate": [{"provider_id": 8}]},
				"JP": {"link": "https://example.jp", "flatrate": [{"provider_id": 9}]}
			}}
		}`)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	movies, err := client.FetchMovieDetails(context.Background(), []int64{603})
	require.NoError(t, err)
	require.Len(t, movies, 1)

	movie := movies[0]
	assert.Equal(t, int64(603), movie.ShowID)
	assert.Equal(t, "The Matrix", movie.Title)
	assert.Equal(t, 136, movie.Runtime)
	assert.Equal(t, []string{"Action", "Science Fiction"}, movie.Genres)

	// Trailer種別の最初のYouTube動画キーを採用する
	assert.Equal(t, "trailer456", movie.TrailerKey)

	// 配信情報は設定リージョン（US）のものを使う
	assert.Equal(t, "https://www.themoviedb.org/movie/603/watch", movie.WatchURL)
	assert.Equal(t, []string{"8"}, movie.Providers)
}

func TestFetchMovieDetails_RespectsConcurrencyLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		fmt.Fprint(w, `{"id": 1, "title": "Movie", "overview": "x", "runtime": 100}`)

		mu.Lock()
		current--
		mu.Unlock()
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL), WithMaxConcurrency(2))

	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	movies, err := client.FetchMovieDetails(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, movies, 20)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
}

func TestFetchMovieDetails_FirstErrorWins(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/movie/2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id": 1, "title": "Movie", "overview": "x", "runtime": 100}`)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	_, err := client.FetchMovieDetails(context.Background(), []int64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "movie 2")
}

func TestNewClientOptions(t *testing.T) {
	t.Run("デフォルト値", func(t *testing.T) {
		client := NewClient("token")
		assert.Equal(t, DefaultBaseURL, client.baseURL)
		assert.Equal(t, DefaultWatchRegion, client.watchRegion)
		assert.Equal(t, DefaultMaxConcurrency, client.maxConcurrency)
	})

	t.Run("オプションで上書き", func(t *testing.T) {
		client := NewClient("token",
			WithBaseURL("https://proxy.example.com/3/"),
			WithWatchRegion("JP"),
			WithMaxConcurrency(4),
		)
		assert.Equal(t, "https://proxy.example.com/3", client.baseURL)
		assert.Equal(t, "JP", client.watchRegion)
		assert.Equal(t, 4, client.maxConcurrency)
	})

	t.Run("空文字や非正値は無視", func(t *testing.T) {
		client := NewClient("token",
			WithBaseURL(""),
			WithWatchRegion(""),
			WithMaxConcurrency(0),
		)
		assert.Equal(t, DefaultBaseURL, client.baseURL)
		assert.Equal(t, DefaultWatchRegion, client.watchRegion)
		assert.Equal(t, DefaultMaxConcurrency, client.maxConcurrency)
	})
}
