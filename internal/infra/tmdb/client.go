package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinford/llmovies/internal/core/ingest"
)

const (
	// DefaultBaseURL はTMDB APIのベースURL
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultWatchRegion は配信情報の対象リージョン
	DefaultWatchRegion = "US"

	// DefaultMaxConcurrency は詳細取得の同時リクエスト数上限
	DefaultMaxConcurrency = 10

	// requestTimeout は1リクエストあたりのタイムアウト
	requestTimeout = 30 * time.Second
)

// Client はTMDB APIクライアント。
// 詳細取得は固定サイズのセマフォで同時リクエスト数を制限する。
type Client struct {
	accessToken    string
	baseURL        string
	watchRegion    string
	maxConcurrency int
	httpClient     *http.Client
}

type clientOptions struct {
	baseURL        string
	watchRegion    string
	maxConcurrency int
	httpClient     *http.Client
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithBaseURL はベースURLを上書きする（テスト用）
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithWatchRegion は配信情報のリージョンを上書きする
func WithWatchRegion(region string) ClientOption {
	return func(o *clientOptions) {
		if region != "" {
			o.watchRegion = region
		}
	}
}

// WithMaxConcurrency は同時リクエスト数の上限を上書きする
func WithMaxConcurrency(n int) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithHTTPClient はHTTPクライアントを差し替える（テスト用）
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewClient は新しいTMDBクライアントを作成する
func NewClient(accessToken string, opts ...ClientOption) *Client {
	options := clientOptions{
		baseURL:        DefaultBaseURL,
		watchRegion:    DefaultWatchRegion,
		maxConcurrency: DefaultMaxConcurrency,
		httpClient:     &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		accessToken:    accessToken,
		baseURL:        strings.TrimRight(options.baseURL, "/"),
		watchRegion:    options.watchRegion,
		maxConcurrency: options.maxConcurrency,
		httpClient:     options.httpClient,
	}
}

// インターフェース実装の確認
var _ ingest.CatalogSource = (*Client)(nil)

// discoverResponse は /discover/movie のレスポンス
type discoverResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
	TotalPages int `json:"total_pages"`
}

// DiscoverMovieIDs は年×ページの範囲で人気順に映画IDを列挙する
func (c *Client) DiscoverMovieIDs(ctx context.Context, params ingest.DiscoverParams) ([]int64, error) {
	providerValues := make([]string, len(params.ProviderIDs))
	for i, id := range params.ProviderIDs {
		providerValues[i] = strconv.Itoa(id)
	}

	var (
		ids  []int64
		seen = map[int64]struct{}{}
	)
	for year := params.YearFrom; year <= params.YearTo; year++ {
		for page := params.PageFrom; page <= params.PageTo; page++ {
			query := url.Values{}
			query.Set("sort_by", "popularity.desc")
			query.Set("watch_region", c.watchRegion)
			query.Set("with_watch_providers", strings.Join(providerValues, "|"))
			query.Set("primary_release_year", strconv.Itoa(year))
			query.Set("page", strconv.Itoa(page))

			var resp discoverResponse
			if err := c.get(ctx, "/discover/movie", query, &resp); err != nil {
				return nil, fmt.Errorf("discover failed for year %d page %d: %w", year, page, err)
			}

			for _, result := range resp.Results {
				if _, ok := seen[result.ID]; ok {
					continue
				}
				seen[result.ID] = struct{}{}
				ids = append(ids, result.ID)
			}
		}
	}

	return ids, nil
}

// movieDetailResponse は /movie/{id} のレスポンス（必要なフィールドのみ）
type movieDetailResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Videos struct {
		Results []struct {
			Site string `json:"site"`
			Type string `json:"type"`
			Key  string `json:"key"`
		} `json:"results"`
	} `json:"videos"`
	WatchProviders struct {
		Results map[string]struct {
			Link     string `json:"link"`
			Flatrate []struct {
				ProviderID int64 `json:"provider_id"`
			} `json:"flatrate"`
		} `json:"results"`
	} `json:"watch/providers"`
}

// FetchMovieDetails は映画の詳細をセマフォで同時数を制限しながら取得する
func (c *Client) FetchMovieDetails(ctx context.Context, ids []int64) ([]*ingest.SourceMovie, error) {
	sem := make(chan struct{}, c.maxConcurrency)
	results := make([]*ingest.SourceMovie, len(ids))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			movie, err := c.fetchDetail(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = movie
		}(i, id)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	movies := make([]*ingest.SourceMovie, 0, len(results))
	for _, movie := range results {
		if movie != nil {
			movies = append(movies, movie)
		}
	}
	return movies, nil
}

// fetchDetail は1本の映画詳細を取得してSourceMovieへ変換する
func (c *Client) fetchDetail(ctx context.Context, id int64) (*ingest.SourceMovie, error) {
	query := url.Values{}
	query.Set("append_to_response", "videos,watch/providers")
	query.Set("language", "en-US")

	var resp movieDetailResponse
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", id, err)
	}

	genres := make([]string, 0, len(resp.Genres))
	for _, genre := range resp.Genres {
		genres = append(genres, genre.Name)
	}

	var trailerKey string
	for _, video := range resp.Videos.Results {
		if video.Site == "YouTube" && video.Type == "Trailer" {
			trailerKey = video.Key
			break
		}
	}

	var (
		watchURL  string
		providers []string
	)
	if regional, ok := resp.WatchProviders.Results[c.watchRegion]; ok {
		watchURL = regional.Link
		for _, p := range regional.Flatrate {
			providers = append(providers, strconv.FormatInt(p.ProviderID, 10))
		}
	}

	return &ingest.SourceMovie{
		ShowID:      resp.ID,
		Title:       resp.Title,
		Description: resp.Overview,
		ReleaseDate: resp.ReleaseDate,
		Runtime:     resp.Runtime,
		Genres:      genres,
		VoteAverage: resp.VoteAverage,
		VoteCount:   resp.VoteCount,
		TrailerKey:  trailerKey,
		WatchURL:    watchURL,
		Providers:   providers,
	}, nil
}

// get はGETリクエストを発行してJSONレスポンスをデコードする
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
