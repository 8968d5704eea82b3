package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jinford/llmovies/internal/core/catalog"
	"github.com/jinford/llmovies/internal/core/recommend"
	"github.com/urfave/cli/v3"
)

// RecommendAction は自由文と選択済みプロバイダから推薦を生成して表示する
func RecommendAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	providerIDs, err := parseProviderIDs(cmd.String("providers"))
	if err != nil {
		return err
	}

	result, err := app.Container.RecommendService.Recommend(ctx, recommend.RecommendParams{
		UserText:    cmd.String("query"),
		ProviderIDs: providerIDs,
	})
	if err != nil {
		return presentPipelineError(err)
	}

	if result.IsReply() {
		// モデルが会話として応答したケース。原文をそのまま表示する
		fmt.Println(result.Reply)
		return nil
	}

	if cmd.Bool("json") {
		return printMoviesJSON(result.Movies)
	}

	printMoviesText(result.Movies)
	return nil
}

// parseProviderIDs は"8,337"形式のフラグ値をIDリストへ変換する
func parseProviderIDs(raw string) ([]int, error) {
	var ids []int
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("プロバイダIDが不正です: %q", token)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("配信サービスを1つ以上指定してください（--providers 8,337 など）")
	}
	return ids, nil
}

// presentPipelineError はパイプラインのエラー種別をユーザー向けメッセージへ変換する
func presentPipelineError(err error) error {
	switch {
	case errors.Is(err, recommend.ErrEmptySelection):
		fmt.Println("I wasn't able to find any movies for you. Try modifying your query.")
		return nil
	case errors.Is(err, recommend.ErrAuthentication):
		return cli.Exit("OpenAI APIキーが拒否されました。キーが正しいか確認してください。", 1)
	case errors.Is(err, recommend.ErrRetrieval):
		return cli.Exit("検索中に問題が発生しました。しばらくしてからもう一度お試しください。", 1)
	default:
		return err
	}
}

// movieView はJSON出力用の表現
type movieView struct {
	ShowID      int64    `json:"show_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	ReleaseDate string   `json:"release_date"`
	Runtime     int      `json:"runtime"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int64    `json:"vote_count"`
	TrailerURL  string   `json:"trailer_url,omitempty"`
	WatchURL    string   `json:"watch_url"`
	Providers   []string `json:"providers"`
	Distance    float64  `json:"distance"`
}

func printMoviesJSON(movies []*recommend.CandidateMovie) error {
	views := make([]movieView, 0, len(movies))
	for _, movie := range movies {
		view := movieView{
			ShowID:      movie.ShowID,
			Title:       movie.Title,
			Description: movie.Description,
			Genres:      movie.Genres,
			ReleaseDate: movie.ReleaseDate,
			Runtime:     movie.Runtime,
			VoteAverage: movie.VoteAverage,
			VoteCount:   movie.VoteCount,
			WatchURL:    movie.WatchURL,
			Providers:   movie.Providers,
			Distance:    movie.Distance,
		}
		if key, ok := movie.TrailerURL.Get(); ok {
			view.TrailerURL = trailerURL(key)
		}
		views = append(views, view)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}

func printMoviesText(movies []*recommend.CandidateMovie) {
	for i, movie := range movies {
		fmt.Printf("%d. %s (%s) — %s — %.1f/10 (%d reviews)\n",
			i+1, movie.Title, movie.ReleaseDate, formatRuntime(movie.Runtime),
			movie.VoteAverage, movie.VoteCount,
		)
		fmt.Printf("   Genres: %s\n", strings.Join(movie.Genres, ", "))
		if names := providerNames(movie.Providers); names != "" {
			fmt.Printf("   Available on: %s\n", names)
		}
		if key, ok := movie.TrailerURL.Get(); ok {
			fmt.Printf("   Trailer: %s\n", trailerURL(key))
		}
		if movie.WatchURL != "" {
			fmt.Printf("   Watch: %s\n", movie.WatchURL)
		}
		fmt.Printf("   %s\n", movie.Description)
		fmt.Printf("   (cosine distance: %.4f)\n\n", movie.Distance)
	}
}

// formatRuntime は分を「2h 3m」形式へ整形する
func formatRuntime(runtime int) string {
	return fmt.Sprintf("%dh %dm", runtime/60, runtime%60)
}

// trailerURL はYouTubeの動画キーから視聴URLを組み立てる
func trailerURL(key string) string {
	return "https://www.youtube.com/watch?v=" + key
}

// providerNames はプロバイダIDの列を表示名の列挙へ変換する。
// テーブル外のIDは設定不整合だが、表示目的なのでIDのまま出力する。
func providerNames(ids []string) string {
	names := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			names = append(names, raw)
			continue
		}
		name, err := catalog.Name(id)
		if err != nil {
			names = append(names, raw)
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
