package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/llmovies/cmd/llmovies/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "llmovies",
		Usage: "自由文からLLMとベクトル検索で映画を推薦するCLI",
		Commands: []*cli.Command{
			{
				Name:  "recommend",
				Usage: "観たい映画の説明から推薦を生成",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "query",
						Usage:    "観たい映画の自由文（例: \"a feel-good space adventure\"）",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "providers",
						Usage: "契約中の配信サービスID（カンマ区切り。providers list で一覧表示）",
						Value: "8",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "結果をJSON形式で出力",
					},
				},
				Action: commands.RecommendAction,
			},
			{
				Name:  "providers",
				Usage: "配信サービス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "選択可能な配信サービス一覧を表示",
						Action: commands.ProvidersListAction,
					},
				},
			},
			{
				Name:  "ingest",
				Usage: "カタログ取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:  "run",
						Usage: "TMDBから映画を取得し、埋め込みを生成してストアへ書き込む",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:     "year-from",
								Usage:    "取得対象の開始年",
								Required: true,
							},
							&cli.IntFlag{
								Name:     "year-to",
								Usage:    "取得対象の終了年",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "page-from",
								Usage: "人気順ページの開始ページ",
								Value: 1,
							},
							&cli.IntFlag{
								Name:  "page-to",
								Usage: "人気順ページの終了ページ",
								Value: 5,
							},
							&cli.StringFlag{
								Name:  "providers",
								Usage: "対象の配信サービスID（カンマ区切り）",
								Value: "8,9,15,337,1899",
							},
						},
						Action: commands.IngestRunAction,
					},
					{
						Name:  "schema",
						Usage: "ベクトルストアのスキーマを初期化",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.IngestSchemaAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
