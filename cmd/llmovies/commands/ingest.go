package commands

import (
	"context"
	"fmt"

	"github.com/jinford/llmovies/internal/core/ingest"
	"github.com/urfave/cli/v3"
)

// IngestRunAction はTMDBからのカタログ取り込みパイプラインを実行する
func IngestRunAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	providerIDs, err := parseProviderIDs(cmd.String("providers"))
	if err != nil {
		return err
	}

	count, err := app.Container.IngestService.Run(ctx, ingest.DiscoverParams{
		YearFrom:    cmd.Int("year-from"),
		YearTo:      cmd.Int("year-to"),
		PageFrom:    cmd.Int("page-from"),
		PageTo:      cmd.Int("page-to"),
		ProviderIDs: providerIDs,
	})
	if err != nil {
		return fmt.Errorf("カタログ取り込みに失敗: %w", err)
	}

	fmt.Printf("%d本の映画を取り込みました\n", count)
	return nil
}

// IngestSchemaAction はベクトルストアのスキーマを初期化する
func IngestSchemaAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	store := app.Container.IngestService.Store()
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	fmt.Println("スキーマを初期化しました")
	return nil
}
