package commands

import (
	"context"
	"fmt"

	"github.com/jinford/llmovies/internal/core/catalog"
	"github.com/urfave/cli/v3"
)

// ProvidersListAction は選択可能な配信サービスの一覧を表示する
func ProvidersListAction(ctx context.Context, cmd *cli.Command) error {
	fmt.Println("ID    Provider")
	for _, provider := range catalog.All() {
		fmt.Printf("%-5d %s\n", provider.ID, provider.Name)
	}
	return nil
}
