package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/mnemolite/mnemolite/internal/cache"
)

// BackfillHashesAction runs the one-shot content-hash migration (spec §9's
// "Cache hash migration"): out-of-band, never run on the indexing or search
// hot path.
func BackfillHashesAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), ".")
	if err != nil {
		return err
	}
	defer appCtx.Close()

	chunkRepo := appCtx.chunkRepo
	updated, err := cache.BackfillContentHashes(ctx, chunkRepo)
	if err != nil {
		return fmt.Errorf("backfill content hashes: %w", err)
	}

	appCtx.Logger.Info("content hash backfill complete", slog.Int("updated", updated))
	return nil
}
