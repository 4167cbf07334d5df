package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/search/hybrid"
)

// searchHit is the CLI's JSON output shape — a flattened view of
// hybrid.Result so a caller piping into jq doesn't need to know about the
// internal Engine types.
type searchHit struct {
	ChunkID     string   `json:"chunk_id"`
	FilePath    string   `json:"file_path"`
	Name        string   `json:"name"`
	ChunkType   string   `json:"chunk_type"`
	FusedScore  float64  `json:"fused_score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// SearchAction runs one hybrid search query end to end (C13) and prints the
// ranked, hydrated results as JSON lines.
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	appCtx, err := NewAppContext(ctx, envFile, ".")
	if err != nil {
		return err
	}
	defer appCtx.Close()

	params := hybrid.Params{
		Query: cmd.Args().First(),
		Filters: domain.SearchFilters{
			Repository: cmd.String("repository"),
			Language:   cmd.String("language"),
			ChunkType:  domain.ChunkType(cmd.String("chunk-type")),
			FilePath:   cmd.String("file-path"),
		},
		Limit:        int(cmd.Int("limit")),
		EnableRerank: cmd.Bool("rerank"),
		PoolSize:     int(cmd.Int("pool-size")),
	}

	results, err := appCtx.Search.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		hit := searchHit{
			ChunkID:     r.Chunk.ID.String(),
			FilePath:    r.Chunk.FilePath,
			Name:        r.Chunk.Name,
			ChunkType:   string(r.Chunk.ChunkType),
			FusedScore:  r.FusedScore,
			RerankScore: r.RerankScore,
		}
		if err := enc.Encode(hit); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	return nil
}
