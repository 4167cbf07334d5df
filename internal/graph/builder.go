// Package graph implements C9: turning a repository's chunks into a call
// graph, per spec §4.8. Grounded on
// _examples/jinford-dev-rag/internal/module/indexing/application/index_orchestrator.go's
// load-all-then-resolve-then-commit-once shape, generalized from the
// teacher's single-language call resolution to the qualified-path →
// file-scoped-name → repository-wide-name fallback chain spec §4.8 step 4
// requires.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/database"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

const labelMaxLen = 60

// anonymousNames mirrors internal/chunk's anonymous-name filter (spec §4.8
// step 2): callables with these names never become graph nodes.
var anonymousNames = map[string]bool{
	"":            true,
	"<anonymous>": true,
	"_":           true,
	"<lambda>":    true,
}

func isAnonymous(name string) bool {
	return anonymousNames[name] || (len(name) >= 6 && name[:6] == "lambda")
}

// nodeTypeFor maps a chunk's type to the graph's node-type vocabulary.
var nodeTypeFor = map[domain.ChunkType]domain.NodeType{
	domain.ChunkFunction:  domain.NodeFunction,
	domain.ChunkMethod:    domain.NodeMethod,
	domain.ChunkClass:     domain.NodeClass,
	domain.ChunkInterface: domain.NodeInterface,
	domain.ChunkModule:    domain.NodeModule,
}

// resolvedNode pairs a GraphNode with the file and chunk it was built from,
// so call resolution can scope a lookup to "the same file".
type resolvedNode struct {
	node     domain.GraphNode
	filePath string
	name     string
	namePath string
}

// Builder implements spec §4.8's graph construction algorithm.
type Builder struct {
	chunks   domain.ChunkReader
	provider *database.TransactionProvider
	logger   *slog.Logger
}

// New builds a graph Builder.
func New(chunks domain.ChunkReader, provider *database.TransactionProvider, log *slog.Logger) *Builder {
	return &Builder{chunks: chunks, provider: provider, logger: logger.Component(log, "graph")}
}

// Build runs spec §4.8's five-step algorithm for one repository, committing
// the entire node+edge set in a single transaction.
func (b *Builder) Build(ctx context.Context, repository string) error {
	chunks, err := b.chunks.ListByRepository(ctx, repository)
	if err != nil {
		return fmt.Errorf("load chunks for %s: %w", repository, err)
	}

	resolved := b.buildNodes(repository, chunks)

	byName, byNamePath := indexNodes(resolved)

	nodes := make([]domain.GraphNode, len(resolved))
	for i, r := range resolved {
		nodes[i] = r.node
	}

	edges := b.resolveEdges(chunks, resolved, byName, byNamePath)

	_, err = database.Transact(ctx, b.provider, func(a *database.Adapter) (struct{}, error) {
		return struct{}{}, a.Graph.ReplaceGraph(ctx, repository, nodes, edges)
	})
	if err != nil {
		return fmt.Errorf("commit graph for %s: %w", repository, err)
	}

	b.logger.Info("graph build completed", slog.String("repository", repository),
		slog.Int("nodes", len(nodes)), slog.Int("edges", len(edges)))
	return nil
}

// buildNodes implements steps 1-2: one node per non-anonymous chunk.
func (b *Builder) buildNodes(repository string, chunks []domain.CodeChunk) []resolvedNode {
	resolved := make([]resolvedNode, 0, len(chunks))

	for i, c := range chunks {
		name := c.Name
		if isAnonymous(name) {
			continue
		}
		if name == "" {
			name = fmt.Sprintf("%s_%d", c.ChunkType, i)
		}

		nodeType, ok := nodeTypeFor[c.ChunkType]
		if !ok {
			nodeType = domain.NodeModule
		}

		propType := c.Metadata.LSPType
		if propType == "" {
			propType = string(c.ChunkType)
		}

		resolved = append(resolved, resolvedNode{
			node: domain.GraphNode{
				ID:       uuid.New(),
				NodeType: nodeType,
				Label:    truncateLabel(name),
				Properties: map[string]any{
					"name":       name,
					"type":       propType,
					"repository": repository,
					"file_path":  c.FilePath,
					"language":   c.Language,
					"chunk_id":   c.ID,
				},
			},
			filePath: c.FilePath,
			name:     name,
			namePath: c.NamePath,
		})
	}

	return resolved
}

func truncateLabel(name string) string {
	if len(name) <= labelMaxLen {
		return name
	}
	return name[:labelMaxLen-1] + "…"
}

// indexNodes implements step 3: resolution indexes keyed by name and by
// name_path. Multiple chunks can share a simple name (overloads, methods on
// different receivers); byName keeps every candidate so call resolution can
// scope the choice to the caller's file.
func indexNodes(resolved []resolvedNode) (byName map[string][]resolvedNode, byNamePath map[string]resolvedNode) {
	byName = make(map[string][]resolvedNode)
	byNamePath = make(map[string]resolvedNode)

	for _, r := range resolved {
		byName[r.name] = append(byName[r.name], r)
		if r.namePath != "" {
			byNamePath[r.namePath] = r
		}
	}
	return byName, byNamePath
}

// resolveEdges implements step 4: qualified-path first, then same-file
// simple name, then repository-wide simple name. Unresolved calls are
// dropped silently, per spec.
func (b *Builder) resolveEdges(chunks []domain.CodeChunk, resolved []resolvedNode, byName map[string][]resolvedNode, byNamePath map[string]resolvedNode) []domain.GraphEdge {
	nodeByChunkID := make(map[uuid.UUID]resolvedNode, len(resolved))
	for _, r := range resolved {
		if id, ok := r.node.Properties["chunk_id"].(uuid.UUID); ok {
			nodeByChunkID[id] = r
		}
	}

	var edges []domain.GraphEdge
	for _, c := range chunks {
		source, ok := nodeByChunkID[c.ID]
		if !ok {
			continue // chunk itself was filtered out as anonymous
		}

		for _, callee := range c.Metadata.Calls {
			target, ok := resolveCallee(callee, source.filePath, byName, byNamePath)
			if !ok {
				continue
			}
			edges = append(edges, domain.GraphEdge{
				ID:           uuid.New(),
				SourceNodeID: source.node.ID,
				TargetNodeID: target.node.ID,
				RelationType: domain.RelationCalls,
				Properties:   map[string]any{"callee": callee},
			})
		}
	}
	return edges
}

func resolveCallee(callee, callerFile string, byName map[string][]resolvedNode, byNamePath map[string]resolvedNode) (resolvedNode, bool) {
	if n, ok := byNamePath[callee]; ok {
		return n, true
	}

	candidates, ok := byName[callee]
	if !ok || len(candidates) == 0 {
		return resolvedNode{}, false
	}

	for _, c := range candidates {
		if c.filePath == callerFile {
			return c, true
		}
	}

	return candidates[0], true
}
