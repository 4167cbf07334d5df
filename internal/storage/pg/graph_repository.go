package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// GraphRepository implements domain.GraphRepository against the nodes/edges
// tables from spec §6, grounded on
// _examples/Aman-CERP-amanmcp/internal/module/indexing/adapter/dependency/graph.go's
// node/edge shape, persisted here instead of held in memory.
type GraphRepository struct {
	db querier
}

// NewGraphRepository builds a GraphRepository bound to a transaction or pool.
func NewGraphRepository(db querier) *GraphRepository {
	return &GraphRepository{db: db}
}

var _ domain.GraphRepository = (*GraphRepository)(nil)

// ListNodes returns every node for a repository.
func (r *GraphRepository) ListNodes(ctx context.Context, repository string) ([]domain.GraphNode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, node_type, label, properties, created_at
		FROM nodes
		WHERE properties->>'repository' = $1`, repository)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var result []domain.GraphNode
	for rows.Next() {
		var n domain.GraphNode
		var id pgtype.UUID
		var props []byte
		if err := rows.Scan(&id, &n.NodeType, &n.Label, &props, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ID = pgToUUID(id)
		n.Properties = unmarshalProperties(props)
		result = append(result, n)
	}
	return result, rows.Err()
}

// ListEdges returns every edge whose source node belongs to a repository.
func (r *GraphRepository) ListEdges(ctx context.Context, repository string) ([]domain.GraphEdge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.source_node_id, e.target_node_id, e.relation_type, e.properties, e.created_at
		FROM edges e
		JOIN nodes n ON n.id = e.source_node_id
		WHERE n.properties->>'repository' = $1`, repository)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var result []domain.GraphEdge
	for rows.Next() {
		var e domain.GraphEdge
		var id, src, tgt pgtype.UUID
		var props []byte
		if err := rows.Scan(&id, &src, &tgt, &e.RelationType, &props, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.ID, e.SourceNodeID, e.TargetNodeID = pgToUUID(id), pgToUUID(src), pgToUUID(tgt)
		e.Properties = unmarshalProperties(props)
		result = append(result, e)
	}
	return result, rows.Err()
}

// ReplaceGraph commits the full node+edge set for a repository as a single
// transaction: delete, then bulk insert. Per spec §4.8 step 5 this must be
// atomic — callers invoke this inside internal/platform/database.Transact.
func (r *GraphRepository) ReplaceGraph(ctx context.Context, repository string, nodes []domain.GraphNode, edges []domain.GraphEdge) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM edges WHERE source_node_id IN (SELECT id FROM nodes WHERE properties->>'repository' = $1)
		   OR target_node_id IN (SELECT id FROM nodes WHERE properties->>'repository' = $1)`, repository); err != nil {
		return fmt.Errorf("delete existing edges: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM nodes WHERE properties->>'repository' = $1`, repository); err != nil {
		return fmt.Errorf("delete existing nodes: %w", err)
	}

	for _, n := range nodes {
		id := n.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO nodes (id, node_type, label, properties, created_at)
			VALUES ($1,$2,$3,$4,now())`,
			uuidToPg(id), n.NodeType, n.Label, marshalProperties(n.Properties),
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.Label, err)
		}
	}

	for _, e := range edges {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO edges (id, source_node_id, target_node_id, relation_type, properties, created_at)
			VALUES ($1,$2,$3,$4,$5,now())`,
			uuidToPg(id), uuidToPg(e.SourceNodeID), uuidToPg(e.TargetNodeID), e.RelationType, marshalProperties(e.Properties),
		); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
	}
	return nil
}
