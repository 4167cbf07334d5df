package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// MetricsRepository implements domain.MetricsRepository against the
// computed_metrics table (spec §6), versioned so callers can diff a fresh
// graph build's centrality numbers against the prior run.
type MetricsRepository struct {
	db querier
}

// NewMetricsRepository builds a MetricsRepository bound to a transaction or pool.
func NewMetricsRepository(db querier) *MetricsRepository {
	return &MetricsRepository{db: db}
}

var _ domain.MetricsRepository = (*MetricsRepository)(nil)

// Put inserts a new version of each ComputedMetrics row. Existing rows are
// never overwritten — spec §4.9 keeps prior versions for diffing.
func (r *MetricsRepository) Put(ctx context.Context, metrics []domain.ComputedMetrics) error {
	for _, m := range metrics {
		id := m.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO computed_metrics (id, node_id, version, cyclomatic, cognitive, lines_of_code,
				afferent_coupling, efferent_coupling, instability, page_rank, betweenness, computed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())`,
			uuidToPg(id), uuidToPg(m.NodeID), m.Version, m.Cyclomatic, m.Cognitive, m.LinesOfCode,
			m.AfferentCoupling, m.EfferentCoupling, m.Instability, m.PageRank, m.Betweenness,
		); err != nil {
			return fmt.Errorf("insert computed metrics for node %s: %w", m.NodeID, err)
		}
	}
	return nil
}

// LatestByRepository returns, for each node in the repository, its
// highest-versioned ComputedMetrics row.
func (r *MetricsRepository) LatestByRepository(ctx context.Context, repository string) ([]domain.ComputedMetrics, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (cm.node_id) cm.id, cm.node_id, cm.version, cm.cyclomatic, cm.cognitive,
			cm.lines_of_code, cm.afferent_coupling, cm.efferent_coupling, cm.instability,
			cm.page_rank, cm.betweenness, cm.computed_at
		FROM computed_metrics cm
		JOIN nodes n ON n.id = cm.node_id
		WHERE n.properties->>'repository' = $1
		ORDER BY cm.node_id, cm.version DESC`, repository)
	if err != nil {
		return nil, fmt.Errorf("list latest computed metrics: %w", err)
	}
	defer rows.Close()

	var result []domain.ComputedMetrics
	for rows.Next() {
		var m domain.ComputedMetrics
		var id, nodeID pgtype.UUID
		if err := rows.Scan(&id, &nodeID, &m.Version, &m.Cyclomatic, &m.Cognitive, &m.LinesOfCode,
			&m.AfferentCoupling, &m.EfferentCoupling, &m.Instability, &m.PageRank, &m.Betweenness, &m.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan computed metrics: %w", err)
		}
		m.ID, m.NodeID = pgToUUID(id), pgToUUID(nodeID)
		result = append(result, m)
	}
	return result, rows.Err()
}
