package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

// PostgresStore persists jurisdictions in Postgres with pgvector embeddings.
// It is an alternative to snapshot files for deployments that already run a
// database; the in-memory repository remains the serving copy either way.
type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     logging.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, dimensions int, logger logging.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, dimensions: dimensions, logger: logger}, nil
}

func (p *PostgresStore) Close() { p.pool.Close() }

// EnsureSchema creates the tables and the pgvector extension if missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS requirements (
		jurisdiction     TEXT NOT NULL,
		id               TEXT NOT NULL,
		text             TEXT NOT NULL,
		section          TEXT NOT NULL DEFAULT '',
		severity         TEXT NOT NULL DEFAULT 'medium',
		requirement_type TEXT NOT NULL DEFAULT '',
		embedding        vector(%d),
		PRIMARY KEY (jurisdiction, id)
	);

	CREATE TABLE IF NOT EXISTS edges (
		jurisdiction TEXT NOT NULL,
		source       TEXT NOT NULL,
		target       TEXT NOT NULL,
		relation     TEXT NOT NULL,
		weight       DOUBLE PRECISION NOT NULL,
		confidence   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (jurisdiction, source, target, relation)
	);`, p.dimensions)

	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save replaces the stored copy of one jurisdiction inside a transaction.
func (p *PostgresStore) Save(ctx context.Context, j *Jurisdiction) error {
	g, idx := j.View()
	name := j.Name()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save for %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE jurisdiction = $1`, name); err != nil {
		return fmt.Errorf("clear edges for %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM requirements WHERE jurisdiction = $1`, name); err != nil {
		return fmt.Errorf("clear requirements for %s: %w", name, err)
	}

	for _, id := range g.NodeIDs() {
		req, ok := g.Node(id)
		if !ok {
			continue
		}
		var emb *pgvector.Vector
		if vec, ok := idx.Get(id); ok {
			v := pgvector.NewVector(vec)
			emb = &v
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO requirements (jurisdiction, id, text, section, severity, requirement_type, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			name, req.ID, req.Text, req.Section, string(req.Severity), req.RequirementType, emb)
		if err != nil {
			return fmt.Errorf("insert requirement %s: %w", req.ID, err)
		}
	}

	for _, e := range g.Edges() {
		_, err := tx.Exec(ctx, `
			INSERT INTO edges (jurisdiction, source, target, relation, weight, confidence)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			name, e.Source, e.Target, string(e.Relation), e.Weight, e.Confidence)
		if err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save for %s: %w", name, err)
	}
	p.logger.Info("jurisdiction saved to postgres", logging.Jurisdiction(name))
	return nil
}

// Load rebuilds one jurisdiction's graph and index from Postgres.
func (p *PostgresStore) Load(ctx context.Context, jurisdiction string) (*graph.Graph, *vector.Index, error) {
	g := graph.New(jurisdiction)
	idx, err := vector.NewIndex(p.dimensions)
	if err != nil {
		return nil, nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, text, section, severity, requirement_type, embedding
		FROM requirements WHERE jurisdiction = $1`, jurisdiction)
	if err != nil {
		return nil, nil, fmt.Errorf("load requirements for %s: %w", jurisdiction, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var req model.Requirement
		var severity string
		var emb *pgvector.Vector
		if err := rows.Scan(&req.ID, &req.Text, &req.Section, &severity, &req.RequirementType, &emb); err != nil {
			return nil, nil, fmt.Errorf("scan requirement: %w", err)
		}
		req.Severity = model.ParseSeverity(severity)
		if err := g.AddNode(&req); err != nil {
			return nil, nil, err
		}
		if emb != nil {
			if err := idx.Insert(req.ID, emb.Slice()); err != nil {
				return nil, nil, fmt.Errorf("restore vector %s: %w", req.ID, err)
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if count == 0 {
		return nil, nil, model.JurisdictionNotFound(jurisdiction)
	}

	edgeRows, err := p.pool.Query(ctx, `
		SELECT source, target, relation, weight, confidence
		FROM edges WHERE jurisdiction = $1`, jurisdiction)
	if err != nil {
		return nil, nil, fmt.Errorf("load edges for %s: %w", jurisdiction, err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var source, target, relation string
		var weight, confidence float64
		if err := edgeRows.Scan(&source, &target, &relation, &weight, &confidence); err != nil {
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		if err := g.AddEdge(source, target, model.Relation(relation), weight, confidence); err != nil {
			return nil, nil, err
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, err
	}
	return g, idx, nil
}

// Jurisdictions lists the jurisdictions present in Postgres.
func (p *PostgresStore) Jurisdictions(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT jurisdiction FROM requirements ORDER BY jurisdiction`)
	if err != nil {
		return nil, fmt.Errorf("list jurisdictions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
