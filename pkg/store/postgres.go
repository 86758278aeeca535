package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// PostgresRepository persists routings in PostgreSQL, for deployments
// where several services read the same authoritative configuration.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database at databaseURL,
// verifies connectivity and prepares the schema.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return r, nil
}

// migrate creates the routing tables if they don't exist.
func (r *PostgresRepository) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS routing_steps (
		model_id  TEXT NOT NULL,
		area_code TEXT NOT NULL,
		PRIMARY KEY (model_id, area_code)
	);

	CREATE TABLE IF NOT EXISTS routing_predecessors (
		model_id         TEXT NOT NULL,
		area_code        TEXT NOT NULL,
		predecessor_area TEXT NOT NULL,
		PRIMARY KEY (model_id, area_code, predecessor_area),
		FOREIGN KEY (model_id, area_code)
			REFERENCES routing_steps(model_id, area_code)
			ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_routing_predecessors_model
		ON routing_predecessors(model_id);
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create routing tables: %w", err)
	}
	return nil
}

// Get reconstructs the model's step set from its persisted rows.
func (r *PostgresRepository) Get(ctx context.Context, modelID string) ([]routing.Step, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT area_code FROM routing_steps
		WHERE model_id = $1 ORDER BY area_code
	`, modelID)
	if err != nil {
		return nil, NewError("get").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	defer rows.Close()

	var steps []routing.Step
	for rows.Next() {
		var area string
		if err := rows.Scan(&area); err != nil {
			return nil, NewError("get").Backend(r.Name()).Model(modelID).Context("scan step").Cause(err).Err()
		}
		steps = append(steps, routing.Step{AreaCode: area, Predecessors: []string{}})
	}
	if err := rows.Err(); err != nil {
		return nil, NewError("get").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	if len(steps) == 0 {
		return nil, RoutingNotFoundError(r.Name(), modelID)
	}

	index := make(map[string]int, len(steps))
	for i, st := range steps {
		index[st.AreaCode] = i
	}

	preds, err := r.pool.Query(ctx, `
		SELECT area_code, predecessor_area FROM routing_predecessors
		WHERE model_id = $1 ORDER BY area_code, predecessor_area
	`, modelID)
	if err != nil {
		return nil, NewError("get").Backend(r.Name()).Model(modelID).Context("predecessors").Cause(err).Err()
	}
	defer preds.Close()

	for preds.Next() {
		var area, pred string
		if err := preds.Scan(&area, &pred); err != nil {
			return nil, NewError("get").Backend(r.Name()).Model(modelID).Context("scan predecessor").Cause(err).Err()
		}
		if i, ok := index[area]; ok {
			steps[i].Predecessors = append(steps[i].Predecessors, pred)
		}
	}
	if err := preds.Err(); err != nil {
		return nil, NewError("get").Backend(r.Name()).Model(modelID).Context("predecessors").Cause(err).Err()
	}

	return steps, nil
}

// Replace swaps the model's rows inside one transaction. Postgres
// enforces the foreign key, so clearing routing_steps cascades to the
// predecessor rows.
func (r *PostgresRepository) Replace(ctx context.Context, modelID string, steps []routing.Step) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM routing_steps WHERE model_id = $1`, modelID); err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Context("clear steps").Cause(err).Err()
	}

	for _, st := range steps {
		if _, err := tx.Exec(ctx, `
			INSERT INTO routing_steps (model_id, area_code) VALUES ($1, $2)
		`, modelID, st.AreaCode); err != nil {
			return NewError("replace").Backend(r.Name()).Model(modelID).Context("insert step").Cause(err).Err()
		}
		for _, pred := range st.Predecessors {
			if _, err := tx.Exec(ctx, `
				INSERT INTO routing_predecessors (model_id, area_code, predecessor_area) VALUES ($1, $2, $3)
			`, modelID, st.AreaCode, pred); err != nil {
				return NewError("replace").Backend(r.Name()).Model(modelID).Context("insert predecessor").Cause(err).Err()
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Context("commit").Cause(err).Err()
	}
	return nil
}

// Delete removes all of the model's rows.
func (r *PostgresRepository) Delete(ctx context.Context, modelID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM routing_steps WHERE model_id = $1`, modelID)
	if err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether the model has any persisted steps.
func (r *PostgresRepository) Exists(ctx context.Context, modelID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM routing_steps WHERE model_id = $1)
	`, modelID).Scan(&exists)
	if err != nil {
		return false, NewError("exists").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	return exists, nil
}

// ListModels returns every model ID with routing, ascending.
func (r *PostgresRepository) ListModels(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT model_id FROM routing_steps ORDER BY model_id
	`)
	if err != nil {
		return nil, NewError("list").Backend(r.Name()).Cause(err).Err()
	}
	defer rows.Close()

	models := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, NewError("list").Backend(r.Name()).Cause(err).Err()
		}
		models = append(models, id)
	}
	if err := rows.Err(); err != nil {
		return nil, NewError("list").Backend(r.Name()).Cause(err).Err()
	}
	return models, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Name identifies the backend.
func (r *PostgresRepository) Name() string {
	return "postgres"
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
