package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// SQLiteRepository persists routings in a single SQLite file, the
// default durable backend for one-box deployments. WAL mode keeps
// readers unblocked while a replace transaction runs.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path, creating it and the
// schema if needed.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	r := &SQLiteRepository{db: db}

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return r, nil
}

// migrate creates the routing tables if they don't exist.
func (r *SQLiteRepository) migrate() error {
	// One row per area plus one row per predecessor edge. Reading all
	// rows for a model reconstructs exactly the last accepted step set;
	// areas with no predecessors exist only in routing_steps.
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

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create routing tables: %w", err)
	}

	return nil
}

// Get reconstructs the model's step set from its persisted rows.
func (r *SQLiteRepository) Get(ctx context.Context, modelID string) ([]routing.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT area_code FROM routing_steps
		WHERE model_id = ? ORDER BY area_code
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

	preds, err := r.db.QueryContext(ctx, `
		SELECT area_code, predecessor_area FROM routing_predecessors
		WHERE model_id = ? ORDER BY area_code, predecessor_area
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

// Replace swaps the model's rows inside one transaction so a failure
// mid-write leaves the previous routing intact.
func (r *SQLiteRepository) Replace(ctx context.Context, modelID string, steps []routing.Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	defer tx.Rollback()

	// Delete from both tables explicitly rather than trusting the
	// CASCADE, which only fires on connections with foreign_keys on.
	if _, err := tx.ExecContext(ctx, `DELETE FROM routing_predecessors WHERE model_id = ?`, modelID); err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Context("clear predecessors").Cause(err).Err()
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM routing_steps WHERE model_id = ?`, modelID); err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Context("clear steps").Cause(err).Err()
	}

	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO routing_steps (model_id, area_code) VALUES (?, ?)
		`, modelID, st.AreaCode); err != nil {
			return NewError("replace").Backend(r.Name()).Model(modelID).Context("insert step").Cause(err).Err()
		}
		for _, pred := range st.Predecessors {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO routing_predecessors (model_id, area_code, predecessor_area) VALUES (?, ?, ?)
			`, modelID, st.AreaCode, pred); err != nil {
				return NewError("replace").Backend(r.Name()).Model(modelID).Context("insert predecessor").Cause(err).Err()
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return NewError("replace").Backend(r.Name()).Model(modelID).Context("commit").Cause(err).Err()
	}
	return nil
}

// Delete removes all of the model's rows in one transaction.
func (r *SQLiteRepository) Delete(ctx context.Context, modelID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM routing_predecessors WHERE model_id = ?`, modelID); err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Context("clear predecessors").Cause(err).Err()
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM routing_steps WHERE model_id = ?`, modelID)
	if err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Context("clear steps").Cause(err).Err()
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}

	if err := tx.Commit(); err != nil {
		return false, NewError("delete").Backend(r.Name()).Model(modelID).Context("commit").Cause(err).Err()
	}
	return affected > 0, nil
}

// Exists reports whether the model has any persisted steps.
func (r *SQLiteRepository) Exists(ctx context.Context, modelID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM routing_steps WHERE model_id = ?
	`, modelID).Scan(&n)
	if err != nil {
		return false, NewError("exists").Backend(r.Name()).Model(modelID).Cause(err).Err()
	}
	return n > 0, nil
}

// ListModels returns every model ID with routing, ascending.
func (r *SQLiteRepository) ListModels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
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

// Name identifies the backend.
func (r *SQLiteRepository) Name() string {
	return "sqlite"
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
