package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Repository persists the full rule set. The set is always read and written
// in full: load-all before evaluation, save-all (atomic replace) after
// mutation. Concurrency discipline is caller-serialized.
type Repository interface {
	LoadAll(ctx context.Context) ([]Rule, error)
	SaveAll(ctx context.Context, rules []Rule) error
	Close() error
}

// SQLiteRepository stores rules in a local SQLite database. Conditions and
// actions are stored as JSON columns; a position column preserves rule order.
type SQLiteRepository struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS filter_rules (
	id            TEXT PRIMARY KEY,
	position      INTEGER NOT NULL,
	name          TEXT NOT NULL UNIQUE,
	enabled       INTEGER NOT NULL DEFAULT 1,
	conditions    TEXT NOT NULL,
	actions       TEXT NOT NULL,
	times_applied INTEGER NOT NULL DEFAULT 0,
	last_applied  TIMESTAMP,
	created_at    TIMESTAMP NOT NULL
);`

// NewSQLiteRepository opens (or creates) the rule database at dbPath,
// enables WAL mode, and creates the schema if missing.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type ruleRow struct {
	ID           string       `db:"id"`
	Position     int          `db:"position"`
	Name         string       `db:"name"`
	Enabled      bool         `db:"enabled"`
	Conditions   string       `db:"conditions"`
	Actions      string       `db:"actions"`
	TimesApplied int          `db:"times_applied"`
	LastApplied  sql.NullTime `db:"last_applied"`
	CreatedAt    time.Time    `db:"created_at"`
}

// LoadAll reads the full rule set in stored order.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]Rule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT id, position, name, enabled, conditions, actions, times_applied, last_applied, created_at FROM filter_rules ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		rule := Rule{
			ID:           row.ID,
			Name:         row.Name,
			Enabled:      row.Enabled,
			TimesApplied: row.TimesApplied,
			CreatedAt:    row.CreatedAt,
		}
		if row.LastApplied.Valid {
			t := row.LastApplied.Time
			rule.LastApplied = &t
		}
		if err := json.Unmarshal([]byte(row.Conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decoding conditions of rule %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.Actions), &rule.Actions); err != nil {
			return nil, fmt.Errorf("decoding actions of rule %s: %w", row.ID, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// SaveAll replaces the stored rule set with the given one in a single
// transaction, preserving slice order as the stored order.
func (r *SQLiteRepository) SaveAll(ctx context.Context, rules []Rule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM filter_rules"); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}

	for i, rule := range rules {
		conditions, err := json.Marshal(rule.Conditions)
		if err != nil {
			return fmt.Errorf("encoding conditions of rule %s: %w", rule.ID, err)
		}
		actions, err := json.Marshal(rule.Actions)
		if err != nil {
			return fmt.Errorf("encoding actions of rule %s: %w", rule.ID, err)
		}

		var lastApplied interface{}
		if rule.LastApplied != nil {
			lastApplied = *rule.LastApplied
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO filter_rules (
				id, position, name, enabled, conditions, actions,
				times_applied, last_applied, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.ID, i, rule.Name, rule.Enabled, string(conditions), string(actions),
			rule.TimesApplied, lastApplied, rule.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving rule %s: %w", rule.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}
