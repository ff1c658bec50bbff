package db

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		summary TEXT,
		study_plan TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS note_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL,
		heading TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
	);
`

const orderIndexName = "idx_note_entries_order"

// noteColumns are columns added to notes after the first schema revision.
// Databases created before them are upgraded in place.
var noteColumns = []struct {
	name string
	decl string
}{
	{"summary", "TEXT"},
	{"study_plan", "TEXT"},
	{"tags", "TEXT NOT NULL DEFAULT '[]'"},
}

// migrate creates missing tables, adds missing columns, and installs the
// (note_id, order_index) unique index. Older databases may hold gaps or
// duplicate positions, so entries are ranked into 0..n-1 before the index
// is created.
func migrate(ctx context.Context, conn *sql.DB) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	existing, err := tableColumns(ctx, tx, "notes")
	if err != nil {
		return err
	}
	for _, col := range noteColumns {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE notes ADD COLUMN %s %s", col.name, col.decl)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding notes.%s: %w", col.name, err)
		}
	}

	var hasIndex int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", orderIndexName,
	).Scan(&hasIndex)
	if err != nil {
		return fmt.Errorf("checking order index: %w", err)
	}
	if hasIndex == 0 {
		if _, err := tx.ExecContext(ctx, `
			CREATE TEMP TABLE entry_rank AS
				SELECT id, ROW_NUMBER() OVER (PARTITION BY note_id ORDER BY order_index, id) - 1 AS pos
				FROM note_entries;
			UPDATE note_entries SET order_index = (
				SELECT pos FROM entry_rank WHERE entry_rank.id = note_entries.id
			);
			DROP TABLE entry_rank;
		`); err != nil {
			return fmt.Errorf("normalizing entry order: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON note_entries(note_id, order_index)", orderIndexName,
		)); err != nil {
			return fmt.Errorf("creating order index: %w", err)
		}
	}

	return tx.Commit()
}

// tableColumns returns the set of column names of table
func tableColumns(ctx context.Context, q querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
