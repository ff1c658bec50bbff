package db

import (
	"context"
	"database/sql"
)

// Snapshot returns every note with its entries plus every raw entry row,
// including rows whose note no longer exists. Both come from one read
// transaction.
func (d *DB) Snapshot(ctx context.Context) ([]Note, []Entry, error) {
	var notes []Note
	var entries []Entry
	err := d.read(ctx, "snapshot", func(tx *sql.Tx) error {
		var err error
		if notes, err = d.loadNotes(ctx, tx); err != nil {
			return err
		}
		entries, err = allEntries(ctx, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return notes, entries, nil
}

func allEntries(ctx context.Context, q querier) ([]Entry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumnsSQL+` FROM note_entries ORDER BY note_id, order_index, id`)
	if err != nil {
		return nil, storageErr("listing entries", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scanning entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing entries", err)
	}
	return entries, nil
}
