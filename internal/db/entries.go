package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const entryColumnsSQL = `id, note_id, heading, COALESCE(body, ''), order_index, created_at, updated_at`

const insertEntrySQL = `
	INSERT INTO note_entries (note_id, heading, body, order_index, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// scanEntry scans a row into an Entry. The row must have the columns of
// entryColumnsSQL in order.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var e Entry
	err := scanner.Scan(&e.ID, &e.NoteID, &e.Heading, &e.Body, &e.OrderIndex, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// loadEntries returns a note's entries in order_index order
func loadEntries(ctx context.Context, q querier, noteID int64) ([]Entry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumnsSQL+` FROM note_entries WHERE note_id = ? ORDER BY order_index, id`, noteID)
	if err != nil {
		return nil, storageErr("loading entries", err)
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
		return nil, storageErr("loading entries", err)
	}
	return entries, nil
}

// orderedEntryIDs returns a note's entry ids in current display order
func orderedEntryIDs(ctx context.Context, q querier, noteID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM note_entries WHERE note_id = ? ORDER BY order_index, id`, noteID)
	if err != nil {
		return nil, storageErr("listing entry ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scanning entry id", err)
		}
		ids = append(ids, id)
	}
	return ids, storageErr("listing entry ids", rows.Err())
}

// applyOrder sets order_index = i for ids[i]. Positions are first moved to
// negative values so the (note_id, order_index) unique index never sees a
// transient duplicate.
func applyOrder(ctx context.Context, tx *sql.Tx, noteID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE note_entries SET order_index = -1 - order_index WHERE note_id = ?`, noteID,
	); err != nil {
		return storageErr("parking entry positions", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE note_entries SET order_index = ? WHERE id = ? AND note_id = ?`)
	if err != nil {
		return storageErr("preparing reorder", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id, noteID); err != nil {
			return storageErr("reordering entry", err)
		}
	}
	return nil
}

// CreateEntry appends an entry after the note's last entry (or at 0 when
// the note has none), bumps the note's updated_at, and returns the note.
func (d *DB) CreateEntry(ctx context.Context, noteID int64, heading, body string) (*Note, error) {
	heading = strings.TrimSpace(heading)
	if heading == "" {
		return nil, invalid("heading cannot be empty")
	}

	var note *Note
	err := d.write(ctx, "creating entry", func(tx *sql.Tx) error {
		ok, err := noteExists(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("note", noteID)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(order_index), -1) + 1 FROM note_entries WHERE note_id = ?`, noteID,
		).Scan(&next); err != nil {
			return storageErr("computing next position", err)
		}

		now := d.now()
		if _, err := tx.ExecContext(ctx, insertEntrySQL, noteID, heading, body, next, now, now); err != nil {
			return storageErr("inserting entry", err)
		}
		if err := touchNote(ctx, tx, noteID, now); err != nil {
			return err
		}

		note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	return note, err
}

// UpdateEntry overwrites an entry's heading and body, bumps the entry and
// its note, and returns the note. order_index is never changed here.
func (d *DB) UpdateEntry(ctx context.Context, entry Entry) (*Note, error) {
	heading := strings.TrimSpace(entry.Heading)
	if heading == "" {
		return nil, invalid("heading cannot be empty")
	}

	var note *Note
	err := d.write(ctx, "updating entry", func(tx *sql.Tx) error {
		var noteID int64
		err := tx.QueryRowContext(ctx, `SELECT note_id FROM note_entries WHERE id = ?`, entry.ID).Scan(&noteID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("entry", entry.ID)
		}
		if err != nil {
			return storageErr("looking up entry", err)
		}
		if entry.NoteID != 0 && entry.NoteID != noteID {
			return invalid("entry %d belongs to note %d, not %d", entry.ID, noteID, entry.NoteID)
		}

		now := d.now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE note_entries SET heading = ?, body = ?, updated_at = ? WHERE id = ?`,
			heading, entry.Body, now, entry.ID,
		); err != nil {
			return storageErr("updating entry", err)
		}
		if err := touchNote(ctx, tx, noteID, now); err != nil {
			return err
		}

		note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	return note, err
}

// DeleteEntry deletes an entry, renumbers the remaining siblings to close
// the gap, and returns the note with a hint that tags should be regenerated.
// An entry id that is not part of the note leaves it untouched.
func (d *DB) DeleteEntry(ctx context.Context, entryID, noteID int64) (*DeleteEntryResult, error) {
	result := &DeleteEntryResult{}
	err := d.write(ctx, "deleting entry", func(tx *sql.Tx) error {
		ok, err := noteExists(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("note", noteID)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM note_entries WHERE id = ? AND note_id = ?`, entryID, noteID)
		if err != nil {
			return storageErr("deleting entry", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return storageErr("deleting entry", err)
		}

		if deleted > 0 {
			ids, err := orderedEntryIDs(ctx, tx, noteID)
			if err != nil {
				return err
			}
			if err := applyOrder(ctx, tx, noteID, ids); err != nil {
				return err
			}
			if err := touchNote(ctx, tx, noteID, d.now()); err != nil {
				return err
			}
			result.ShouldRegenerateTags = true
		}

		result.Note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReorderEntries sets order_index = i for entryIDs[i]. entryIDs must be
// exactly the note's current entry ids; the whole reorder is one transaction.
func (d *DB) ReorderEntries(ctx context.Context, noteID int64, entryIDs []int64) (*Note, error) {
	var note *Note
	err := d.write(ctx, "reordering entries", func(tx *sql.Tx) error {
		ok, err := noteExists(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("note", noteID)
		}

		current, err := orderedEntryIDs(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if err := checkPermutation(current, entryIDs); err != nil {
			return err
		}

		if err := applyOrder(ctx, tx, noteID, entryIDs); err != nil {
			return err
		}
		if err := touchNote(ctx, tx, noteID, d.now()); err != nil {
			return err
		}

		note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	return note, err
}

// RenumberEntries rewrites a note's positions to 0..n-1 keeping the current
// relative order. Used to repair notes whose ordering was damaged outside
// the store.
func (d *DB) RenumberEntries(ctx context.Context, noteID int64) (*Note, error) {
	var note *Note
	err := d.write(ctx, "renumbering entries", func(tx *sql.Tx) error {
		ok, err := noteExists(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("note", noteID)
		}

		ids, err := orderedEntryIDs(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if err := applyOrder(ctx, tx, noteID, ids); err != nil {
			return err
		}
		if err := touchNote(ctx, tx, noteID, d.now()); err != nil {
			return err
		}

		note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	return note, err
}

// checkPermutation verifies that got holds exactly the ids in want
func checkPermutation(want, got []int64) error {
	if len(got) != len(want) {
		return invalid("reorder lists %d entries, note has %d", len(got), len(want))
	}
	members := make(map[int64]bool, len(want))
	for _, id := range want {
		members[id] = true
	}
	seen := make(map[int64]bool, len(got))
	for _, id := range got {
		if !members[id] {
			return invalid("entry %d does not belong to the note", id)
		}
		if seen[id] {
			return invalid("entry %d listed twice", id)
		}
		seen[id] = true
	}
	return nil
}
