package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const noteColumnsSQL = `id, title, summary, study_plan, tags, created_at, updated_at`

// scanNote scans a row into a Note. The row must have the columns of
// noteColumnsSQL in order. Malformed tags are flagged and logged, never fatal.
func (d *DB) scanNote(scanner interface{ Scan(dest ...any) error }) (Note, error) {
	var (
		n    Note
		tags sql.NullString
	)
	err := scanner.Scan(&n.ID, &n.Title, &n.Summary, &n.StudyPlan, &tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return n, err
	}

	var ok bool
	n.Tags, ok = decodeTags(tags)
	if !ok {
		n.TagsMalformed = true
		d.log.Warn().
			Int64("note_id", n.ID).
			Str("payload", tags.String).
			Msg("malformed tag payload, treating as no tags")
	}
	n.Entries = []Entry{}
	return n, nil
}

// loadNotes returns every note ordered by created_at descending with its
// entries in order_index order. Entries are fetched with one query and
// grouped in memory.
func (d *DB) loadNotes(ctx context.Context, q querier) ([]Note, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+noteColumnsSQL+` FROM notes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("listing notes", err)
	}
	defer rows.Close()

	notes := []Note{}
	index := make(map[int64]int)
	for rows.Next() {
		n, err := d.scanNote(rows)
		if err != nil {
			return nil, storageErr("scanning note", err)
		}
		index[n.ID] = len(notes)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing notes", err)
	}
	if len(notes) == 0 {
		return notes, nil
	}

	entries, err := q.QueryContext(ctx,
		`SELECT `+entryColumnsSQL+` FROM note_entries ORDER BY note_id, order_index, id`)
	if err != nil {
		return nil, storageErr("listing entries", err)
	}
	defer entries.Close()

	for entries.Next() {
		e, err := scanEntry(entries)
		if err != nil {
			return nil, storageErr("scanning entry", err)
		}
		if i, ok := index[e.NoteID]; ok {
			notes[i].Entries = append(notes[i].Entries, e)
		}
	}
	if err := entries.Err(); err != nil {
		return nil, storageErr("listing entries", err)
	}
	return notes, nil
}

// loadNote returns a single note with its entries, or nil if not found
func (d *DB) loadNote(ctx context.Context, q querier, id int64) (*Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumnsSQL+` FROM notes WHERE id = ?`, id)
	n, err := d.scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("loading note", err)
	}

	n.Entries, err = loadEntries(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// mustLoadNote is loadNote for callers that already proved the note exists
// inside the same transaction.
func (d *DB) mustLoadNote(ctx context.Context, q querier, id int64) (*Note, error) {
	n, err := d.loadNote(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notFound("note", id)
	}
	return n, nil
}

func noteExists(ctx context.Context, q querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("looking up note", err)
	}
	return true, nil
}

// touchNote bumps a note's updated_at. MAX keeps it from moving backwards,
// so a note is never older than any of its entries.
func touchNote(ctx context.Context, tx *sql.Tx, id, now int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE notes SET updated_at = MAX(updated_at, ?) WHERE id = ?`, now, id)
	return storageErr("touching note", err)
}

// AllNotes returns every note ordered by created_at descending, each with
// its entries in order.
func (d *DB) AllNotes(ctx context.Context) ([]Note, error) {
	var notes []Note
	err := d.read(ctx, "listing notes", func(tx *sql.Tx) error {
		var err error
		notes, err = d.loadNotes(ctx, tx)
		return err
	})
	return notes, err
}

// GetNote returns a single note with its entries, or nil if not found
func (d *DB) GetNote(ctx context.Context, id int64) (*Note, error) {
	var note *Note
	err := d.read(ctx, "loading note", func(tx *sql.Tx) error {
		var err error
		note, err = d.loadNote(ctx, tx, id)
		return err
	})
	return note, err
}

// CreateNote inserts a note with one default entry and returns all notes.
func (d *DB) CreateNote(ctx context.Context, title string) ([]Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title cannot be empty")
	}

	var notes []Note
	err := d.write(ctx, "creating note", func(tx *sql.Tx) error {
		now := d.now()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO notes (title, tags, created_at, updated_at) VALUES (?, '[]', ?, ?)`,
			title, now, now,
		)
		if err != nil {
			return storageErr("inserting note", err)
		}
		noteID, err := res.LastInsertId()
		if err != nil {
			return storageErr("reading note id", err)
		}

		if _, err := tx.ExecContext(ctx, insertEntrySQL,
			noteID, DefaultEntryHeading, "", 0, now, now,
		); err != nil {
			return storageErr("inserting default entry", err)
		}

		notes, err = d.loadNotes(ctx, tx)
		return err
	})
	return notes, err
}

// UpdateNote overwrites title, summary, study plan and tags of an existing
// note and returns all notes. Entries are untouched. Unlike the soft reads,
// a missing id is reported as ErrNotFound.
func (d *DB) UpdateNote(ctx context.Context, note Note) ([]Note, error) {
	title := strings.TrimSpace(note.Title)
	if title == "" {
		return nil, invalid("title cannot be empty")
	}
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return nil, invalid("encoding tags: %v", err)
	}

	var notes []Note
	err = d.write(ctx, "updating note", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE notes SET title = ?, summary = ?, study_plan = ?, tags = ?, updated_at = MAX(updated_at, ?)
			WHERE id = ?
		`, title, note.Summary, note.StudyPlan, tags, d.now(), note.ID)
		if err != nil {
			return storageErr("updating note", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return storageErr("updating note", err)
		} else if n == 0 {
			return notFound("note", note.ID)
		}

		notes, err = d.loadNotes(ctx, tx)
		return err
	})
	return notes, err
}

// DeleteNote deletes a note and all of its entries and returns the
// remaining notes. Deleting a missing note is a no-op.
func (d *DB) DeleteNote(ctx context.Context, id int64) ([]Note, error) {
	var notes []Note
	err := d.write(ctx, "deleting note", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM note_entries WHERE note_id = ?`, id); err != nil {
			return storageErr("deleting note entries", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return storageErr("deleting note", err)
		}

		var err error
		notes, err = d.loadNotes(ctx, tx)
		return err
	})
	return notes, err
}

// UpdateNoteTags replaces a note's tags wholesale and returns the note.
func (d *DB) UpdateNoteTags(ctx context.Context, noteID int64, tags []string) (*Note, error) {
	payload, err := encodeTags(tags)
	if err != nil {
		return nil, invalid("encoding tags: %v", err)
	}

	var note *Note
	err = d.write(ctx, "updating tags", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE notes SET tags = ?, updated_at = MAX(updated_at, ?) WHERE id = ?`,
			payload, d.now(), noteID,
		)
		if err != nil {
			return storageErr("updating tags", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return storageErr("updating tags", err)
		} else if n == 0 {
			return notFound("note", noteID)
		}

		note, err = d.mustLoadNote(ctx, tx, noteID)
		return err
	})
	return note, err
}
