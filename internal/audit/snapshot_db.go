package audit

import (
	"context"

	"inkwell/notes/internal/db"
)

// SnapshotFromDB loads a Snapshot from the database
func SnapshotFromDB(ctx context.Context, d *db.DB) (*Snapshot, error) {
	dbNotes, dbEntries, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	notes := make([]*NoteInfo, 0, len(dbNotes))
	for _, n := range dbNotes {
		notes = append(notes, &NoteInfo{
			ID:            n.ID,
			Title:         n.Title,
			Tags:          append([]string(nil), n.Tags...),
			TagsMalformed: n.TagsMalformed,
			CreatedAt:     n.CreatedAt,
			UpdatedAt:     n.UpdatedAt,
		})
	}

	entries := make([]EntryInfo, 0, len(dbEntries))
	for _, e := range dbEntries {
		entries = append(entries, EntryInfo{
			ID:         e.ID,
			NoteID:     e.NoteID,
			Heading:    e.Heading,
			Body:       e.Body,
			OrderIndex: e.OrderIndex,
			UpdatedAt:  e.UpdatedAt,
		})
	}

	return NewSnapshot(notes, entries), nil
}
