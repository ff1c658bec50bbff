package audit

import (
	"context"
	"fmt"

	"inkwell/notes/internal/db"
)

// Renumberer rewrites a note's positions to 0..n-1
type Renumberer interface {
	RenumberEntries(ctx context.Context, noteID int64) (*db.Note, error)
}

// Repair renumbers every note with an ordering violation and returns the
// ids it fixed. It stops at the first failure.
func Repair(ctx context.Context, store Renumberer, report *Report) ([]int64, error) {
	fixed := []int64{}
	if report == nil || report.Integrity == nil {
		return fixed, nil
	}
	for _, v := range report.Integrity.OrderingViolations {
		if _, err := store.RenumberEntries(ctx, v.NoteID); err != nil {
			return fixed, fmt.Errorf("renumbering note %d: %w", v.NoteID, err)
		}
		fixed = append(fixed, v.NoteID)
	}
	return fixed, nil
}
