package audit

import (
	"sort"
	"time"
)

const dayMs = 86_400_000

// StaleNote is a note that has not been touched for a while
type StaleNote struct {
	NoteID          int64  `json:"note_id"`
	Title           string `json:"title"`
	DaysSinceUpdate int64  `json:"days_since_update"`
}

// StalenessReport contains staleness and tagging coverage results
type StalenessReport struct {
	StaleNotes    []StaleNote `json:"stale_notes"`
	UntaggedNotes []NoteRef   `json:"untagged_notes"`
	StaleCount    int         `json:"stale_count"`
	UntaggedCount int         `json:"untagged_count"`
}

// ComputeStaleness finds notes not updated within staleDays and notes that
// have content but no tags (candidates for tag suggestion). nowMs of zero
// means the current time.
func ComputeStaleness(snap *Snapshot, staleDays int64, nowMs int64) *StalenessReport {
	if nowMs == 0 {
		nowMs = time.Now().UnixMilli()
	}
	staleThresholdMs := staleDays * dayMs

	staleNotes := []StaleNote{}
	untagged := []NoteRef{}
	for _, id := range snap.NoteIDs() {
		note := snap.Notes[id]
		ageMs := nowMs - note.UpdatedAt
		if staleDays > 0 && ageMs > staleThresholdMs {
			staleNotes = append(staleNotes, StaleNote{
				NoteID:          id,
				Title:           note.Title,
				DaysSinceUpdate: ageMs / dayMs,
			})
		}
		if len(note.Tags) == 0 && !note.TagsMalformed && snap.HasContent(id) {
			untagged = append(untagged, NoteRef{NoteID: id, Title: note.Title})
		}
	}
	sort.SliceStable(staleNotes, func(i, j int) bool {
		return staleNotes[i].DaysSinceUpdate > staleNotes[j].DaysSinceUpdate
	})

	return &StalenessReport{
		StaleNotes:    staleNotes,
		UntaggedNotes: untagged,
		StaleCount:    len(staleNotes),
		UntaggedCount: len(untagged),
	}
}
