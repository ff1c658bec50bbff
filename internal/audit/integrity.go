package audit

import "sort"

// OrderingViolation describes a note whose positions are not exactly 0..n-1
type OrderingViolation struct {
	NoteID     int64  `json:"note_id"`
	Title      string `json:"title"`
	Positions  []int  `json:"positions"`
	Duplicates []int  `json:"duplicates,omitempty"`
	Missing    []int  `json:"missing,omitempty"`
}

// EntryRef points at a single entry
type EntryRef struct {
	EntryID int64  `json:"entry_id"`
	NoteID  int64  `json:"note_id"`
	Heading string `json:"heading"`
}

// NoteRef points at a single note
type NoteRef struct {
	NoteID int64  `json:"note_id"`
	Title  string `json:"title"`
}

// IntegrityReport contains structural problems found in the store
type IntegrityReport struct {
	OrderingViolations []OrderingViolation `json:"ordering_violations"`
	OrphanEntries      []EntryRef          `json:"orphan_entries"`
	MalformedTags      []NoteRef           `json:"malformed_tags"`
	NewerThanParent    []EntryRef          `json:"newer_than_parent"`
}

// Problems returns the total number of problems found
func (r *IntegrityReport) Problems() int {
	return len(r.OrderingViolations) + len(r.OrphanEntries) + len(r.MalformedTags) + len(r.NewerThanParent)
}

// ComputeIntegrity checks ordering contiguity, orphaned entries, undecodable
// tag payloads and entries updated after their note.
func ComputeIntegrity(snap *Snapshot) *IntegrityReport {
	report := &IntegrityReport{
		OrderingViolations: []OrderingViolation{},
		OrphanEntries:      []EntryRef{},
		MalformedTags:      []NoteRef{},
		NewerThanParent:    []EntryRef{},
	}

	for _, id := range snap.NoteIDs() {
		note := snap.Notes[id]
		entries := snap.ByNote[id]

		if v, ok := checkOrdering(entries); !ok {
			v.NoteID = id
			v.Title = note.Title
			report.OrderingViolations = append(report.OrderingViolations, v)
		}
		if note.TagsMalformed {
			report.MalformedTags = append(report.MalformedTags, NoteRef{NoteID: id, Title: note.Title})
		}
		for _, e := range entries {
			if e.UpdatedAt > note.UpdatedAt {
				report.NewerThanParent = append(report.NewerThanParent, ref(e))
			}
		}
	}

	for _, e := range snap.Orphans {
		report.OrphanEntries = append(report.OrphanEntries, ref(e))
	}
	sort.Slice(report.OrphanEntries, func(i, j int) bool {
		return report.OrphanEntries[i].EntryID < report.OrphanEntries[j].EntryID
	})

	return report
}

// checkOrdering reports whether sorted entries occupy exactly 0..n-1
func checkOrdering(entries []EntryInfo) (OrderingViolation, bool) {
	var v OrderingViolation
	seen := make(map[int]int, len(entries))
	ok := true
	for _, e := range entries {
		v.Positions = append(v.Positions, e.OrderIndex)
		seen[e.OrderIndex]++
		if seen[e.OrderIndex] == 2 {
			v.Duplicates = append(v.Duplicates, e.OrderIndex)
			ok = false
		}
		if e.OrderIndex < 0 || e.OrderIndex >= len(entries) {
			ok = false
		}
	}
	for i := range entries {
		if seen[i] == 0 {
			v.Missing = append(v.Missing, i)
			ok = false
		}
	}
	return v, ok
}

func ref(e EntryInfo) EntryRef {
	return EntryRef{EntryID: e.ID, NoteID: e.NoteID, Heading: e.Heading}
}
