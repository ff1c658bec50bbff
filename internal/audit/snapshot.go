package audit

import "sort"

// NoteInfo is a lightweight note representation decoupled from DB types
type NoteInfo struct {
	ID            int64
	Title         string
	Tags          []string
	TagsMalformed bool
	CreatedAt     int64
	UpdatedAt     int64
}

// EntryInfo is a lightweight entry representation
type EntryInfo struct {
	ID         int64
	NoteID     int64
	Heading    string
	Body       string
	OrderIndex int
	UpdatedAt  int64
}

// Snapshot holds notes and entry rows with entries precomputed per note.
// Entries whose note is missing are kept apart as orphans.
type Snapshot struct {
	Notes   map[int64]*NoteInfo
	Entries []EntryInfo
	ByNote  map[int64][]EntryInfo // note id -> entries sorted by order_index, id
	Orphans []EntryInfo
}

// NewSnapshot builds a Snapshot from raw notes and entries
func NewSnapshot(notes []*NoteInfo, entries []EntryInfo) *Snapshot {
	noteMap := make(map[int64]*NoteInfo, len(notes))
	byNote := make(map[int64][]EntryInfo, len(notes))
	for _, n := range notes {
		noteMap[n.ID] = n
		byNote[n.ID] = nil // ensure entry exists
	}

	var orphans []EntryInfo
	for _, e := range entries {
		if _, ok := noteMap[e.NoteID]; !ok {
			orphans = append(orphans, e)
			continue
		}
		byNote[e.NoteID] = append(byNote[e.NoteID], e)
	}
	for id := range byNote {
		es := byNote[id]
		sort.Slice(es, func(i, j int) bool {
			if es[i].OrderIndex != es[j].OrderIndex {
				return es[i].OrderIndex < es[j].OrderIndex
			}
			return es[i].ID < es[j].ID
		})
	}

	return &Snapshot{
		Notes:   noteMap,
		Entries: entries,
		ByNote:  byNote,
		Orphans: orphans,
	}
}

// NoteIDs returns a sorted list of all note IDs (for deterministic output)
func (s *Snapshot) NoteIDs() []int64 {
	ids := make([]int64, 0, len(s.Notes))
	for id := range s.Notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasContent reports whether any entry of the note has a heading or body
func (s *Snapshot) HasContent(noteID int64) bool {
	for _, e := range s.ByNote[noteID] {
		if e.Heading != "" || e.Body != "" {
			return true
		}
	}
	return false
}
