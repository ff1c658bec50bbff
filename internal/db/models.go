package db

// DefaultEntryHeading is the heading of the entry every new note starts with.
const DefaultEntryHeading = "New Entry"

// Note represents a row in the notes table plus its ordered entries
type Note struct {
	ID            int64    `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Summary       *string  `json:"summary" yaml:"summary,omitempty"`
	StudyPlan     *string  `json:"study_plan" yaml:"study_plan,omitempty"`
	Tags          []string `json:"tags" yaml:"tags"`
	TagsMalformed bool     `json:"tags_malformed,omitempty" yaml:"-"` // stored payload could not be decoded
	CreatedAt     int64    `json:"created_at" yaml:"created_at"`      // Unix millis
	UpdatedAt     int64    `json:"updated_at" yaml:"updated_at"`      // Unix millis
	Entries       []Entry  `json:"entries" yaml:"entries"`
}

// Entry represents a row in the note_entries table
type Entry struct {
	ID         int64  `json:"id" yaml:"id"`
	NoteID     int64  `json:"note_id" yaml:"note_id"`
	Heading    string `json:"heading" yaml:"heading"`
	Body       string `json:"body" yaml:"body"`
	OrderIndex int    `json:"order_index" yaml:"order_index"`
	CreatedAt  int64  `json:"created_at" yaml:"created_at"` // Unix millis
	UpdatedAt  int64  `json:"updated_at" yaml:"updated_at"` // Unix millis
}

// DeleteEntryResult is returned by DeleteEntry. ShouldRegenerateTags tells
// the tagging collaborator that the note's content changed.
type DeleteEntryResult struct {
	Note                 *Note `json:"note"`
	ShouldRegenerateTags bool  `json:"should_regenerate_tags"`
}

// EntryIDs returns the note's entry ids in display order
func (n *Note) EntryIDs() []int64 {
	ids := make([]int64, len(n.Entries))
	for i, e := range n.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Entry returns the entry with the given id, or nil
func (n *Note) Entry(id int64) *Entry {
	for i := range n.Entries {
		if n.Entries[i].ID == id {
			return &n.Entries[i]
		}
	}
	return nil
}
