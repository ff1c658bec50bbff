package tagging

import (
	"sort"
	"strings"

	"inkwell/notes/internal/db"
)

// DefaultMaxTags caps how many labels a note keeps after normalization
const DefaultMaxTags = 3

// DefaultVocabulary is the agreed-upon label set suggested tags must come from
var DefaultVocabulary = []string{
	"productivity", "learning", "work", "recreation", "personal", "business",
	"education", "health", "fitness", "technology", "programming", "research",
	"creative", "writing", "planning", "goals", "ideas", "meeting", "project",
	"finance", "travel", "cooking", "hobbies", "family", "friends", "movies",
	"books", "music", "sports", "gaming", "shopping", "home", "garden",
	"science", "art", "design", "marketing", "sales", "strategy", "analysis",
	"documentation", "tutorial", "reference", "inspiration", "motivation",
	"thoughts", "reflection", "journal", "diary", "reminders",
}

// Vocabulary validates labels against a fixed set
type Vocabulary struct {
	labels  []string
	members map[string]bool
	MaxTags int
}

// NewVocabulary builds a vocabulary from labels (DefaultVocabulary when
// empty). maxTags <= 0 means DefaultMaxTags.
func NewVocabulary(labels []string, maxTags int) *Vocabulary {
	if len(labels) == 0 {
		labels = DefaultVocabulary
	}
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}
	v := &Vocabulary{members: make(map[string]bool, len(labels)), MaxTags: maxTags}
	for _, l := range labels {
		l = canonical(l)
		if l == "" || v.members[l] {
			continue
		}
		v.members[l] = true
		v.labels = append(v.labels, l)
	}
	return v
}

// Labels returns the vocabulary in its declared order
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

// Contains reports whether label (in any case) is in the vocabulary
func (v *Vocabulary) Contains(label string) bool {
	return v.members[canonical(label)]
}

// Normalize lowercases and trims raw labels, drops anything outside the
// vocabulary and duplicates, and keeps at most MaxTags in their original order.
func (v *Vocabulary) Normalize(raw []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, r := range raw {
		l := canonical(r)
		if l == "" || seen[l] || !v.members[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
		if len(out) == v.MaxTags {
			break
		}
	}
	return out
}

// ParseList splits a comma- or newline-separated completion into labels.
// Surrounding quotes, bullets and a trailing period are stripped.
func ParseList(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		f = strings.TrimLeft(f, "-*•# ")
		f = strings.Trim(f, "\"'`.")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func canonical(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Filter returns the notes that carry every selected tag. No selection
// returns all notes.
func Filter(notes []db.Note, selected []string) []db.Note {
	if len(selected) == 0 {
		return notes
	}
	out := []db.Note{}
	for _, n := range notes {
		have := make(map[string]bool, len(n.Tags))
		for _, t := range n.Tags {
			have[canonical(t)] = true
		}
		match := true
		for _, s := range selected {
			if !have[canonical(s)] {
				match = false
				break
			}
		}
		if match {
			out = append(out, n)
		}
	}
	return out
}

// Available returns the sorted set of tags used across notes
func Available(notes []db.Note) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, n := range notes {
		for _, t := range n.Tags {
			l := canonical(t)
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
