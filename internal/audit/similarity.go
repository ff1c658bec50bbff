package audit

import (
	"sort"
	"strings"
)

// RelatedNote is a note with its tag similarity to a target note
type RelatedNote struct {
	NoteID     int64    `json:"note_id"`
	Title      string   `json:"title"`
	Similarity float64  `json:"similarity"`
	Shared     []string `json:"shared"`
}

// JaccardSimilarity computes |a∩b| / |a∪b| over case-insensitive tag sets.
// Returns 0.0 when both sets are empty.
func JaccardSimilarity(a, b []string) float64 {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0.0
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// RelatedNotes finds the top-N notes whose tags overlap the target note's.
// Only notes with similarity >= minSimilarity and at least one shared tag are
// returned, sorted by descending similarity then ascending id.
func RelatedNotes(snap *Snapshot, noteID int64, topN int, minSimilarity float64) []RelatedNote {
	target, ok := snap.Notes[noteID]
	if !ok {
		return nil
	}
	targetSet := tagSet(target.Tags)

	results := []RelatedNote{}
	for _, id := range snap.NoteIDs() {
		if id == noteID {
			continue
		}
		n := snap.Notes[id]
		sim := JaccardSimilarity(target.Tags, n.Tags)
		if sim == 0 || sim < minSimilarity {
			continue
		}
		var shared []string
		for t := range tagSet(n.Tags) {
			if targetSet[t] {
				shared = append(shared, t)
			}
		}
		sort.Strings(shared)
		results = append(results, RelatedNote{NoteID: id, Title: n.Title, Similarity: sim, Shared: shared})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}
