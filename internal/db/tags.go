package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// encodeTags serializes tags for the notes.tags TEXT column. nil becomes "[]".
// Tags must be valid UTF-8; json.Marshal would otherwise rewrite them.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	for _, t := range tags {
		if !utf8.ValidString(t) {
			return "", fmt.Errorf("tag %q is not valid UTF-8", t)
		}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeTags parses a stored tag payload. A NULL or empty column is simply
// "no tags". Anything that is not a JSON array of strings yields no tags and
// ok=false so the caller can flag it.
func decodeTags(raw sql.NullString) (tags []string, ok bool) {
	if !raw.Valid || raw.String == "" {
		return []string{}, true
	}
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return []string{}, false
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, true
}
