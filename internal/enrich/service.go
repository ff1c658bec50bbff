package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/tagging"
)

var (
	// ErrNoContent is returned when a note has no entry text to work from
	ErrNoContent = errors.New("note has no content")
	// ErrNoCompleter is returned when no completion command is configured
	ErrNoCompleter = errors.New("no completer configured")
)

// Store is the subset of the note store enrichment reads from and writes to
type Store interface {
	GetNote(ctx context.Context, id int64) (*db.Note, error)
	UpdateNote(ctx context.Context, note db.Note) ([]db.Note, error)
	UpdateNoteTags(ctx context.Context, noteID int64, tags []string) (*db.Note, error)
}

// Service derives tags, summaries, study plans and entry enhancements from
// note content and writes them back through the store.
type Service struct {
	store     Store
	completer Completer
	vocab     *tagging.Vocabulary
	log       zerolog.Logger
}

// NewService wires a service. A nil vocabulary means the default one.
func NewService(store Store, completer Completer, vocab *tagging.Vocabulary, log zerolog.Logger) *Service {
	if vocab == nil {
		vocab = tagging.NewVocabulary(nil, 0)
	}
	return &Service{store: store, completer: completer, vocab: vocab, log: log}
}

// Content renders a note's entries as "**heading**\nbody" blocks. Returns ""
// when the note has no entries or only blank text.
func Content(note *db.Note) string {
	if note == nil || len(note.Entries) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(note.Entries))
	for _, e := range note.Entries {
		block := "**" + e.Heading + "**\n"
		if strings.TrimSpace(e.Body) != "" {
			block += e.Body + "\n"
		}
		blocks = append(blocks, block)
	}
	content := strings.Join(blocks, "\n")
	if strings.TrimSpace(content) == "" {
		return ""
	}
	return content
}

func (s *Service) loadNote(ctx context.Context, noteID int64) (*db.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("note %d: %w", noteID, db.ErrNotFound)
	}
	return note, nil
}

// SuggestTags asks the completer for labels from the vocabulary and stores
// the normalized result. Notes without content get empty tags without a
// completion call.
func (s *Service) SuggestTags(ctx context.Context, noteID int64) (*db.Note, error) {
	note, err := s.loadNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	content := Content(note)
	tags := []string{}
	if content != "" {
		text, err := s.completer.Complete(ctx, tagPrompt(note.Title, content, s.vocab))
		if err != nil {
			return nil, fmt.Errorf("suggesting tags for note %d: %w", noteID, err)
		}
		tags = s.vocab.Normalize(tagging.ParseList(text))
	}

	s.log.Debug().Int64("note_id", noteID).Strs("tags", tags).Msg("suggested tags")
	return s.store.UpdateNoteTags(ctx, noteID, tags)
}

// RegenerateAfterDelete re-derives tags when a deletion reported that the
// note's content changed.
func (s *Service) RegenerateAfterDelete(ctx context.Context, res *db.DeleteEntryResult) (*db.Note, error) {
	if res == nil || res.Note == nil {
		return nil, nil
	}
	if !res.ShouldRegenerateTags {
		return res.Note, nil
	}
	return s.SuggestTags(ctx, res.Note.ID)
}

// Summarize stores a structured summary of the note's entries
func (s *Service) Summarize(ctx context.Context, noteID int64) (*db.Note, error) {
	return s.writeBack(ctx, noteID, "summary", summaryPrompt, func(n *db.Note, text string) {
		n.Summary = &text
	})
}

// StudyPlan stores a study plan derived from the note's entries
func (s *Service) StudyPlan(ctx context.Context, noteID int64) (*db.Note, error) {
	return s.writeBack(ctx, noteID, "study plan", studyPlanPrompt, func(n *db.Note, text string) {
		n.StudyPlan = &text
	})
}

func (s *Service) writeBack(ctx context.Context, noteID int64, what string,
	prompt func(title, content string) string, apply func(*db.Note, string)) (*db.Note, error) {
	note, err := s.loadNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	content := Content(note)
	if content == "" {
		return nil, fmt.Errorf("%s for note %d: %w", what, noteID, ErrNoContent)
	}

	text, err := s.completer.Complete(ctx, prompt(note.Title, content))
	if err != nil {
		return nil, fmt.Errorf("%s for note %d: %w", what, noteID, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%s for note %d: empty completion", what, noteID)
	}

	apply(note, text)
	if _, err := s.store.UpdateNote(ctx, *note); err != nil {
		return nil, err
	}
	s.log.Debug().Int64("note_id", noteID).Int("chars", len(text)).Msgf("stored %s", what)
	return s.loadNote(ctx, noteID)
}

func tagPrompt(title, content string, vocab *tagging.Vocabulary) string {
	return fmt.Sprintf("Suggest 1-%d tags for this note, chosen only from: %s.\n"+
		"Reply with the tag names separated by commas and nothing else.\n\n"+
		"Title: %q\n\n%s", vocab.MaxTags, strings.Join(vocab.Labels(), ", "), title, content)
}

func summaryPrompt(title, content string) string {
	return fmt.Sprintf("Summarize the note %q. Give one bullet per entry heading with "+
		"sub-bullets for its key points.\n\n%s", title, content)
}

func studyPlanPrompt(title, content string) string {
	return fmt.Sprintf("Write a step-by-step study plan for the topics in the note %q.\n\n%s", title, content)
}
