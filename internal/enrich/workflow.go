package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	gateMaxChars = 350
	gateMinChars = 50
)

// Enhancement is the outcome of the entry enhancement workflow. When the
// analysis fails the gate only Analysis is set.
type Enhancement struct {
	Passed   bool   `json:"passed"`
	Analysis string `json:"analysis"`
	Facts    string `json:"facts,omitempty"`
	Guide    string `json:"guide,omitempty"`
	Result   string `json:"result,omitempty"`
}

// PassesGate reports whether an analysis is usable: at most 350 chars, more
// than 50, and mentioning any title or heading word longer than one char.
func PassesGate(analysis, noteTitle, heading string) bool {
	n := utf8.RuneCountInString(analysis)
	if n > gateMaxChars || n <= gateMinChars {
		return false
	}
	lower := strings.ToLower(analysis)
	for _, w := range append(strings.Fields(noteTitle), strings.Fields(heading)...) {
		w = strings.ToLower(w)
		if utf8.RuneCountInString(w) > 1 && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// EnhanceEntry explains an entry heading in the context of its note. The
// analysis is gated; facts and a learning guide are then generated
// concurrently and combined.
func (s *Service) EnhanceEntry(ctx context.Context, noteTitle, heading string) (*Enhancement, error) {
	analysis, err := s.completer.Complete(ctx, analyzePrompt(noteTitle, heading))
	if err != nil {
		return nil, fmt.Errorf("analyzing %q: %w", heading, err)
	}

	out := &Enhancement{Analysis: analysis}
	if !PassesGate(analysis, noteTitle, heading) {
		s.log.Info().Str("heading", heading).Int("chars", utf8.RuneCountInString(analysis)).Msg("enhancement gate failed")
		return out, nil
	}
	out.Passed = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		facts, err := s.completer.Complete(gctx, factsPrompt(noteTitle, heading))
		if err != nil {
			return fmt.Errorf("facts for %q: %w", heading, err)
		}
		out.Facts = facts
		return nil
	})
	g.Go(func() error {
		guide, err := s.completer.Complete(gctx, guidePrompt(noteTitle, heading))
		if err != nil {
			return fmt.Errorf("learning guide for %q: %w", heading, err)
		}
		out.Guide = guide
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Result = out.Analysis + "\n\n" + out.Facts + "\n\n" + out.Guide
	s.log.Info().Str("heading", heading).Msg("enhancement gate passed")
	return out, nil
}

func analyzePrompt(title, heading string) string {
	return fmt.Sprintf("Given the note title %q and the entry heading %q, describe briefly what %q "+
		"means in the context of %q. Use at most 300 characters.", title, heading, heading, title)
}

func factsPrompt(title, heading string) string {
	return fmt.Sprintf("Give exactly three interesting facts about %q in relation to %q, "+
		"each as a bullet starting with \"•\".", heading, title)
}

func guidePrompt(title, heading string) string {
	return fmt.Sprintf("In one paragraph of at most 400 characters, explain how to start learning "+
		"about %q in the context of %q. Keep it practical.", heading, title)
}
