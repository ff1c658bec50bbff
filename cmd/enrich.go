package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/enrich"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Derive tags, summaries, study plans and entry explanations with the configured completion command",
}

var enrichTagsCmd = &cobra.Command{
	Use:   "tags <note>",
	Short: "Suggest tags from the vocabulary and store them",
	Args:  cobra.ExactArgs(1),
	RunE:  enrichNote((*enrich.Service).SuggestTags),
}

var enrichSummaryCmd = &cobra.Command{
	Use:   "summary <note>",
	Short: "Generate and store a summary",
	Args:  cobra.ExactArgs(1),
	RunE:  enrichNote((*enrich.Service).Summarize),
}

var enrichStudyPlanCmd = &cobra.Command{
	Use:   "study-plan <note>",
	Short: "Generate and store a study plan",
	Args:  cobra.ExactArgs(1),
	RunE:  enrichNote((*enrich.Service).StudyPlan),
}

var enrichEntryCmd = &cobra.Command{
	Use:   "entry <note> <entry-id>",
	Short: "Explain an entry heading in the context of its note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, entry, err := resolveEntry(ctx, d, args[0], args[1])
			if err != nil {
				return err
			}
			svc, err := newEnricher(d)
			if err != nil {
				return err
			}
			out, err := svc.EnhanceEntry(ctx, note.Title, entry.Heading)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			if !out.Passed {
				fmt.Fprintln(cmd.OutOrStdout(), "The analysis did not meet the quality criteria. Try a more specific title or heading.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Result)
			return nil
		})
	},
}

func init() {
	enrichCmd.AddCommand(enrichTagsCmd, enrichSummaryCmd, enrichStudyPlanCmd, enrichEntryCmd)
	rootCmd.AddCommand(enrichCmd)
}

func enrichNote(op func(*enrich.Service, context.Context, int64) (*db.Note, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			svc, err := newEnricher(d)
			if err != nil {
				return err
			}
			updated, err := op(svc, ctx, note.ID)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	}
}

// newEnricher builds the enrichment service from the enrich config section
func newEnricher(d *db.DB) (*enrich.Service, error) {
	if cfg == nil || cfg.Enrich.Command == "" {
		return nil, fmt.Errorf("set enrich.command in the config file: %w", enrich.ErrNoCompleter)
	}
	completer := &enrich.CommandCompleter{
		Command: cfg.Enrich.Command,
		Args:    cfg.Enrich.Args,
		Timeout: time.Duration(cfg.Enrich.Timeout) * time.Second,
	}
	return enrich.NewService(d, completer, vocabulary(), logger), nil
}
