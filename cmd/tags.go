package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/tagging"
)

var tagsStrict bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Set and list note tags",
}

var tagsSetCmd = &cobra.Command{
	Use:   "set <note> [tag]...",
	Short: "Replace a note's tags (no tags clears them)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			tags := args[1:]
			if tagsStrict {
				vocab := vocabulary()
				for _, t := range tags {
					if !vocab.Contains(t) {
						return fmt.Errorf("tag %q is not in the vocabulary: %w", t, db.ErrValidation)
					}
				}
				tags = vocab.Normalize(tags)
			}
			updated, err := d.UpdateNoteTags(ctx, note.ID, tags)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags in use across all notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			notes, err := d.AllNotes(ctx)
			if err != nil {
				return err
			}
			tags := tagging.Available(notes)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), tags)
			}
			for _, t := range tags {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", t, len(tagging.Filter(notes, []string{t})))
			}
			return nil
		})
	},
}

var tagsVocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the tag vocabulary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		labels := vocabulary().Labels()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), labels)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(labels, ", "))
		return nil
	},
}

func init() {
	tagsSetCmd.Flags().BoolVar(&tagsStrict, "strict", false, "Reject tags outside the vocabulary and apply the tag limit")
	tagsCmd.AddCommand(tagsSetCmd, tagsListCmd, tagsVocabCmd)
	rootCmd.AddCommand(tagsCmd)
}

// vocabulary builds the configured tag vocabulary
func vocabulary() *tagging.Vocabulary {
	if cfg == nil {
		return tagging.NewVocabulary(nil, 0)
	}
	return tagging.NewVocabulary(cfg.Tagging.Vocabulary, cfg.Tagging.MaxTags)
}
