package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/tagging"
)

var (
	listTags        []string
	updateTitle     string
	updateSummary   string
	updateStudyPlan string
	clearSummary    bool
	clearStudyPlan  bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Create, list, show, update and delete notes",
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			notes, err := d.AllNotes(ctx)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), tagging.Filter(notes, listTags))
		})
	},
}

var noteCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a note with one default entry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			notes, err := d.CreateNote(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			// ids are autoincrement, so the new note has the highest
			created := notes[0]
			for _, n := range notes {
				if n.ID > created.ID {
					created = n
				}
			}
			logger.Info().Int64("note_id", created.ID).Str("title", created.Title).Msg("created note")
			return printNote(cmd.OutOrStdout(), &created)
		})
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <note>",
	Short: "Show a note and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), note)
		})
	},
}

var noteUpdateCmd = &cobra.Command{
	Use:   "update <note>",
	Short: "Change a note's title, summary or study plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				note.Title = updateTitle
			}
			if flags.Changed("summary") {
				note.Summary = &updateSummary
			}
			if flags.Changed("study-plan") {
				note.StudyPlan = &updateStudyPlan
			}
			if clearSummary {
				note.Summary = nil
			}
			if clearStudyPlan {
				note.StudyPlan = nil
			}
			if _, err := d.UpdateNote(ctx, *note); err != nil {
				return err
			}
			updated, err := d.GetNote(ctx, note.ID)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <note>",
	Short: "Delete a note and all of its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			notes, err := d.DeleteNote(ctx, note.ID)
			if err != nil {
				return err
			}
			logger.Info().Int64("note_id", note.ID).Msg("deleted note")
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), notes)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %d (%s). %d notes remain.\n", note.ID, note.Title, len(notes))
			return nil
		})
	},
}

func init() {
	noteListCmd.Flags().StringSliceVar(&listTags, "tag", nil, "Only notes carrying all of these tags")
	noteUpdateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	noteUpdateCmd.Flags().StringVar(&updateSummary, "summary", "", "New summary")
	noteUpdateCmd.Flags().StringVar(&updateStudyPlan, "study-plan", "", "New study plan")
	noteUpdateCmd.Flags().BoolVar(&clearSummary, "clear-summary", false, "Remove the summary")
	noteUpdateCmd.Flags().BoolVar(&clearStudyPlan, "clear-study-plan", false, "Remove the study plan")

	noteCmd.AddCommand(noteListCmd, noteCreateCmd, noteShowCmd, noteUpdateCmd, noteDeleteCmd)
	rootCmd.AddCommand(noteCmd)
}

func printNotes(w io.Writer, notes []db.Note) error {
	if jsonOutput {
		return printJSON(w, notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return nil
	}
	for _, n := range notes {
		tags := ""
		if len(n.Tags) > 0 {
			tags = "  [" + strings.Join(n.Tags, ", ") + "]"
		}
		fmt.Fprintf(w, "%5d  %-40s %2d entries  %s%s\n",
			n.ID, truncTitle(n.Title, 40), len(n.Entries), formatMillis(n.UpdatedAt), tags)
	}
	return nil
}

func printNote(w io.Writer, n *db.Note) error {
	if jsonOutput {
		return printJSON(w, n)
	}
	fmt.Fprintf(w, "\n  %s  (note %d)\n", n.Title, n.ID)
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "  Tags: %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Fprintf(w, "  Created %s, updated %s\n", formatMillis(n.CreatedAt), formatMillis(n.UpdatedAt))
	if n.Summary != nil {
		fmt.Fprintf(w, "\n  Summary:\n%s\n", indent(*n.Summary))
	}
	if n.StudyPlan != nil {
		fmt.Fprintf(w, "\n  Study plan:\n%s\n", indent(*n.StudyPlan))
	}
	fmt.Fprintln(w)
	for _, e := range n.Entries {
		fmt.Fprintf(w, "  %d. %s  (entry %d)\n", e.OrderIndex+1, e.Heading, e.ID)
		if e.Body != "" {
			fmt.Fprintln(w, indent(e.Body))
		}
	}
	fmt.Fprintln(w)
	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "     " + l
	}
	return strings.Join(lines, "\n")
}
