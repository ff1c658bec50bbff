package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/notes/internal/audit"
	"inkwell/notes/internal/db"
)

var (
	checkRepair    bool
	checkStaleDays int64
	checkTopN      int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check store integrity: entry ordering, orphans, tags, staleness, health score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			snap, err := audit.SnapshotFromDB(ctx, d)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}

			config := &audit.Config{StaleDays: checkStaleDays}
			report := audit.Check(snap, config)

			if checkRepair && len(report.Integrity.OrderingViolations) > 0 {
				fixed, err := audit.Repair(ctx, d, report)
				if err != nil {
					return err
				}
				logger.Info().Ints64("note_ids", fixed).Msg("renumbered entries")
				if snap, err = audit.SnapshotFromDB(ctx, d); err != nil {
					return fmt.Errorf("reloading snapshot: %w", err)
				}
				report = audit.Check(snap, config)
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <note>",
	Short: "List notes sharing tags with a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			snap, err := audit.SnapshotFromDB(ctx, d)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}
			related := audit.RelatedNotes(snap, note.ID, checkTopN, 0)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), related)
			}
			w := cmd.OutOrStdout()
			if len(related) == 0 {
				fmt.Fprintf(w, "No notes share tags with %q.\n", note.Title)
				return nil
			}
			for _, r := range related {
				fmt.Fprintf(w, "%5d  %.2f  %-40s [%s]\n", r.NoteID, r.Similarity, truncTitle(r.Title, 40), strings.Join(r.Shared, ", "))
			}
			return nil
		})
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkRepair, "repair", false, "Renumber notes whose entry positions are not contiguous")
	checkCmd.Flags().Int64Var(&checkStaleDays, "stale-days", 90, "Days since update to consider a note stale (0 disables)")
	relatedCmd.Flags().IntVar(&checkTopN, "top-n", 10, "Number of related notes to show")
	rootCmd.AddCommand(checkCmd, relatedCmd)
}

func printReport(w io.Writer, report *audit.Report) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Store Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Fprintf(w, "  breakdown: ordering=%.2f integrity=%.2f staleness=%.2f tagging=%.2f\n",
		report.HealthBreakdown.Ordering,
		report.HealthBreakdown.Integrity,
		report.HealthBreakdown.Staleness,
		report.HealthBreakdown.Tagging)
	fmt.Fprintf(w, "  Notes: %d  Entries: %d\n\n", report.TotalNotes, report.TotalEntries)

	in := report.Integrity
	if in.Problems() > 0 {
		fmt.Fprintln(w, "  INTEGRITY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		for _, v := range in.OrderingViolations {
			fmt.Fprintf(w, "    note %d %s: positions %v", v.NoteID, truncTitle(v.Title, 30), v.Positions)
			if len(v.Duplicates) > 0 {
				fmt.Fprintf(w, " duplicates %v", v.Duplicates)
			}
			if len(v.Missing) > 0 {
				fmt.Fprintf(w, " missing %v", v.Missing)
			}
			fmt.Fprintln(w)
		}
		for _, e := range in.OrphanEntries {
			fmt.Fprintf(w, "    orphan entry %d (note %d gone): %s\n", e.EntryID, e.NoteID, truncTitle(e.Heading, 40))
		}
		for _, n := range in.MalformedTags {
			fmt.Fprintf(w, "    note %d %s: tags payload unreadable\n", n.NoteID, truncTitle(n.Title, 40))
		}
		for _, e := range in.NewerThanParent {
			fmt.Fprintf(w, "    entry %d updated after note %d\n", e.EntryID, e.NoteID)
		}
		if len(in.OrderingViolations) > 0 && !checkRepair {
			fmt.Fprintln(w, "    run with --repair to renumber")
		}
		fmt.Fprintln(w)
	}

	s := report.Staleness
	if s.StaleCount > 0 || s.UntaggedCount > 0 {
		fmt.Fprintln(w, "  STALENESS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		limit := 10
		if len(s.StaleNotes) < limit {
			limit = len(s.StaleNotes)
		}
		for _, n := range s.StaleNotes[:limit] {
			fmt.Fprintf(w, "    note %d %dd old  %s\n", n.NoteID, n.DaysSinceUpdate, truncTitle(n.Title, 40))
		}
		if s.StaleCount > limit {
			fmt.Fprintf(w, "    ... and %d more\n", s.StaleCount-limit)
		}
		if s.UntaggedCount > 0 {
			fmt.Fprintf(w, "  %d notes with content but no tags (try `inkwell enrich tags`)\n", s.UntaggedCount)
		}
		fmt.Fprintln(w)
	}
}
