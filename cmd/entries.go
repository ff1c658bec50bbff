package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inkwell/notes/internal/db"
)

var (
	entryBody    string
	entryHeading string
	entryRetag   bool
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Add, edit, delete and reorder a note's entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add <note> <heading>",
	Short: "Append an entry to a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			updated, err := d.CreateEntry(ctx, note.ID, args[1], entryBody)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

var entryEditCmd = &cobra.Command{
	Use:   "edit <note> <entry-id>",
	Short: "Change an entry's heading or body",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, entry, err := resolveEntry(ctx, d, args[0], args[1])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("heading") {
				entry.Heading = entryHeading
			}
			if cmd.Flags().Changed("body") {
				entry.Body = entryBody
			}
			updated, err := d.UpdateEntry(ctx, *entry)
			if err != nil {
				return err
			}
			logger.Debug().Int64("note_id", note.ID).Int64("entry_id", entry.ID).Msg("updated entry")
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <note> <entry-id>",
	Short: "Delete an entry and close the gap in positions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			entryID, err := parseID("entry", args[1])
			if err != nil {
				return err
			}
			res, err := d.DeleteEntry(ctx, entryID, note.ID)
			if err != nil {
				return err
			}
			if entryRetag && res.ShouldRegenerateTags {
				svc, err := newEnricher(d)
				if err != nil {
					return err
				}
				retagged, err := svc.RegenerateAfterDelete(ctx, res)
				if err != nil {
					return err
				}
				res.Note = retagged
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printNote(cmd.OutOrStdout(), res.Note)
		})
	},
}

var entryMoveCmd = &cobra.Command{
	Use:   "move <note> <entry-id>...",
	Short: "Reorder entries; list every entry id in the new order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID("entry", a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			updated, err := d.ReorderEntries(ctx, note.ID, ids)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

var entryRenumberCmd = &cobra.Command{
	Use:   "renumber <note>",
	Short: "Rewrite entry positions to 0..n-1 keeping their order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			note, err := ResolveNote(ctx, d, args[0])
			if err != nil {
				return err
			}
			updated, err := d.RenumberEntries(ctx, note.ID)
			if err != nil {
				return err
			}
			return printNote(cmd.OutOrStdout(), updated)
		})
	},
}

func init() {
	entryAddCmd.Flags().StringVar(&entryBody, "body", "", "Entry body")
	entryEditCmd.Flags().StringVar(&entryHeading, "heading", "", "New heading")
	entryEditCmd.Flags().StringVar(&entryBody, "body", "", "New body")
	entryDeleteCmd.Flags().BoolVar(&entryRetag, "retag", false, "Suggest new tags after the deletion")

	entryCmd.AddCommand(entryAddCmd, entryEditCmd, entryDeleteCmd, entryMoveCmd, entryRenumberCmd)
	rootCmd.AddCommand(entryCmd)
}

// resolveEntry finds an entry of a note by id
func resolveEntry(ctx context.Context, d *db.DB, noteRef, entryRef string) (*db.Note, *db.Entry, error) {
	note, err := ResolveNote(ctx, d, noteRef)
	if err != nil {
		return nil, nil, err
	}
	entryID, err := parseID("entry", entryRef)
	if err != nil {
		return nil, nil, err
	}
	entry := note.Entry(entryID)
	if entry == nil {
		return nil, nil, fmt.Errorf("entry %d in note %d: %w", entryID, note.ID, db.ErrNotFound)
	}
	return note, entry, nil
}
