package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"inkwell/notes/internal/db"
)

var exportOut string

// Export is the document written by the export command
type Export struct {
	ExportedAt time.Time `yaml:"exported_at"`
	Notes      []db.Note `yaml:"notes"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every note and entry as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, d *db.DB) error {
			notes, err := d.AllNotes(ctx)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(Export{ExportedAt: time.Now().UTC(), Notes: notes}); err != nil {
				return fmt.Errorf("encoding export: %w", err)
			}
			if err := enc.Close(); err != nil {
				return fmt.Errorf("encoding export: %w", err)
			}
			logger.Info().Int("notes", len(notes)).Str("out", exportOut).Msg("exported notes")
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
