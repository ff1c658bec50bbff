package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inkwell/notes/internal/config"
	"inkwell/notes/internal/db"
	"inkwell/notes/internal/logging"
)

const (
	dbEnv      = "INKWELL_DB"
	dbFileName = ".inkwell.db"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "inkwell",
	Short:         "Notes with ordered entries, stored in SQLite",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logger.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, logCloser, err = logging.New().
			FromPath(cfg.Logger.File).
			Level(level).
			JSON(cfg.Logger.Format == "json").
			Make()
		return err
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command tree and always releases the log file sink,
// including when the command fails.
func execute(ctx context.Context) error {
	defer closeLog()
	return rootCmd.ExecuteContext(ctx)
}

// closeLog closes the log file sink, if any
func closeLog() {
	if logCloser == nil {
		return
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing log file:", err)
	}
	logCloser = nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the notes database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}

// DiscoverDB finds the database path using priority:
// env > flag > config > walk-up > XDG fallback (created on demand)
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv(dbEnv); envPath != "" {
		return envPath, nil
	}

	// 2. CLI flag
	if dbPath != "" {
		return dbPath, nil
	}

	// 3. Config file
	if cfg != nil && cfg.Database.Path != "" {
		return cfg.Database.Path, nil
	}

	// 4. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, dbFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 5. XDG fallback
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no database location (set %s or use --db): %w", dbEnv, err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	dir = filepath.Join(dataDir, "inkwell")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, "inkwell.db"), nil
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", path).Msg("opening database")
	return db.OpenDB(path, db.WithLogger(logger))
}

// ResolveNote finds a note by numeric id or by title: an exact
// case-insensitive match first, then a unique substring match.
func ResolveNote(ctx context.Context, d *db.DB, reference string) (*db.Note, error) {
	// 1. Numeric id
	if id, err := strconv.ParseInt(reference, 10, 64); err == nil {
		note, err := d.GetNote(ctx, id)
		if err != nil {
			return nil, err
		}
		if note != nil {
			return note, nil
		}
	}

	notes, err := d.AllNotes(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Exact title
	ref := strings.ToLower(strings.TrimSpace(reference))
	var matches []db.Note
	for _, n := range notes {
		if strings.ToLower(n.Title) == ref {
			matches = append(matches, n)
		}
	}

	// 3. Title substring
	if len(matches) == 0 {
		for _, n := range notes {
			if strings.Contains(strings.ToLower(n.Title), ref) {
				matches = append(matches, n)
			}
		}
	}

	switch len(matches) {
	case 1:
		return &matches[0], nil
	case 0:
		return nil, fmt.Errorf("note %q: %w", reference, db.ErrNotFound)
	default:
		limit := 10
		if len(matches) < limit {
			limit = len(matches)
		}
		lines := make([]string, limit)
		for i := 0; i < limit; i++ {
			lines[i] = fmt.Sprintf("  %d %s", matches[i].ID, matches[i].Title)
		}
		return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a note id instead.",
			reference, len(matches), strings.Join(lines, "\n"))
	}
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, s, db.ErrValidation)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withDB opens the database for the duration of fn
func withDB(cmd *cobra.Command, fn func(ctx context.Context, d *db.DB) error) error {
	d, err := OpenDatabase()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(cmd.Context(), d)
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
