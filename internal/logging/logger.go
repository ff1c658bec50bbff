package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Build assembles a zerolog.Logger from a writer, an optional log file and
// a level. Zero value writes human-readable output to stderr at info.
type Build struct {
	writer io.Writer
	path   string
	level  string
	json   bool
}

// New starts a logger build
func New() *Build {
	return &Build{}
}

// FromPath appends log lines to the file at path in addition to the writer
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromWriter sets the primary output (stderr when unset)
func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level sets the minimum level by name
func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// JSON switches the primary output from console format to JSON lines
func (b *Build) JSON(on bool) *Build {
	b.json = on
	return b
}

// Make builds the logger. The returned io.Closer closes the log file, if any.
func (b *Build) Make() (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if b.level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(b.level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}

	out := b.writer
	if out == nil {
		out = os.Stderr
	}
	if !b.json {
		// colors only for the default stderr sink
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: b.writer != nil}
	}

	var closer io.Closer = nopCloser{}
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("opening log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, zerolog.SyncWriter(f))
		closer = f
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
