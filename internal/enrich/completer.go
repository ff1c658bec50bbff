package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	stderrLimit = 10 * 1024
	killGrace   = 3 * time.Second
)

// Completer turns a prompt into a completion. Implementations must be safe
// for concurrent use.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CommandCompleter runs an external command per completion. The prompt is
// written to stdin and trimmed stdout is the result.
type CommandCompleter struct {
	Command string
	Args    []string
	Timeout time.Duration
	Env     []string // appended to the filtered process environment
}

// Complete runs the command. On timeout the process gets SIGTERM, then
// SIGKILL after a short grace period.
func (c *CommandCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Command == "" {
		return "", ErrNoCompleter
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killGrace
	cmd.Env = append(filterEnv(os.Environ()), c.Env...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("running %s: %w", c.Command, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with code %d: %s", c.Command, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("running %s: %w", c.Command, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// filterEnv drops variables that make a nested assistant CLI believe it is
// running inside another session.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if strings.HasPrefix(key, "CLAUDE_CODE_") || key == "CLAUDECODE" {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// cappedBuffer keeps the first limit bytes written and discards the rest
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
	}
	_, err := c.buf.Write(toWrite)
	// report the full length so exec does not treat the cap as a short write
	return len(p), err
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
