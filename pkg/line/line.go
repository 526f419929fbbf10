// Package line implements the shell's line reader with file-backed history.
//
// It is intentionally plain: one completed, whitespace-trimmed line per Read
// call. Editing niceties live below the read loop and never touch job state.
package line

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Editor reads command lines and keeps session history.
type Editor struct {
	in      *bufio.Reader
	out     io.Writer
	file    string
	limit   int
	history []string
}

// Option is a functional option for the Editor.
type Option func(*Editor)

// WithHistoryFile sets the history file loaded at startup and rewritten by
// Save. An empty path disables persistence.
func WithHistoryFile(path string) Option {
	return func(e *Editor) { e.file = path }
}

// WithHistoryLimit caps the number of history entries kept and saved.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.limit = n }
}

// NewEditor creates an Editor reading from in and writing prompts to out.
func NewEditor(in io.Reader, out io.Writer, opts ...Option) *Editor {
	e := &Editor{in: bufio.NewReader(in), out: out, limit: 500}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Read prints the prompt and returns the next line, trimmed of surrounding
// whitespace. It returns io.EOF at end of input; a blank line is returned as
// the empty string and is the caller's to skip.
func (e *Editor) Read(prompt string) (string, error) {
	fmt.Fprint(e.out, prompt)
	text, err := e.in.ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Append records one entered line in session history. Consecutive duplicates
// are kept once, matching common readline behavior.
func (e *Editor) Append(line string) {
	if line == "" {
		return
	}
	if n := len(e.history); n > 0 && e.history[n-1] == line {
		return
	}
	e.history = append(e.history, line)
	if e.limit > 0 && len(e.history) > e.limit {
		e.history = e.history[len(e.history)-e.limit:]
	}
}

// History returns the current history, oldest first.
func (e *Editor) History() []string {
	return e.history
}

// Load reads the history file. A missing or unreadable file is not an error
// worth stopping the shell for; the caller logs and continues.
func (e *Editor) Load() error {
	if e.file == "" {
		return nil
	}
	b, err := os.ReadFile(e.file)
	if err != nil {
		return fmt.Errorf("cannot load history %q: %w", e.file, err)
	}
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			e.history = append(e.history, l)
		}
	}
	if e.limit > 0 && len(e.history) > e.limit {
		e.history = e.history[len(e.history)-e.limit:]
	}
	return nil
}

// Save rewrites the history file with the session's history, oldest first.
func (e *Editor) Save() error {
	if e.file == "" {
		return nil
	}
	content := strings.Join(e.history, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(e.file, []byte(content), 0o600); err != nil {
		return fmt.Errorf("cannot save history %q: %w", e.file, err)
	}
	return nil
}

// LoadLogged is Load with the non-fatal outcome applied: failures are logged
// and swallowed so startup continues.
func (e *Editor) LoadLogged() {
	if err := e.Load(); err != nil {
		slog.Warn("history not loaded", "err", err)
	}
}

// SaveLogged is Save with the non-fatal outcome applied.
func (e *Editor) SaveLogged() {
	if err := e.Save(); err != nil {
		slog.Error("history not saved", "err", err)
	}
}
