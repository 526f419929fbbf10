// Package shell wires the three actors of the shell together: the
// controller loop reading command lines, the signal relay, and the job
// worker owning all job-control state.
//
// The controller and worker rendezvous on every command over an unbuffered
// reply channel, so at most one command line is in flight at a time.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/pkg/config"
	"github.com/gosh-shell/gosh/pkg/job"
	"github.com/gosh-shell/gosh/pkg/line"
	"github.com/gosh-shell/gosh/pkg/tty"
)

// Shell is the user-facing interactive session.
type Shell struct {
	cfg    config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	term   tty.Terminal
}

// Option is a functional option for the Shell.
type Option func(*Shell)

// WithIO replaces the shell's standard streams, mainly for tests.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(s *Shell) { s.in = in; s.out = out; s.errOut = errOut }
}

// WithTerminal replaces the controlling terminal, mainly for tests.
func WithTerminal(t tty.Terminal) Option {
	return func(s *Shell) { s.term = t }
}

// New creates a Shell. When stdin is not a terminal, foreground hand-overs
// become no-ops so the shell still works under pipes and in tests.
func New(cfg config.Config, opts ...Option) *Shell {
	s := &Shell{cfg: cfg, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	if tty.Stdin.IsTerminal() {
		s.term = tty.Stdin
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the interactive session and returns the shell's exit code.
// An error is returned only for startup failures before the loop begins;
// everything after that is reported to the user and survived.
func (s *Shell) Run() (int, error) {
	if s.term == nil {
		s.term = tty.NewNop(unix.Getpgrp())
	}
	// The shell's own group is whatever owns the terminal at startup; it is
	// restored on every exit path so the terminal never stays attached to a
	// dead group.
	shellPgid, err := s.term.Foreground()
	if err != nil {
		return 1, fmt.Errorf("cannot initialize terminal control: %w", err)
	}
	restore, err := tty.SessionGuard(s.term)
	if err != nil {
		return 1, fmt.Errorf("cannot initialize terminal control: %w", err)
	}
	defer restore()

	requests := make(chan job.Request, 32)
	replies := make(chan job.Reply) // unbuffered: the command rendezvous
	stop := relaySignals(requests)
	defer stop()

	worker := job.NewWorker(requests, replies,
		job.WithTerminal(s.term),
		job.WithShellPgid(shellPgid),
		job.WithOutput(s.out, s.errOut),
	)
	go worker.Run()

	editor := line.NewEditor(s.in, s.out,
		line.WithHistoryFile(s.cfg.HistoryFile),
		line.WithHistoryLimit(s.cfg.HistoryLimit),
	)
	editor.LoadLogged()
	defer editor.SaveLogged()

	prev := 0
	sawEOF := false
	for {
		text, err := editor.Read(s.prompt(prev))
		switch {
		case errors.Is(err, io.EOF):
			if sawEOF {
				// The implicit exit was refused once already; a second EOF
				// must not spin on a closed input.
				return prev, nil
			}
			sawEOF = true
			fmt.Fprintln(s.out)
			text = "exit"
		case err != nil:
			return 1, fmt.Errorf("cannot read command line: %w", err)
		case text == "":
			continue
		default:
			sawEOF = false
			editor.Append(text)
		}

		requests <- job.Command{Line: text}
		reply := <-replies
		if reply.Quit {
			return reply.Code, nil
		}
		prev = reply.Code
	}
}

// prompt renders the prompt with a marker for the previous exit status.
func (s *Shell) prompt(prev int) string {
	face := "🙂"
	if prev != 0 {
		face = "💀"
	}
	return fmt.Sprintf("%s %s %%> ", s.cfg.Prompt, face)
}
