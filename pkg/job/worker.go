// Package job implements the shell's job-control core: a single-goroutine
// worker that owns the job, process-group and process tables, spawns
// pipelines, runs built-ins and reconciles child state changes.
//
// All state is owned by the worker goroutine; other actors only exchange
// messages with it, so no locking is needed.
package job

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/pkg/parse"
	"github.com/gosh-shell/gosh/pkg/tty"
)

// Worker is the job-control actor. It consumes Requests one at a time,
// strictly serialized, and sends at most one Reply per submitted command.
type Worker struct {
	requests <-chan Request
	replies  chan<- Reply

	term      tty.Terminal
	out       io.Writer
	errOut    io.Writer
	shellPgid int

	exitValue int // last command's exit status
	fg        int // pgid owning the terminal, 0 when the shell does
	pending   int // pgid a deferred reply is waiting on, 0 when none
	tab       tables
}

// Option is a functional option for the Worker.
type Option func(*Worker)

// WithTerminal sets the terminal used for foreground hand-overs.
func WithTerminal(t tty.Terminal) Option {
	return func(w *Worker) { w.term = t }
}

// WithOutput redirects the worker's user-visible output, mainly for tests.
func WithOutput(out, errOut io.Writer) Option {
	return func(w *Worker) { w.out = out; w.errOut = errOut }
}

// WithShellPgid sets the shell's own process group, the group the terminal
// is handed back to whenever no foreground job exists.
func WithShellPgid(pgid int) Option {
	return func(w *Worker) { w.shellPgid = pgid }
}

// NewWorker creates a Worker consuming requests and replying on replies.
// The replies channel must be unbuffered to preserve the one-command-in-
// flight rendezvous with the controller.
func NewWorker(requests <-chan Request, replies chan<- Reply, opts ...Option) *Worker {
	w := &Worker{
		requests:  requests,
		replies:   replies,
		out:       os.Stdout,
		errOut:    os.Stderr,
		shellPgid: unix.Getpgrp(),
		tab:       newTables(),
	}
	w.term = tty.NewNop(w.shellPgid)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run is the worker's dispatch loop. It returns when the request channel
// is closed.
func (w *Worker) Run() {
	for msg := range w.requests {
		switch m := msg.(type) {
		case Command:
			w.command(m.Line)
		case Signal:
			w.signal(m.Sig)
		}
	}
}

// signal handles one forwarded signal. Only SIGCHLD carries work: SIGINT
// and SIGTSTP are routed by the kernel to the foreground group directly,
// and the shell itself must not stop or die on them.
func (w *Worker) signal(sig os.Signal) {
	if sig == unix.SIGCHLD {
		w.reap()
	}
}

// command parses and dispatches one submitted line.
func (w *Worker) command(line string) {
	pipeline, err := parse.Split(line)
	if err != nil {
		fmt.Fprintf(w.errOut, "gosh: %v\n", err)
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	// Built-ins are recognized only as the sole stage of a pipeline; a
	// built-in name inside a longer pipeline runs as an external command.
	if len(pipeline.Stages) == 1 && w.builtin(pipeline.Stages[0]) {
		return
	}
	if err := w.spawn(line, pipeline); err != nil {
		fmt.Fprintf(w.errOut, "gosh: %v\n", err)
		w.exitValue = ExitExecFailure
		w.reply(Reply{Code: w.exitValue})
	}
}

func (w *Worker) reply(r Reply) {
	w.replies <- r
}

// deferReply holds the reply until the given foreground group stops or
// finishes. The worker keeps draining signal messages in the meantime; this
// is a marker, not a blocking wait.
func (w *Worker) deferReply(pgid int) {
	w.pending = pgid
}

// deliverPending sends the deferred reply for pgid, if one is waiting.
func (w *Worker) deliverPending(pgid int) {
	if w.pending != pgid {
		return
	}
	w.pending = 0
	w.reply(Reply{Code: w.exitValue})
}

// handBack returns terminal ownership to the shell and clears the
// foreground reference.
func (w *Worker) handBack() {
	if err := w.term.SetForeground(w.shellPgid); err != nil {
		slog.Error("cannot return terminal to shell", "pgid", w.shellPgid, "err", err)
	}
	w.fg = 0
}

// foreground makes pgid the foreground group and records it.
func (w *Worker) foreground(pgid int) error {
	if err := w.term.SetForeground(pgid); err != nil {
		return fmt.Errorf("cannot move job to foreground: %w", err)
	}
	w.fg = pgid
	return nil
}

// lookupJob resolves a job id to its entry.
func (w *Worker) lookupJob(id int) (jobEntry, error) {
	entry, ok := w.tab.jobs[id]
	if !ok {
		return jobEntry{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	return entry, nil
}
