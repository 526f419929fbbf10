package job

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/pkg/tty"
)

// These tests drive the worker synchronously and reap real child processes
// with Wait4(-1), which consumes any child of the test binary. They must
// not run in parallel with each other.

func newTestWorker() (*Worker, *tty.Nop, chan Reply) {
	replies := make(chan Reply, 1)
	term := tty.NewNop(unix.Getpgrp())
	w := NewWorker(nil, replies,
		WithTerminal(term),
		WithShellPgid(unix.Getpgrp()),
		WithOutput(io.Discard, io.Discard),
	)
	return w, term, replies
}

func recvNow(t *testing.T, replies chan Reply) Reply {
	t.Helper()
	select {
	case r := <-replies:
		return r
	default:
		t.Fatal("expected an immediate reply")
		return Reply{}
	}
}

// recvEventually drains child status changes until the deferred reply for
// the current foreground job arrives.
func recvEventually(t *testing.T, w *Worker, replies chan Reply) Reply {
	t.Helper()
	var got Reply
	require.Eventually(t, func() bool {
		w.reap()
		select {
		case got = <-replies:
			return true
		default:
			return false
		}
	}, 5*time.Second, 5*time.Millisecond)
	return got
}

// cleanupGroup kills a job's process group and reaps until the worker's
// tables are empty, so no test leaks children into the next.
func cleanupGroup(t *testing.T, w *Worker, replies chan Reply, pgid int) {
	t.Helper()
	t.Cleanup(func() {
		_ = unix.Kill(-pgid, unix.SIGKILL)
		_ = unix.Kill(-pgid, unix.SIGCONT)
		require.Eventually(t, func() bool {
			w.reap()
			select {
			case <-replies:
			default:
			}
			return len(w.tab.jobs) == 0
		}, 5*time.Second, 5*time.Millisecond)
	})
}

func TestWorkerParseError(t *testing.T) {
	w, _, replies := newTestWorker()
	w.command("|cmd")
	r := recvNow(t, replies)
	require.Equal(t, Reply{Code: 1}, r)
	require.Empty(t, w.tab.jobs, "a parse error must not touch job state")
}

func TestWorkerExit(t *testing.T) {
	w, _, replies := newTestWorker()

	w.command("exit 7")
	require.Equal(t, Reply{Quit: true, Code: 7}, recvNow(t, replies))

	w.command("exit nope")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies))

	// Without an argument the previous exit status is used.
	w.command("exit")
	require.Equal(t, Reply{Quit: true, Code: 1}, recvNow(t, replies))
}

func TestWorkerExitRefusedWhileJobTracked(t *testing.T) {
	w, _, replies := newTestWorker()
	w.command("sleep 10 &")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	pgid := w.tab.jobs[1].pgid
	cleanupGroup(t, w, replies, pgid)

	w.command("exit")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies), "exit must refuse while a job is tracked")
}

func TestWorkerBackgroundStopForegroundScenario(t *testing.T) {
	w, term, replies := newTestWorker()
	shellPgid := unix.Getpgrp()

	w.command("sleep 50 &")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	require.Equal(t, []int{1}, w.tab.jobIDs())
	pgid := w.tab.jobs[1].pgid
	cleanupGroup(t, w, replies, pgid)
	require.Equal(t, Running, w.tab.jobState(pgid))

	// Stop the group; reconciliation marks the job Stopped.
	require.NoError(t, unix.Kill(-pgid, unix.SIGSTOP))
	require.Eventually(t, func() bool {
		w.reap()
		return w.tab.jobState(pgid) == Stopped
	}, 5*time.Second, 5*time.Millisecond)

	// fg transfers the terminal, resumes the group and defers the reply.
	w.command("fg 1")
	require.Equal(t, pgid, w.pending)
	require.Equal(t, pgid, w.fg)
	require.Equal(t, []int{pgid}, term.History)

	require.Eventually(t, func() bool {
		w.reap()
		return w.tab.jobState(pgid) == Running
	}, 5*time.Second, 5*time.Millisecond)

	// When the job dies the terminal returns to the shell, the deferred
	// reply carries the 128+signal status and the job table is empty.
	require.NoError(t, unix.Kill(-pgid, unix.SIGTERM))
	r := recvEventually(t, w, replies)
	require.Equal(t, Reply{Code: signalBase + int(unix.SIGTERM)}, r)
	require.Empty(t, w.tab.jobs)
	require.Equal(t, 0, w.fg)
	fgPgid, err := term.Foreground()
	require.NoError(t, err)
	require.Equal(t, shellPgid, fgPgid)
}

func TestWorkerForegroundRunningJob(t *testing.T) {
	w, term, replies := newTestWorker()

	w.command("sleep 50 &")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	pgid := w.tab.jobs[1].pgid
	cleanupGroup(t, w, replies, pgid)

	// fg of a job that never stopped: same path, SIGCONT is a no-op.
	w.command("fg 1")
	require.Equal(t, pgid, w.pending)
	require.Equal(t, []int{pgid}, term.History)

	require.NoError(t, unix.Kill(-pgid, unix.SIGTERM))
	r := recvEventually(t, w, replies)
	require.Equal(t, Reply{Code: signalBase + int(unix.SIGTERM)}, r)
	require.Empty(t, w.tab.jobs)
}

func TestWorkerForegroundUsageErrors(t *testing.T) {
	w, _, replies := newTestWorker()

	w.command("fg")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies))

	w.command("fg one")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies))

	w.command("fg 4")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies), "unknown job id must not block")
}

func TestWorkerPipelineReportsLastStageStatus(t *testing.T) {
	w, _, replies := newTestWorker()

	w.command("false | true")
	require.NotZero(t, w.pending, "foreground pipeline defers its reply")
	require.Equal(t, w.fg, w.pending)
	require.Equal(t, Reply{Code: 0}, recvEventually(t, w, replies))
	require.Empty(t, w.tab.jobs)

	w.command("true | false")
	require.Equal(t, Reply{Code: 1}, recvEventually(t, w, replies))
}

func TestWorkerPipelineSharesOneGroup(t *testing.T) {
	w, _, replies := newTestWorker()

	w.command("sleep 50 | sleep 50 &")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	pgid := w.tab.jobs[1].pgid
	cleanupGroup(t, w, replies, pgid)

	g := w.tab.groups[pgid]
	require.Len(t, g.members, 2)
	for pid := range g.members {
		got, err := unix.Getpgid(pid)
		require.NoError(t, err)
		require.Equal(t, pgid, got)
	}
}

func TestWorkerExecFailure(t *testing.T) {
	w, _, replies := newTestWorker()

	// No stage starts: no job is created and the reply is immediate.
	w.command("no-such-program-gosh-test")
	require.Equal(t, Reply{Code: ExitExecFailure}, recvNow(t, replies))
	require.Empty(t, w.tab.jobs)

	// The surviving stage still runs; the dead last stage pins the status.
	w.command("true | no-such-program-gosh-test")
	require.Equal(t, Reply{Code: ExitExecFailure}, recvEventually(t, w, replies))
	require.Empty(t, w.tab.jobs)

	// A dead first stage leaves the last stage's status in charge.
	w.command("no-such-program-gosh-test | true")
	require.Equal(t, Reply{Code: 0}, recvEventually(t, w, replies))
	require.Empty(t, w.tab.jobs)
}

func TestWorkerJobsListing(t *testing.T) {
	out := &bytes.Buffer{}
	replies := make(chan Reply, 1)
	term := tty.NewNop(unix.Getpgrp())
	w := NewWorker(nil, replies,
		WithTerminal(term),
		WithShellPgid(unix.Getpgrp()),
		WithOutput(out, io.Discard),
	)

	w.command("sleep 50 &")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	pgid := w.tab.jobs[1].pgid
	cleanupGroup(t, w, replies, pgid)

	w.command("jobs")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	require.Contains(t, out.String(), "[1]")
	require.Contains(t, out.String(), "Running")
	require.Contains(t, out.String(), "sleep 50")

	require.NoError(t, unix.Kill(-pgid, unix.SIGSTOP))
	require.Eventually(t, func() bool {
		w.reap()
		return w.tab.jobState(pgid) == Stopped
	}, 5*time.Second, 5*time.Millisecond)

	out.Reset()
	w.command("jobs")
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	require.Contains(t, out.String(), "Stopped")
}

func TestWorkerCd(t *testing.T) {
	w, _, replies := newTestWorker()
	orig, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(orig)) }()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	w.command("cd " + dir)
	require.Equal(t, Reply{Code: 0}, recvNow(t, replies))
	got, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, dir, got)

	w.command("cd /no/such/directory")
	require.Equal(t, Reply{Code: 1}, recvNow(t, replies))
}

func TestWorkerIgnoresInterruptAndStopSignals(t *testing.T) {
	w, _, replies := newTestWorker()
	w.signal(unix.SIGINT)
	w.signal(unix.SIGTSTP)
	select {
	case r := <-replies:
		t.Fatalf("unexpected reply %+v", r)
	default:
	}
	require.Equal(t, 0, w.fg)
}
