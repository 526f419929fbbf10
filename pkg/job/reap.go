package job

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// reap drains every currently reportable child status change without
// blocking. It runs on each forwarded SIGCHLD; WNOHANG keeps the worker
// from ever stalling on a group that never changes state, and pending
// signal coalescing is harmless because the loop drains everything.
func (w *Worker) reap() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			// ECHILD: no children left; 0: none reportable right now.
			return
		}
		switch {
		case ws.Stopped():
			w.childStopped(pid)
		case ws.Continued():
			// No structural change, the member is simply running again.
			w.tab.setState(pid, Running)
		default:
			code := ws.ExitStatus()
			if ws.Signaled() {
				code = signalBase + int(ws.Signal())
			}
			w.childGone(pid, code)
		}
	}
}

// childStopped marks pid Stopped. Once its whole group has stopped, a
// foreground group hands the terminal back to the shell and a deferred
// reply (from fg or a foreground spawn) is delivered.
func (w *Worker) childStopped(pid int) {
	pgid, ok := w.tab.setState(pid, Stopped)
	if !ok {
		slog.Debug("ignoring stop of untracked process", "pid", pid)
		return
	}
	if !w.tab.allStopped(pgid) {
		return
	}
	if w.fg == pgid {
		w.handBack()
	}
	w.deliverPending(pgid)
}

// childGone removes an exited or killed pid from the tables. The last
// pipeline stage's status becomes the job's exit value; an emptied group
// removes the job, returns the terminal if it was foreground, and releases
// any deferred reply.
func (w *Worker) childGone(pid, code int) {
	pgid, wasLast, groupGone, ok := w.tab.removeProc(pid)
	if !ok {
		slog.Debug("ignoring exit of untracked process", "pid", pid)
		return
	}
	if wasLast {
		w.exitValue = code
	}
	if !groupGone {
		return
	}
	if w.fg == pgid {
		w.handBack()
	}
	w.deliverPending(pgid)
}
