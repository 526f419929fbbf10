//go:build unix

// Package tty provides access to the controlling terminal's foreground
// process group.
//
// Terminal ownership is the one resource the shell shares with its children:
// exactly one process group may hold it at a time, and every hand-over must
// eventually be undone. SessionGuard captures the shell's own group at
// startup and restores it on the way out, so no exit path can leave the
// terminal attached to a dead group.
package tty

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal grants and queries foreground ownership of a terminal.
type Terminal interface {
	// Foreground returns the pgid currently owning the terminal.
	Foreground() (int, error)
	// SetForeground hands terminal ownership to the given pgid.
	SetForeground(pgid int) error
}

// FD is a Terminal backed by an open terminal file descriptor, normally
// stdin. All calls retry transparently on EINTR: a signal landing mid-ioctl
// must never surface as an error.
type FD int

// Stdin is the usual terminal for an interactive shell.
const Stdin = FD(0)

// IsTerminal reports whether the descriptor refers to a terminal.
func (fd FD) IsTerminal() bool {
	return term.IsTerminal(int(fd))
}

// Foreground returns the terminal's current foreground pgid.
func (fd FD) Foreground() (int, error) {
	for {
		pgid, err := unix.IoctlGetInt(int(fd), unix.TIOCGPGRP)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("cannot read foreground process group: %w", err)
		}
		return pgid, nil
	}
}

// SetForeground makes pgid the terminal's foreground process group.
func (fd FD) SetForeground(pgid int) error {
	for {
		err := unix.IoctlSetPointerInt(int(fd), unix.TIOCSPGRP, pgid)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("cannot set foreground process group to %d: %w", pgid, err)
		}
		return nil
	}
}

// SessionGuard captures the terminal's current foreground pgid and returns a
// restore func. The restore func is safe to call on every exit path,
// including after the foreground group has died.
func SessionGuard(t Terminal) (func(), error) {
	pgid, err := t.Foreground()
	if err != nil {
		return nil, err
	}
	return func() {
		// The owning group may already be gone; nothing useful to do then.
		_ = t.SetForeground(pgid)
	}, nil
}

// Nop is a Terminal for non-interactive sessions and tests. It records
// hand-overs without touching any device.
type Nop struct {
	pgid int
	// History records every pgid passed to SetForeground, in order.
	History []int
}

// NewNop returns a Nop terminal whose initial foreground group is pgid.
func NewNop(pgid int) *Nop {
	return &Nop{pgid: pgid}
}

func (n *Nop) Foreground() (int, error) { return n.pgid, nil }

func (n *Nop) SetForeground(pgid int) error {
	n.pgid = pgid
	n.History = append(n.History, pgid)
	return nil
}
