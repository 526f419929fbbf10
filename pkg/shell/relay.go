package shell

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/pkg/job"
)

// relaySignals subscribes to the shell's signal set and forwards each
// occurrence to the worker as a message. No shell logic lives here: the
// delivery path must stay minimal, and all decisions belong to the worker.
//
// SIGTTOU and SIGTTIN are ignored outright so that writing to, or taking,
// the terminal from the background can never stop the shell; SIGQUIT is
// neutralized like SIGINT and SIGTSTP, whose forwarded occurrences the
// worker deliberately drops when no foreground job exists.
func relaySignals(requests chan<- job.Request) (stop func()) {
	signal.Ignore(unix.SIGTTOU, unix.SIGTTIN, unix.SIGQUIT)
	sigCh := make(chan os.Signal, 32)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTSTP, unix.SIGCHLD)
	go func() {
		for sig := range sigCh {
			requests <- job.Signal{Sig: sig}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
