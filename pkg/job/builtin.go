package job

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/pkg/parse"
)

// builtin runs s if it names a built-in command and reports whether it did.
// Built-ins never take part in pipelines; the caller only consults this for
// single-stage lines.
func (w *Worker) builtin(s parse.Stage) bool {
	switch s.Name {
	case "exit":
		w.runExit(s.Args)
	case "jobs":
		w.runJobs()
	case "fg":
		w.runFg(s.Args)
	case "cd":
		w.runCd(s.Args)
	default:
		return false
	}
	return true
}

// runExit quits the shell with the given or last exit code. It refuses to
// quit while any job is still tracked.
func (w *Worker) runExit(args []string) {
	if len(w.tab.jobs) > 0 {
		fmt.Fprintln(w.errOut, "gosh: cannot exit: job running")
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	code := w.exitValue
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(w.errOut, "gosh: exit: %q is not a valid exit code\n", args[0])
			w.exitValue = 1
			w.reply(Reply{Code: w.exitValue})
			return
		}
		code = n
	}
	w.reply(Reply{Quit: true, Code: code})
}

// runJobs lists all tracked jobs in ascending job-id order.
func (w *Worker) runJobs() {
	tw := tabwriter.NewWriter(w.out, 0, 8, 2, ' ', 0)
	for _, id := range w.tab.jobIDs() {
		entry := w.tab.jobs[id]
		fmt.Fprintf(tw, "[%d]\t%s\tpgid %d\t%s\n", id, w.tab.jobState(entry.pgid), entry.pgid, entry.line)
	}
	tw.Flush()
	w.reply(Reply{Code: w.exitValue})
}

// runFg moves a job to the foreground, resumes its group and defers the
// reply until the job stops again or finishes. A job that is already
// running takes the same path; the extra SIGCONT is a no-op.
func (w *Worker) runFg(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(w.errOut, "usage: fg <job id>")
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(w.errOut, "gosh: fg: %q is not a job id\n", args[0])
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	entry, err := w.lookupJob(id)
	if err != nil {
		fmt.Fprintf(w.errOut, "gosh: fg: %v\n", err)
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	fmt.Fprintf(w.errOut, "[%d] continue\t%s\n", id, entry.line)
	if err := w.foreground(entry.pgid); err != nil {
		fmt.Fprintf(w.errOut, "gosh: fg: %v\n", err)
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	if err := unix.Kill(-entry.pgid, unix.SIGCONT); err != nil {
		fmt.Fprintf(w.errOut, "gosh: fg: cannot continue job %d: %v\n", id, err)
	}
	w.deferReply(entry.pgid)
}

// runCd changes the shell's working directory, defaulting to $HOME.
func (w *Worker) runCd(args []string) {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(w.errOut, "gosh: cd: %v\n", err)
			w.exitValue = 1
			w.reply(Reply{Code: w.exitValue})
			return
		}
		dir = home
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(w.errOut, "gosh: cd: %v\n", err)
		w.exitValue = 1
		w.reply(Reply{Code: w.exitValue})
		return
	}
	w.exitValue = 0
	w.reply(Reply{Code: w.exitValue})
}
