package job

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/gosh-shell/gosh/pkg/parse"
)

// spawn starts a pipeline of k stages connected by k-1 pipes, all in one
// process group. The first started stage creates the group; later stages
// join it before exec. A stage that cannot be started is reported with a
// distinguished status and the surviving stages still run.
//
// A foreground pipeline takes terminal ownership and defers the reply
// until the group stops or finishes; a background pipeline replies
// immediately. spawn returns an error only when no stage could be started,
// in which case no job is created and the caller replies Continue.
func (w *Worker) spawn(line string, pipeline parse.Pipeline) error {
	k := len(pipeline.Stages)
	pgid := 0
	pids := make([]int, 0, k)
	lastPid := -1

	var prevRead *os.File // read end of the pipe feeding the next stage
	for i, stage := range pipeline.Stages {
		cmd := exec.Command(stage.Name, stage.Args...) //nolint:gosec // G204: the user's command line is the product
		cmd.Stdin = os.Stdin
		if prevRead != nil {
			cmd.Stdin = prevRead
		}
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		var nextRead, pipeWrite *os.File
		if i < k-1 {
			var err error
			nextRead, pipeWrite, err = os.Pipe()
			if err != nil {
				closeAll(prevRead)
				return fmt.Errorf("%w: cannot create pipe: %w", ErrSpawn, err)
			}
			cmd.Stdout = pipeWrite
		}
		// The child places itself in the pipeline's group before exec;
		// Pgid 0 makes the first started stage the group leader.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}

		err := cmd.Start()
		// The parent's copies of this stage's pipe ends must go away as
		// soon as the child holds its own, or readers never see EOF.
		closeAll(prevRead, pipeWrite)
		prevRead = nextRead

		if err != nil {
			fmt.Fprintf(w.errOut, "gosh: %s: %v\n", stage.Name, err)
			continue
		}
		pid := cmd.Process.Pid
		if pgid == 0 {
			pgid = pid
		}
		pids = append(pids, pid)
		if i == k-1 {
			lastPid = pid
		}
	}
	closeAll(prevRead)

	if len(pids) == 0 {
		return fmt.Errorf("%w: no stage started", ErrSpawn)
	}
	if lastPid == -1 {
		// The final stage never ran, so nothing will report its status.
		w.exitValue = ExitExecFailure
	}
	id := w.tab.addJob(pgid, lastPid, pids, line)

	if pipeline.Background {
		fmt.Fprintf(w.errOut, "[%d] %d\n", id, pgid)
		w.reply(Reply{Code: w.exitValue})
		return nil
	}
	if err := w.foreground(pgid); err != nil {
		fmt.Fprintf(w.errOut, "gosh: %v\n", err)
	}
	w.deferReply(pgid)
	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
