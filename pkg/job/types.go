package job

import (
	"errors"
	"os"
)

// Sentinel errors returned by the job package.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrSpawn       = errors.New("spawn error")
)

// ExitExecFailure is the distinguished status reported for a pipeline stage
// whose program could not be located or executed.
const ExitExecFailure = 127

// signalBase folds a death-by-signal into the exit code space as 128+signo,
// the usual shell convention.
const signalBase = 128

// State is the execution state of one tracked process.
type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "Stopped"
	}
	return "Running"
}

// Request is a message consumed by the Worker. Exactly two kinds exist:
// a submitted command line and a forwarded signal.
type Request interface {
	isRequest()
}

// Command carries one completed command line from the controller.
type Command struct {
	Line string
}

// Signal carries one signal occurrence from the relay.
type Signal struct {
	Sig os.Signal
}

func (Command) isRequest() {}
func (Signal) isRequest()  {}

// Reply tells the controller whether to read the next line (Quit false,
// Code is the command's exit status) or terminate the shell with Code.
type Reply struct {
	Quit bool
	Code int
}
