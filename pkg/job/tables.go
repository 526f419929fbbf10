package job

import (
	"slices"
)

// jobEntry is one user-visible job: a process group spawned from one
// command line.
type jobEntry struct {
	pgid int
	line string
}

// group tracks the live members of one process group. lastPid identifies
// the final pipeline stage; only its death determines the job's exit code.
// lastPid is -1 when the final stage never started.
type group struct {
	jobID   int
	lastPid int
	members map[int]bool
}

// procInfo is the per-process record: current state and owning group.
type procInfo struct {
	state State
	pgid  int
}

// tables holds the worker's complete job bookkeeping. It is owned by the
// worker goroutine alone; no method is safe for concurrent use.
type tables struct {
	jobs   map[int]jobEntry
	groups map[int]*group
	procs  map[int]*procInfo
}

func newTables() tables {
	return tables{
		jobs:   map[int]jobEntry{},
		groups: map[int]*group{},
		procs:  map[int]*procInfo{},
	}
}

// nextJobID returns the lowest positive integer not currently in use.
// Ids are reused after a job completes.
func (t *tables) nextJobID() int {
	for id := 1; ; id++ {
		if _, ok := t.jobs[id]; !ok {
			return id
		}
	}
}

// addJob records a freshly spawned process group with all members Running
// and returns its new job id.
func (t *tables) addJob(pgid, lastPid int, pids []int, line string) int {
	id := t.nextJobID()
	t.jobs[id] = jobEntry{pgid: pgid, line: line}
	members := make(map[int]bool, len(pids))
	for _, pid := range pids {
		members[pid] = true
		t.procs[pid] = &procInfo{state: Running, pgid: pgid}
	}
	t.groups[pgid] = &group{jobID: id, lastPid: lastPid, members: members}
	return id
}

// setState updates a process's state and returns its owning pgid. ok is
// false for untracked pids, which the caller ignores.
func (t *tables) setState(pid int, s State) (pgid int, ok bool) {
	info, ok := t.procs[pid]
	if !ok {
		return 0, false
	}
	info.state = s
	return info.pgid, true
}

// removeProc drops a reaped process from all tables. When the process was
// its group's last member, the group and its job are removed as well.
// Each pid can be removed at most once; ok is false otherwise.
func (t *tables) removeProc(pid int) (pgid int, wasLast, groupGone, ok bool) {
	info, ok := t.procs[pid]
	if !ok {
		return 0, false, false, false
	}
	delete(t.procs, pid)
	g := t.groups[info.pgid]
	delete(g.members, pid)
	if len(g.members) == 0 {
		delete(t.groups, info.pgid)
		delete(t.jobs, g.jobID)
		groupGone = true
	}
	return info.pgid, pid == g.lastPid, groupGone, true
}

// allStopped reports whether every remaining member of pgid is Stopped.
func (t *tables) allStopped(pgid int) bool {
	g, ok := t.groups[pgid]
	if !ok {
		return false
	}
	for pid := range g.members {
		if t.procs[pid].state == Running {
			return false
		}
	}
	return true
}

// jobState aggregates a group's member states: Stopped if any member is
// stopped, Running otherwise.
func (t *tables) jobState(pgid int) State {
	g, ok := t.groups[pgid]
	if !ok {
		return Running
	}
	for pid := range g.members {
		if t.procs[pid].state == Stopped {
			return Stopped
		}
	}
	return Running
}

// jobIDs returns all tracked job ids in ascending order.
func (t *tables) jobIDs() []int {
	ids := make([]int, 0, len(t.jobs))
	for id := range t.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
