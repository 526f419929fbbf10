package job

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTablesLowestFreeJobID(t *testing.T) {
	t.Parallel()
	tab := newTables()
	require.Equal(t, 1, tab.addJob(1000, 1000, []int{1000}, "a"))
	require.Equal(t, 2, tab.addJob(2000, 2000, []int{2000}, "b"))
	require.Equal(t, 3, tab.addJob(3000, 3000, []int{3000}, "c"))

	// Removing job 2's only process frees its id for reuse; ids below the
	// highest live id have no gaps afterwards.
	_, _, gone, ok := tab.removeProc(2000)
	require.True(t, ok)
	require.True(t, gone)
	require.Equal(t, []int{1, 3}, tab.jobIDs())

	require.Equal(t, 2, tab.addJob(4000, 4000, []int{4000}, "d"))
	require.Equal(t, []int{1, 2, 3}, tab.jobIDs())
}

func TestTablesRemoveProcExactlyOnce(t *testing.T) {
	t.Parallel()
	tab := newTables()
	tab.addJob(1000, 1001, []int{1000, 1001}, "a | b")

	pgid, wasLast, gone, ok := tab.removeProc(1000)
	require.True(t, ok)
	require.Equal(t, 1000, pgid)
	require.False(t, wasLast)
	require.False(t, gone)

	_, _, _, ok = tab.removeProc(1000)
	require.False(t, ok, "a pid must be removed at most once")

	_, wasLast, gone, ok = tab.removeProc(1001)
	require.True(t, ok)
	require.True(t, wasLast)
	require.True(t, gone)
	require.Empty(t, tab.jobs)
	require.Empty(t, tab.groups)
	require.Empty(t, tab.procs)
}

func TestTablesAggregateState(t *testing.T) {
	t.Parallel()
	tab := newTables()
	tab.addJob(1000, 1001, []int{1000, 1001}, "a | b")
	require.Equal(t, Running, tab.jobState(1000))

	_, ok := tab.setState(1000, Stopped)
	require.True(t, ok)
	require.Equal(t, Stopped, tab.jobState(1000), "one stopped member stops the job")
	require.False(t, tab.allStopped(1000))

	_, ok = tab.setState(1001, Stopped)
	require.True(t, ok)
	require.True(t, tab.allStopped(1000))

	_, ok = tab.setState(1001, Running)
	require.True(t, ok)
	require.False(t, tab.allStopped(1000))

	_, ok = tab.setState(9999, Stopped)
	require.False(t, ok, "untracked pids are ignored")
}
