package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tickbot.ai/internal/task"
)

// stub completes after need ticks, or fails when fail is set. ready gates it.
type stub struct {
	task.Base
	need     int
	fail     bool
	ready    bool
	done     int
	resets   int
	cleanups int
}

func newStub(kind string, need int) *stub {
	return &stub{Base: task.NewBase(kind, "RUN"), need: need, ready: true}
}

func (s *stub) CanExecute(*task.Context) bool { return s.ready }
func (s *stub) Execute(ctx *task.Context) {
	s.Run(ctx, s.CanExecute, func(*task.Context) {
		s.done++
		s.Progress()
		if s.done < s.need {
			return
		}
		if s.fail {
			s.Fail("boom")
			return
		}
		s.Complete()
	})
}
func (s *stub) ResetForRetry()        { s.Reset(); s.done = 0; s.resets++ }
func (s *stub) Description() string   { return s.Kind() }
func (s *stub) Cleanup(*task.Context) { s.cleanups++ }

type recorder struct{ events []Event }

func (r *recorder) TaskEvent(e Event) { r.events = append(r.events, e) }

func (r *recorder) outcomes() []Outcome {
	out := make([]Outcome, len(r.events))
	for i, e := range r.events {
		out[i] = e.Outcome
	}
	return out
}

func run(e *Executor, n int) {
	for i := 1; i <= n; i++ {
		e.Tick(&task.Context{Tick: uint64(i), LoggedIn: true})
	}
}

func TestExecutorRunsQueueInOrder(t *testing.T) {
	rec := &recorder{}
	e := New(DefaultConfig(), rec)
	a, b := newStub("a", 2), newStub("b", 1)
	idA := e.Enqueue(a)
	e.Enqueue(b)
	require.Equal(t, 2, e.Len())
	require.Equal(t, task.Task(a), e.Current())

	run(e, 3)
	require.Equal(t, task.Completed, a.State())
	require.Equal(t, task.Completed, b.State())
	require.Zero(t, e.Len())
	require.Equal(t, []Outcome{OutcomeStarted, OutcomeCompleted, OutcomeStarted, OutcomeCompleted}, rec.outcomes())
	require.Equal(t, idA, rec.events[1].RunID)
	require.Equal(t, 2, rec.events[1].Ticks)
	require.Equal(t, 1, a.cleanups)
	require.False(t, e.Tick(&task.Context{}))
}

func TestExecutorRetriesFailedTasks(t *testing.T) {
	rec := &recorder{}
	e := New(Config{MaxRetries: 2}, rec)
	s := newStub("flaky", 1)
	s.fail = true
	e.Enqueue(s)

	run(e, 10)
	require.Equal(t, 2, s.resets)
	require.Equal(t, task.Failed, s.State())
	require.Equal(t, []Outcome{
		OutcomeStarted, OutcomeRetry,
		OutcomeStarted, OutcomeRetry,
		OutcomeStarted, OutcomeFailed,
	}, rec.outcomes())
	last := rec.events[len(rec.events)-1]
	require.Equal(t, "boom", last.Reason)
	require.Equal(t, 2, last.Attempt)
	require.Equal(t, 3, s.cleanups)
}

func TestExecutorInterruptResetsAndResumes(t *testing.T) {
	rec := &recorder{}
	e := New(DefaultConfig(), rec)
	long := newStub("long", 5)
	e.Enqueue(long)
	run(e, 2)
	require.Equal(t, task.Running, long.State())

	urgent := newStub("death", 2)
	e.Interrupt(&task.Context{Tick: 3}, urgent)
	require.True(t, e.Urgent("death"))
	require.Equal(t, task.Pending, long.State())
	require.Equal(t, 1, long.cleanups)
	require.Equal(t, task.Task(urgent), e.Current())

	run(e, 2)
	require.Equal(t, task.Completed, urgent.State())
	require.False(t, e.Urgent("death"))

	run(e, 5)
	require.Equal(t, task.Completed, long.State())
	require.Equal(t, 5, long.done)
	require.Contains(t, rec.outcomes(), OutcomeInterrupted)
	for _, ev := range rec.events {
		if ev.Kind == "death" {
			require.True(t, ev.Urgent)
		}
	}
}

func TestExecutorSkipsTaskThatNeverStarts(t *testing.T) {
	rec := &recorder{}
	e := New(Config{MaxPendingTicks: 3}, rec)
	blocked := newStub("blocked", 1)
	blocked.ready = false
	next := newStub("next", 1)
	e.Enqueue(blocked)
	e.Enqueue(next)

	run(e, 5)
	require.Equal(t, task.Pending, blocked.State())
	require.Equal(t, task.Completed, next.State())
	require.Equal(t, OutcomeSkipped, rec.events[0].Outcome)
	require.True(t, rec.events[0].Outcome.Final())
}

func TestExecutorPause(t *testing.T) {
	e := New(DefaultConfig())
	s := newStub("a", 1)
	e.Enqueue(s)
	e.Pause()
	require.True(t, e.Paused())
	require.False(t, e.Tick(&task.Context{}))
	require.Equal(t, task.Pending, s.State())
	e.Resume()
	require.True(t, e.Tick(&task.Context{LoggedIn: true}))
	require.Equal(t, task.Completed, s.State())
}

func TestObserverFunc(t *testing.T) {
	var got []string
	e := New(DefaultConfig())
	e.AddObserver(ObserverFunc(func(ev Event) { got = append(got, ev.Kind+":"+string(ev.Outcome)) }))
	e.Enqueue(newStub("x", 1))
	run(e, 1)
	require.Equal(t, []string{"x:started", "x:completed"}, got)
}
