package task

import (
	"errors"
	"fmt"
	"slices"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
)

// Body builds the sequence a task drives. It is invoked once, when the task
// is started, so the sequence may capture the task itself.
type Body func(t *Task) Sequence

// manualHold is the pause reason used by the unconditional Pause form
type manualHold struct{}

type release struct {
	fn   func()
	done bool
}

// Task is a resumable unit of cooperative work driven by a Scheduler.
//
// A task advances at most one step per scheduler tick: it polls the awaitable
// it is suspended on and, once that stops waiting, pulls the next suspension
// from its sequence. Everything between two suspensions runs inside a single
// tick.
type Task struct {
	id    model.TaskID
	name  string
	state State
	sched *Scheduler

	body    Body
	seq     Sequence
	current Awaitable

	holds    map[interface{}]struct{}
	releases []*release
	err      error
}

// ID returns the task ID
func (t *Task) ID() model.TaskID {
	return t.id
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// State returns the current state
func (t *Task) State() State {
	return t.state
}

// Err returns the error that made the task fail, nil otherwise
func (t *Task) Err() error {
	return t.err
}

// Paused reports whether any pause reason is held
func (t *Task) Paused() bool {
	return t.state == StatePaused
}

// Holds returns the number of active pause reasons
func (t *Task) Holds() int {
	return len(t.holds)
}

// Start moves the task from Ready to Running, registers it with its scheduler
// and drives it up to its first suspension. Starting a task that is not Ready
// panics with a *TransitionError.
func (t *Task) Start() {
	t.mustTransition("start", StateRunning, StateReady)
	t.state = StateRunning
	t.sched.register(t)
	if len(t.holds) > 0 {
		t.state = StatePaused
		return
	}
	t.step()
}

// Stop forces a Running or Paused task to Finished. Release actions
// registered through Defer or Scoped run in reverse order; the rest of the
// sequence is abandoned. Called from inside the task's own sequence, the
// current step still runs up to its next suspension point. Children the
// task is awaiting through Await or All are stopped with it.
func (t *Task) Stop() {
	t.mustTransition("stop", StateFinished)
	t.finish(StateFinished, nil)
}

// Pause unconditionally pauses a Running task.
func (t *Task) Pause() {
	t.mustTransition("pause", StatePaused)
	t.hold(manualHold{})
	t.state = StatePaused
}

// Resume unconditionally resumes a Paused task, dropping every pause reason.
func (t *Task) Resume() {
	t.mustTransition("resume", StateRunning, StatePaused)
	t.holds = nil
	t.state = StateRunning
}

// PauseFor adds a pause reason. The task stays paused until every reason has
// been removed with ResumeFor. Reasons must be comparable values. Holds on a
// Ready task take effect when it starts; holds on a terminated task are ignored.
func (t *Task) PauseFor(reason interface{}) {
	if t.state.IsTerminal() {
		return
	}
	t.hold(reason)
	if t.state == StateRunning {
		t.state = StatePaused
	}
}

// ResumeFor removes a pause reason and resumes the task once none remain.
func (t *Task) ResumeFor(reason interface{}) {
	if t.state.IsTerminal() {
		return
	}
	delete(t.holds, reason)
	if len(t.holds) == 0 && t.state == StatePaused {
		t.state = StateRunning
	}
}

// HoldsReason reports whether the given pause reason is active
func (t *Task) HoldsReason(reason interface{}) bool {
	_, ok := t.holds[reason]
	return ok
}

// Defer registers a release action. It runs when the task finishes, fails or
// is stopped, unless the returned function runs it earlier. Release actions
// run at most once and in reverse registration order.
func (t *Task) Defer(fn func()) func() {
	r := &release{fn: fn}
	t.releases = append(t.releases, r)
	return func() { t.runRelease(r) }
}

// Own ties child to t: if t ends while child is still Running or Paused,
// child is stopped. The returned function drops the tie.
func (t *Task) Own(child *Task) func() {
	if child == nil || child == t {
		return func() {}
	}
	return t.Defer(func() {
		if child.state.IsActive() {
			child.Stop()
		}
	})
}

// String returns a short description for logs
func (t *Task) String() string {
	return fmt.Sprintf("%s[%s]", t.name, t.state)
}

// mustTransition panics with a *TransitionError unless the transition table
// allows moving to next and, when given, the task is in one of from
func (t *Task) mustTransition(op string, next State, from ...State) {
	ok := t.state.CanTransitionTo(next)
	if ok && len(from) > 0 {
		ok = slices.Contains(from, t.state)
	}
	if !ok {
		panic(&TransitionError{Task: t.name, Op: op, From: t.state})
	}
}

func (t *Task) hold(reason interface{}) {
	if t.holds == nil {
		t.holds = make(map[interface{}]struct{})
	}
	t.holds[reason] = struct{}{}
}

// advance is called once per tick by the scheduler
func (t *Task) advance() {
	if t.state != StateRunning {
		return
	}
	t.step()
}

func (t *Task) step() {
	prev := t.sched.current
	t.sched.current = t
	defer func() { t.sched.current = prev }()

	a, err := t.pull()
	if t.state.IsTerminal() {
		// stopped from inside its own sequence
		return
	}
	switch {
	case err == nil:
		t.current = a
	case errors.Is(err, ErrDone):
		t.finish(StateFinished, nil)
	default:
		t.sched.logger.Warn("task %s (%s) failed: %v", t.name, t.id, err)
		t.finish(StateFailed, err)
	}
}

// pull polls the current awaitable and, when it no longer waits, fetches
// the next one. A nil awaitable with a nil error keeps the task where it is.
func (t *Task) pull() (a Awaitable, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, &PanicError{Value: r}
		}
	}()

	if t.current != nil && t.current.Waiting() {
		return t.current, nil
	}
	if t.seq == nil {
		t.seq = t.body(t)
		if t.seq == nil {
			return nil, ErrDone
		}
	}
	a, err = t.seq.Next()
	if err == nil && a == nil {
		a = NextTick()
	}
	return a, err
}

func (t *Task) finish(state State, err error) {
	t.state = state
	t.err = err
	t.current = nil
	t.seq = nil
	t.holds = nil
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.runRelease(t.releases[i])
	}
	t.releases = nil
}

func (t *Task) runRelease(r *release) {
	if r.done {
		return
	}
	r.done = true
	for i, other := range t.releases {
		if other == r {
			t.releases = append(t.releases[:i], t.releases[i+1:]...)
			break
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			t.sched.logger.Error("task %s: release action panicked: %v", t.name, rec)
		}
	}()
	r.fn()
}
