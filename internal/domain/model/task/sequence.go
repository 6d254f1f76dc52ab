package task

import (
	"errors"
	"time"
)

// Sequence lazily produces the suspension points of a task. Next runs the
// work up to the next suspension and returns the awaitable to suspend on.
// It returns ErrDone once exhausted and any other error to fail the task.
//
// Sequences are single use and stateful; build a fresh one for every run.
type Sequence interface {
	Next() (Awaitable, error)
}

// Func adapts a hand-written step function to Sequence
type Func func() (Awaitable, error)

// Next implements Sequence
func (f Func) Next() (Awaitable, error) { return f() }

type done struct{}

func (done) Next() (Awaitable, error) { return nil, ErrDone }

// Done returns an empty sequence
func Done() Sequence {
	return done{}
}

type call struct {
	fn    func() (Awaitable, error)
	fired bool
}

func (c *call) Next() (Awaitable, error) {
	if c.fired {
		return nil, ErrDone
	}
	c.fired = true
	a, err := c.fn()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrDone
	}
	return a, nil
}

// Call runs fn once; a non-nil awaitable becomes a suspension point
func Call(fn func() (Awaitable, error)) Sequence {
	return &call{fn: fn}
}

// Do runs fn once without suspending
func Do(fn func() error) Sequence {
	return Call(func() (Awaitable, error) { return nil, fn() })
}

// Exec runs fn once without suspending
func Exec(fn func()) Sequence {
	return Call(func() (Awaitable, error) {
		fn()
		return nil, nil
	})
}

// Wait suspends once on a
func Wait(a Awaitable) Sequence {
	return Call(func() (Awaitable, error) { return a, nil })
}

// WaitFor creates the awaitable when the sequence reaches it
func WaitFor(fn func() Awaitable) Sequence {
	return Call(func() (Awaitable, error) { return fn(), nil })
}

// Sleep waits d of simulated time, measured from when the step is reached
func Sleep(clock Clock, d time.Duration) Sequence {
	return WaitFor(func() Awaitable { return Delay(clock, d) })
}

// Fail fails the task with err when reached
func Fail(err error) Sequence {
	return Call(func() (Awaitable, error) { return nil, err })
}

type seq struct {
	parts []Sequence
	i     int
}

func (s *seq) Next() (Awaitable, error) {
	for s.i < len(s.parts) {
		a, err := s.parts[s.i].Next()
		if errors.Is(err, ErrDone) {
			s.i++
			continue
		}
		return a, err
	}
	return nil, ErrDone
}

// Seq runs parts one after another
func Seq(parts ...Sequence) Sequence {
	return &seq{parts: parts}
}

type lazy struct {
	build func() Sequence
	inner Sequence
}

func (l *lazy) Next() (Awaitable, error) {
	if l.inner == nil {
		l.inner = l.build()
		if l.inner == nil {
			l.inner = done{}
		}
	}
	return l.inner.Next()
}

// Lazy builds the sequence when it is first reached, so it can depend on
// state produced by earlier steps
func Lazy(build func() Sequence) Sequence {
	return &lazy{build: build}
}

// If runs then when cond holds at the time it is reached, otherwise
// otherwise (which may be nil)
func If(cond func() bool, then, otherwise Sequence) Sequence {
	return Lazy(func() Sequence {
		if cond() {
			return then
		}
		return otherwise
	})
}

type while struct {
	cond func() bool
	body func() Sequence
	cur  Sequence
}

func (w *while) Next() (Awaitable, error) {
	for {
		if w.cur == nil {
			if !w.cond() {
				return nil, ErrDone
			}
			w.cur = w.body()
			if w.cur == nil {
				w.cur = done{}
			}
		}
		a, err := w.cur.Next()
		if errors.Is(err, ErrDone) {
			w.cur = nil
			continue
		}
		return a, err
	}
}

// While repeats a freshly built body for as long as cond holds. A body that
// never suspends and a cond that never fails spin forever within one tick.
func While(cond func() bool, body func() Sequence) Sequence {
	return &while{cond: cond, body: body}
}

// Repeat runs body(i) for i in [0, n)
func Repeat(n int, body func(i int) Sequence) Sequence {
	i := 0
	return While(func() bool { return i < n }, func() Sequence {
		cur := i
		i++
		return body(cur)
	})
}

// Each runs body for every item in order
func Each[T any](items []T, body func(item T) Sequence) Sequence {
	return Repeat(len(items), func(i int) Sequence { return body(items[i]) })
}

type scoped struct {
	t       *Task
	acquire func() error
	release func()
	body    Sequence
	started bool
	free    func()
}

func (s *scoped) Next() (Awaitable, error) {
	if !s.started {
		s.started = true
		if s.acquire != nil {
			if err := s.acquire(); err != nil {
				return nil, err
			}
		}
		release := s.release
		if release == nil {
			release = func() {}
		}
		s.free = s.t.Defer(release)
	}
	a, err := s.body.Next()
	if err != nil {
		s.free()
		return nil, err
	}
	return a, nil
}

// Scoped runs acquire, then body, then release. release also runs if the
// task fails or is stopped while body is in progress.
func Scoped(t *Task, acquire func() error, release func(), body Sequence) Sequence {
	return &scoped{t: t, acquire: acquire, release: release, body: body}
}

// Await starts child if it is still Ready and waits for it to end. The
// awaiting task owns child while it waits, so stopping it stops child too.
func Await(child *Task) Sequence {
	return All(child)
}

// All starts every Ready task, then waits for each in turn. The tasks run
// side by side because the scheduler interleaves them. Like Await, the
// awaiting task owns them until they end.
func All(tasks ...*Task) Sequence {
	var untie []func()
	waits := make([]Sequence, 0, len(tasks)+2)
	waits = append(waits, Exec(func() {
		for _, t := range tasks {
			if owner := t.sched.Current(); owner != nil {
				untie = append(untie, owner.Own(t))
			}
			if t.State() == StateReady {
				t.Start()
			}
		}
	}))
	for _, t := range tasks {
		t := t
		waits = append(waits, WaitFor(func() Awaitable { return Nested(t) }))
	}
	waits = append(waits, Exec(func() {
		for _, fn := range untie {
			fn()
		}
		untie = nil
	}))
	return Seq(waits...)
}
