package task

import "time"

// Awaitable is a condition a task is suspended on. The owning task polls it
// once per tick and resumes as soon as it reports that it is no longer waiting.
type Awaitable interface {
	Waiting() bool
}

// WaitFunc adapts a function to Awaitable; the function reports "still waiting"
type WaitFunc func() bool

// Waiting implements Awaitable
func (f WaitFunc) Waiting() bool { return f() }

// Key identifies an input key or button
type Key string

// KeySource reports edge-triggered presses for the current tick
type KeySource interface {
	Pressed(key Key) bool
}

// MotionSource reports whether a device shake was detected this tick
type MotionSource interface {
	Shaken() bool
}

// Resource is an external object that can be destroyed behind the task's back
type Resource interface {
	Destroyed() bool
}

type nextTick struct{}

func (nextTick) Waiting() bool { return false }

// NextTick suspends the task until the following tick
func NextTick() Awaitable {
	return nextTick{}
}

type delay struct {
	clock Clock
	until time.Duration
}

func (d *delay) Waiting() bool { return d.clock.Now() < d.until }

// Delay waits until d of simulated time has elapsed since the awaitable was
// created. Use Sleep to create it lazily at the suspension point.
func Delay(clock Clock, d time.Duration) Awaitable {
	return &delay{clock: clock, until: clock.Now() + d}
}

type frames struct {
	left int
}

func (f *frames) Waiting() bool {
	if f.left <= 0 {
		return false
	}
	f.left--
	return true
}

// Frames waits for n additional ticks after the suspension tick
func Frames(n int) Awaitable {
	return &frames{left: n}
}

// KeyPress waits for a fresh press of key. Holding the key down does not
// count; only a press reported during a polled tick does.
func KeyPress(src KeySource, key Key) Awaitable {
	return WaitFunc(func() bool { return !src.Pressed(key) })
}

// Shake waits for a device motion event
func Shake(src MotionSource) Awaitable {
	return WaitFunc(func() bool { return !src.Shaken() })
}

// Nested waits while t is Running or Paused. A failed task ends the wait
// exactly like a finished one; callers inspect t.State() when it matters.
func Nested(t *Task) Awaitable {
	return WaitFunc(func() bool { return t.state.IsActive() })
}

// ResourceAlive waits until r has been destroyed
func ResourceAlive(r Resource) Awaitable {
	return WaitFunc(func() bool { return !r.Destroyed() })
}

// Until waits until cond reports true
func Until(cond func() bool) Awaitable {
	return WaitFunc(func() bool { return !cond() })
}
