// Package focus arbitrates what the camera tracks.
//
// The Stack holds target groups; the camera always frames the union of the
// extents of the topmost group. Pushing a group never loses the ones below it,
// so a nested action can borrow the camera and hand it back with Pop.
package focus

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// DefaultEpsilon is the per-update displacement under which the camera counts as idle
const DefaultEpsilon = 1e-3

// ErrInvalidPop is carried by the PopError panic raised when popping the base group
var ErrInvalidPop = errors.New("focus stack: cannot pop the base group")

// PopError is the panic value of an invalid Pop
type PopError struct {
	Depth int
}

func (e *PopError) Error() string {
	return fmt.Sprintf("%v (depth %d)", ErrInvalidPop, e.Depth)
}

func (e *PopError) Unwrap() error {
	return ErrInvalidPop
}

// Trackable is anything the camera can frame. Extent reports false while
// the object has no measurable size (hidden, not spawned yet).
type Trackable interface {
	Extent() (model.Rect, bool)
}

// Group is one entry of the stack
type Group []Trackable

// Bounds returns the union of the measurable extents of the group
func (g Group) Bounds() (model.Rect, bool) {
	var (
		out model.Rect
		ok  bool
	)
	for _, tr := range g {
		if tr == nil {
			continue
		}
		r, has := tr.Extent()
		if !has {
			continue
		}
		if !ok {
			out, ok = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, ok
}

// Camera is the tracking rig: the visible board region, smoothed toward the
// framing of the active group.
type Camera struct {
	View model.Rect
	// Smoothing is the exponential approach rate per second
	Smoothing float64
	// Padding is added around the framed bounds on every side
	Padding float64
	// MinSize keeps single pieces from filling the whole view
	MinSize float64
}

// Stack is the ordered focus stack. Depth is always at least one.
type Stack struct {
	groups  []Group
	handles []Handle
	next    Handle
	camera  Camera
	moving  bool
	moved   float64
	epsilon float64
}

// Option configures a Stack
type Option func(*Stack)

// WithEpsilon overrides DefaultEpsilon
func WithEpsilon(eps float64) Option {
	return func(s *Stack) { s.epsilon = eps }
}

// NewStack creates a stack holding only the empty base group
func NewStack(cam Camera, opts ...Option) *Stack {
	if cam.Smoothing <= 0 {
		cam.Smoothing = 6
	}
	s := &Stack{
		groups:  []Group{{}},
		handles: []Handle{0},
		next:    1,
		camera:  cam,
		epsilon: DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Depth returns the number of groups, base included
func (s *Stack) Depth() int {
	return len(s.groups)
}

// Top returns the active group
func (s *Stack) Top() Group {
	return s.groups[len(s.groups)-1]
}

// Camera returns the current camera state
func (s *Stack) Camera() Camera {
	return s.camera
}

// IsMoving reports whether the camera moved more than epsilon on the last
// update, or a group was pushed or popped since.
func (s *Stack) IsMoving() bool {
	return s.moving
}

// LastDisplacement returns how far the camera moved on the last update
func (s *Stack) LastDisplacement() float64 {
	return s.moved
}

// Push makes targets the active group. The stack reports moving right away
// so a CameraIdle wait started now cannot see a stale idle state.
func (s *Stack) Push(targets ...Trackable) {
	s.PushHandle(targets...)
}

// Handle identifies one pushed group
type Handle uint64

// PushHandle is Push, returning a handle that Remove accepts
func (s *Stack) PushHandle(targets ...Trackable) Handle {
	g := make(Group, len(targets))
	copy(g, targets)
	h := s.next
	s.next++
	s.groups = append(s.groups, g)
	s.handles = append(s.handles, h)
	s.moving = true
	return h
}

// Remove drops the group pushed as h, wherever it sits. Groups pushed after
// it stay in place. It reports false when h is not on the stack.
func (s *Stack) Remove(h Handle) bool {
	for i := len(s.handles) - 1; i > 0; i-- {
		if s.handles[i] != h {
			continue
		}
		top := i == len(s.groups)-1
		s.groups = append(s.groups[:i], s.groups[i+1:]...)
		s.handles = append(s.handles[:i], s.handles[i+1:]...)
		if top {
			s.moving = true
		}
		return true
	}
	return false
}

// Pop returns to the group below. Popping the base group panics with a
// *PopError.
func (s *Stack) Pop() {
	if len(s.groups) <= 1 {
		panic(&PopError{Depth: len(s.groups)})
	}
	s.groups[len(s.groups)-1] = nil
	s.groups = s.groups[:len(s.groups)-1]
	s.handles = s.handles[:len(s.handles)-1]
	s.moving = true
}

// Target returns the view the camera is heading for. Without any measurable
// target the current view is kept, so the camera does not move.
func (s *Stack) Target() model.Rect {
	b, ok := s.Top().Bounds()
	if !ok {
		return s.camera.View
	}
	w, h := b.Size()
	w = math.Max(w+2*s.camera.Padding, s.camera.MinSize)
	h = math.Max(h+2*s.camera.Padding, s.camera.MinSize)
	return model.RectAround(b.Center(), w, h)
}

// Update moves the camera one time step toward Target and recomputes the
// moving state.
func (s *Stack) Update(dt time.Duration) {
	target := s.Target()
	cur := s.camera.View

	k := 1 - math.Exp(-s.camera.Smoothing*dt.Seconds())
	next := model.Rect{
		Min: cur.Min.Lerp(target.Min, k),
		Max: cur.Max.Lerp(target.Max, k),
	}
	if next.Min.Dist(target.Min) < s.epsilon && next.Max.Dist(target.Max) < s.epsilon {
		next = target
	}

	s.moved = math.Max(next.Min.Dist(cur.Min), next.Max.Dist(cur.Max))
	s.camera.View = next
	s.moving = s.moved > s.epsilon
}

// Idle waits while the camera is moving
func Idle(s *Stack) task.Awaitable {
	return task.WaitFunc(s.IsMoving)
}

// Hold pushes targets for the duration of body, waiting for the camera to
// settle first. Its own group is removed when body ends or the task is
// stopped, even if other groups were pushed on top in the meantime.
func Hold(t *task.Task, s *Stack, body task.Sequence, targets ...Trackable) task.Sequence {
	if body == nil {
		body = task.Done()
	}
	var h Handle
	return task.Scoped(t,
		func() error {
			h = s.PushHandle(targets...)
			return nil
		},
		func() { s.Remove(h) },
		task.Seq(task.WaitFor(func() task.Awaitable { return Idle(s) }), body),
	)
}
