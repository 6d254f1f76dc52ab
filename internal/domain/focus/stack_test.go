package focus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

const frame = 16 * time.Millisecond

type box struct {
	rect    model.Rect
	visible bool
}

func (b *box) Extent() (model.Rect, bool) { return b.rect, b.visible }

func newStack() *Stack {
	return NewStack(Camera{
		View:      model.RectAround(model.Vec{}, 10, 10),
		Smoothing: 20,
		MinSize:   4,
	})
}

func requirePopPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrInvalidPop))
	}()
	fn()
}

func TestStack_PushPopDepth(t *testing.T) {
	s := newStack()
	assert.Equal(t, 1, s.Depth())

	s.Push(&box{visible: true})
	s.Push(&box{visible: true})
	assert.Equal(t, 3, s.Depth())

	s.Pop()
	s.Pop()
	assert.Equal(t, 1, s.Depth())

	requirePopPanic(t, s.Pop)
	assert.Equal(t, 1, s.Depth())
}

func TestStack_PushMarksMoving(t *testing.T) {
	s := newStack()
	s.Update(frame)
	assert.False(t, s.IsMoving(), "empty base group keeps the camera still")

	s.Push()
	assert.True(t, s.IsMoving())

	s.Update(frame)
	assert.False(t, s.IsMoving(), "an empty group does not move the camera")
	assert.Equal(t, model.RectAround(model.Vec{}, 10, 10), s.Camera().View)
}

func TestStack_ConvergesOnTarget(t *testing.T) {
	s := newStack()
	piece := &box{rect: model.RectAround(model.Vec{X: 40, Y: -20}, 1, 1), visible: true}
	s.Push(piece)

	target := s.Target()
	assert.Equal(t, model.Vec{X: 40, Y: -20}, target.Center())
	w, h := target.Size()
	assert.Equal(t, 4.0, w)
	assert.Equal(t, 4.0, h)

	updates := 0
	for s.IsMoving() && updates < 1000 {
		s.Update(frame)
		updates++
	}
	assert.Less(t, updates, 1000)
	assert.Equal(t, target, s.Camera().View)
	assert.LessOrEqual(t, s.LastDisplacement(), DefaultEpsilon)

	s.Update(frame)
	assert.Zero(t, s.LastDisplacement())
}

func TestGroup_BoundsSkipsUnmeasurable(t *testing.T) {
	g := Group{
		&box{rect: model.RectAround(model.Vec{}, 2, 2), visible: true},
		&box{rect: model.RectAround(model.Vec{X: 100}, 2, 2), visible: false},
		nil,
		&box{rect: model.RectAround(model.Vec{X: 10}, 2, 2), visible: true},
	}
	b, ok := g.Bounds()
	require.True(t, ok)
	assert.Equal(t, model.Vec{X: -1, Y: -1}, b.Min)
	assert.Equal(t, model.Vec{X: 11, Y: 1}, b.Max)

	_, ok = Group{&box{}}.Bounds()
	assert.False(t, ok)
}

func TestHold_WaitsForIdleAndPops(t *testing.T) {
	sched := task.NewScheduler(task.WithLogger(app.NopLogger()))
	s := newStack()
	piece := &box{rect: model.RectAround(model.Vec{X: 30}, 1, 1), visible: true}
	reachedAt := -1
	frames := 0

	tk := sched.Go("focus", func(self *task.Task) task.Sequence {
		return Hold(self, s, task.Exec(func() { reachedAt = frames }), piece)
	})
	assert.Equal(t, 2, s.Depth())

	for tk.State().IsActive() && frames < 1000 {
		s.Update(frame)
		sched.Tick(frame)
		frames++
	}
	assert.Equal(t, task.StateFinished, tk.State())
	assert.Greater(t, reachedAt, 1, "body runs only once the camera settled")
	assert.Equal(t, 1, s.Depth())
}

func TestHold_StopPops(t *testing.T) {
	sched := task.NewScheduler(task.WithLogger(app.NopLogger()))
	s := newStack()

	tk := sched.Go("focus", func(self *task.Task) task.Sequence {
		return Hold(self, s, task.Wait(task.Until(func() bool { return false })))
	})
	assert.Equal(t, 2, s.Depth())

	tk.Stop()
	assert.Equal(t, 1, s.Depth())
}

func TestStack_RemoveByHandle(t *testing.T) {
	s := newStack()
	low := &box{rect: model.RectAround(model.Vec{X: -20}, 1, 1), visible: true}
	high := &box{rect: model.RectAround(model.Vec{X: 20}, 1, 1), visible: true}
	hLow := s.PushHandle(low)
	hHigh := s.PushHandle(high)

	for i := 0; i < 500; i++ {
		s.Update(frame)
	}
	require.False(t, s.IsMoving())

	assert.True(t, s.Remove(hLow))
	assert.Equal(t, 2, s.Depth())
	assert.Same(t, high, s.Top()[0])
	assert.False(t, s.IsMoving(), "removing a buried group keeps the target")
	assert.False(t, s.Remove(hLow))

	assert.True(t, s.Remove(hHigh))
	assert.Equal(t, 1, s.Depth())
	assert.True(t, s.IsMoving())
	assert.False(t, s.Remove(0), "the base group is never removed")
}

func TestHold_ReleasesOwnGroupUnderLaterPush(t *testing.T) {
	sched := task.NewScheduler(task.WithLogger(app.NopLogger()))
	s := newStack()
	mine := &box{rect: model.RectAround(model.Vec{X: 5}, 1, 1), visible: true}
	other := &box{rect: model.RectAround(model.Vec{X: -5}, 1, 1), visible: true}

	tk := sched.Go("focus", func(self *task.Task) task.Sequence {
		return Hold(self, s, task.Wait(task.Until(func() bool { return false })), mine)
	})
	s.Push(other)
	require.Equal(t, 3, s.Depth())

	tk.Stop()
	assert.Equal(t, 2, s.Depth())
	assert.Same(t, other, s.Top()[0], "the later push stays on top")
}
