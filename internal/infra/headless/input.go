package headless

import (
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// Input simulates a player pressing a key and shaking the device at a fixed
// interval. Presses queued with Press are reported on the next tick.
type Input struct {
	Key      task.Key
	Interval time.Duration

	elapsed time.Duration
	queued  map[task.Key]bool
	pressed map[task.Key]bool
	shake   bool
}

// NewInput creates an input pressing key every interval. A zero interval
// disables automatic presses.
func NewInput(key task.Key, interval time.Duration) *Input {
	return &Input{
		Key:      key,
		Interval: interval,
		queued:   make(map[task.Key]bool),
		pressed:  make(map[task.Key]bool),
	}
}

// Press queues a press of key for the next tick
func (in *Input) Press(key task.Key) {
	in.queued[key] = true
}

// Advance implements output.Frame. Presses are only visible during the tick
// they happen on.
func (in *Input) Advance(dt time.Duration) {
	in.pressed, in.queued = in.queued, make(map[task.Key]bool)
	in.shake = false

	if in.Interval <= 0 {
		return
	}
	in.elapsed += dt
	if in.elapsed >= in.Interval {
		in.elapsed -= in.Interval
		in.pressed[in.Key] = true
		in.shake = true
	}
}

// Pressed implements task.KeySource
func (in *Input) Pressed(key task.Key) bool {
	return in.pressed[key]
}

// Shaken implements task.MotionSource
func (in *Input) Shaken() bool {
	return in.shake
}
