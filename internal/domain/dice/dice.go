// Package dice rolls the dice of a turn.
//
// Faces come from a seeded generator so a game replayed with the same seed
// rolls the same totals. Every die runs as its own task: it starts an
// animation, waits for it to settle, and only then exposes its face.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// DefaultSides is the face count of a standard die
const DefaultSides = 6

// ErrMissingDice indicates a roll with no dice
var ErrMissingDice = errors.New("at least one die must be rolled")

// ErrInvalidSides indicates a die with fewer than one face
var ErrInvalidSides = errors.New("dice must have at least one side")

// Config describes one roll
type Config struct {
	Count int
	Sides int
	// Override, when positive, replaces the rolled total and skips animations
	Override int
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Count <= 0 {
		return ErrMissingDice
	}
	if c.Sides <= 0 {
		return ErrInvalidSides
	}
	return nil
}

// Result is the outcome of a roll
type Result struct {
	Faces      []int
	Total      int
	Overridden bool
}

// Roller draws faces from a seeded generator
type Roller struct {
	rng *rand.Rand
}

// NewRoller creates a roller. The same seed yields the same faces.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Face draws one face in [1, sides]
func (r *Roller) Face(sides int) int {
	if sides <= 0 {
		return 0
	}
	return r.rng.Intn(sides) + 1
}

// Intn exposes the generator for shuffles and random picks
func (r *Roller) Intn(n int) int {
	return r.rng.Intn(n)
}

// Shuffle permutes n items in place through swap
func (r *Roller) Shuffle(n int, swap func(i, j int)) {
	r.rng.Shuffle(n, swap)
}

// Roll rolls every die at once without animation
func (r *Roller) Roll(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.Override > 0 {
		return Result{Total: cfg.Override, Overridden: true}, nil
	}
	res := Result{Faces: make([]int, cfg.Count)}
	for i := range res.Faces {
		res.Faces[i] = r.Face(cfg.Sides)
		res.Total += res.Faces[i]
	}
	return res, nil
}

// Die is one die of a roll
type Die struct {
	Index int
	Sides int

	face    int
	settled bool
}

// Face returns the settled face, 0 while rolling
func (d *Die) Face() int {
	if !d.settled {
		return 0
	}
	return d.face
}

// Settled reports whether the die stopped rolling
func (d *Die) Settled() bool {
	return d.settled
}

// Animator plays the tumble of a die and reports how long it takes
type Animator interface {
	AnimateDie(d *Die) time.Duration
}

// Thrower turns a roll into die tasks on a scheduler
type Thrower struct {
	sched  *task.Scheduler
	roller *Roller
	anim   Animator
}

// NewThrower creates a thrower. anim may be nil, in which case dice settle
// on the next tick.
func NewThrower(sched *task.Scheduler, roller *Roller, anim Animator) *Thrower {
	return &Thrower{sched: sched, roller: roller, anim: anim}
}

// Die creates the task of one die. The face is drawn when the task starts
// and exposed once the animation ends.
func (t *Thrower) Die(d *Die) *task.Task {
	return t.sched.New(fmt.Sprintf("die-%d", d.Index), func(self *task.Task) task.Sequence {
		var wait time.Duration
		return task.Seq(
			task.Exec(func() {
				d.face = t.roller.Face(d.Sides)
				if t.anim != nil {
					wait = t.anim.AnimateDie(d)
				}
			}),
			task.Lazy(func() task.Sequence {
				if wait <= 0 {
					return task.Wait(task.NextTick())
				}
				return task.Sleep(t.sched, wait)
			}),
			task.Exec(func() { d.settled = true }),
		)
	})
}

// Throw returns a sequence that rolls cfg.Count dice side by side, waits for
// every one of them and stores the outcome in out. With an override the
// fixed total is stored without rolling.
func (t *Thrower) Throw(cfg Config, out *Result) task.Sequence {
	return task.Lazy(func() task.Sequence {
		if err := cfg.Validate(); err != nil {
			return task.Fail(err)
		}
		if cfg.Override > 0 {
			return task.Exec(func() {
				*out = Result{Total: cfg.Override, Overridden: true}
			})
		}

		dice := make([]*Die, cfg.Count)
		tasks := make([]*task.Task, cfg.Count)
		for i := range dice {
			dice[i] = &Die{Index: i, Sides: cfg.Sides}
			tasks[i] = t.Die(dice[i])
		}
		return task.Seq(
			task.All(tasks...),
			task.Do(func() error {
				res := Result{Faces: make([]int, len(dice))}
				for i, d := range dice {
					if !d.Settled() {
						return fmt.Errorf("die %d did not settle: %v", i, tasks[i].Err())
					}
					res.Faces[i] = d.Face()
					res.Total += d.Face()
				}
				*out = res
				return nil
			}),
		)
	})
}
