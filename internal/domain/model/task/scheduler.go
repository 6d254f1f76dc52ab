package task

import (
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
)

// Clock reports elapsed simulated time
type Clock interface {
	Now() time.Duration
}

// Scheduler drives every started task one step per Tick, in the order the
// tasks were started. It is single-threaded: Tick, Start and every task
// body must run on the same goroutine.
type Scheduler struct {
	now    time.Duration
	ticks  uint64
	tasks  []*Task
	logger app.Logger

	// current is the task whose step is executing, nil between steps
	current *Task
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger used to report task failures
func WithLogger(l app.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates an idle scheduler at time zero
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{logger: app.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Ready task owned by this scheduler
func (s *Scheduler) New(name string, body Body) *Task {
	return &Task{
		id:    model.NewTaskID(),
		name:  name,
		state: StateReady,
		sched: s,
		body:  body,
	}
}

// FromSequence creates a Ready task that drives seq
func (s *Scheduler) FromSequence(name string, seq Sequence) *Task {
	return s.New(name, func(*Task) Sequence { return seq })
}

// Go creates and starts a task
func (s *Scheduler) Go(name string, body Body) *Task {
	t := s.New(name, body)
	t.Start()
	return t
}

// Now returns the simulated time elapsed over all ticks
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Ticks returns how many times Tick has run
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Len returns the number of registered tasks that have not terminated
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.state.IsTerminal() {
			n++
		}
	}
	return n
}

// Tick advances the clock by dt and every task registered before this call by
// exactly one step. Tasks started while ticking were already driven by Start
// and join on the next tick.
func (s *Scheduler) Tick(dt time.Duration) {
	if dt > 0 {
		s.now += dt
	}
	s.ticks++

	n := len(s.tasks)
	for i := 0; i < n; i++ {
		s.tasks[i].advance()
	}

	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.state.IsTerminal() {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// RunUntil ticks with a fixed step until done reports true or maxTicks
// ticks have elapsed. It returns the number of ticks run.
func (s *Scheduler) RunUntil(dt time.Duration, maxTicks int, done func() bool) int {
	for i := 0; i < maxTicks; i++ {
		if done() {
			return i
		}
		s.Tick(dt)
	}
	return maxTicks
}

// Current returns the task whose step is executing, nil outside of one
func (s *Scheduler) Current() *Task {
	return s.current
}

func (s *Scheduler) register(t *Task) {
	s.tasks = append(s.tasks, t)
}
