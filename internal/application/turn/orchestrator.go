package turn

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// Phase is the step of a turn currently running
type Phase string

// Turn phases, in order
const (
	PhaseIdle           Phase = "IDLE"
	PhaseFocusPlayer    Phase = "FOCUS_PLAYER"
	PhaseUnpark         Phase = "UNPARK"
	PhaseAwaitInput     Phase = "AWAIT_INPUT"
	PhaseRollDice       Phase = "ROLL_DICE"
	PhaseWalkPath       Phase = "WALK_PATH"
	PhaseParkOrContinue Phase = "PARK_OR_CONTINUE"
	PhaseFocusRelease   Phase = "FOCUS_RELEASE"
	PhaseDone           Phase = "DONE"
)

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithTurnHook registers a callback run after every turn
func WithTurnHook(fn func(rec output.TurnRecord)) OrchestratorOption {
	return func(o *Orchestrator) { o.hook = fn }
}

// Orchestrator plays the turn cycle: one turn task per player turn, driven
// by a long running loop task, strictly one turn at a time.
type Orchestrator struct {
	s     *Session
	hook  func(rec output.TurnRecord)
	phase Phase

	current int
	turns   int
	loop    *task.Task

	active    *task.Task
	activeRec *output.TurnRecord
}

// NewOrchestrator creates an orchestrator for s; seat 0 plays first
func NewOrchestrator(s *Session, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{s: s, phase: PhaseIdle}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Current returns the player whose turn it is or is next
func (o *Orchestrator) Current() *player.Player {
	return o.s.players[o.current]
}

// Turns returns the number of turns played, failed ones included
func (o *Orchestrator) Turns() int {
	return o.turns
}

// Phase returns the phase of the running turn
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// Active returns the running turn task, nil between turns
func (o *Orchestrator) Active() *task.Task {
	if o.active == nil || !o.active.State().IsActive() {
		return nil
	}
	return o.active
}

// Loop returns the loop task, nil before Start
func (o *Orchestrator) Loop() *task.Task {
	return o.loop
}

// Done reports whether the game ended or was stopped
func (o *Orchestrator) Done() bool {
	return o.loop != nil && o.loop.State().IsTerminal()
}

// Start launches the loop task. Starting twice panics.
func (o *Orchestrator) Start() *task.Task {
	if o.loop != nil {
		panic(&task.TransitionError{Task: "orchestrator", Op: "start", From: o.loop.State()})
	}
	o.loop = o.s.sched.Go("orchestrator", func(self *task.Task) task.Sequence {
		return task.While(func() bool { return !o.finished() }, o.next)
	})
	return o.loop
}

// Stop ends the game. The running turn is stopped first so its focus push,
// movement guard and parking changes are released; it is journaled as
// stopped.
func (o *Orchestrator) Stop() {
	if o.active != nil && o.active.State().IsActive() {
		o.active.Stop()
		o.activeRec.Status = output.TurnStopped
		o.activeRec.To = o.s.players[o.activeRec.Seat].Cell()
		o.record(o.activeRec)
	}
	if o.loop != nil && o.loop.State().IsActive() {
		o.loop.Stop()
	}
	o.phase = PhaseIdle
}

// Run ticks the session by dt until the game ends or ctx is cancelled, in
// which case the game is stopped and ctx.Err() returned.
func (o *Orchestrator) Run(ctx context.Context, dt time.Duration) error {
	if o.loop == nil {
		o.Start()
	}
	for !o.Done() {
		select {
		case <-ctx.Done():
			o.Stop()
			return ctx.Err()
		default:
		}
		o.s.Tick(dt)
	}
	return nil
}

func (o *Orchestrator) finished() bool {
	limit := o.s.opts.MaxTurns
	return limit > 0 && o.turns >= limit
}

func (o *Orchestrator) next() task.Sequence {
	p := o.s.players[o.current]
	rec := &output.TurnRecord{
		SessionID: o.s.id.String(),
		Turn:      o.turns + 1,
		Seat:      p.Seat(),
		Player:    p.Name(),
		From:      p.Cell(),
		Direction: o.s.direction.Sign(),
		StartedAt: time.Now(),
	}
	turn := o.s.sched.New(fmt.Sprintf("turn-%d:%s", rec.Turn, p.Name()), o.play(p, rec))
	o.active, o.activeRec = turn, rec
	return task.Seq(
		task.Await(turn),
		task.Exec(func() { o.complete(turn, p, rec) }),
	)
}

func (o *Orchestrator) enter(ph Phase) task.Sequence {
	return task.Exec(func() { o.phase = ph })
}

// play builds the body of one turn
func (o *Orchestrator) play(p *player.Player, rec *output.TurnRecord) task.Body {
	return func(self *task.Task) task.Sequence {
		s := o.s
		ctx, span := s.tracer.Start(s.root, "turn", trace.WithAttributes(
			attribute.String("session.id", rec.SessionID),
			attribute.Int("turn.number", rec.Turn),
			attribute.Int("player.seat", p.Seat()),
			attribute.Int("turn.from", rec.From),
		))
		prev := s.ctx
		s.ctx = ctx
		self.Defer(func() {
			s.ctx = prev
			span.SetAttributes(
				attribute.Int("turn.roll", rec.Roll),
				attribute.Int("turn.to", p.Cell()),
				attribute.Bool("turn.extra", rec.ExtraTurn),
			)
			if err := self.Err(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		})

		var roll dice.Result
		return task.Seq(
			o.enter(PhaseFocusPlayer),
			focus.Hold(self, s.stack, task.Seq(
				o.enter(PhaseUnpark),
				s.unpark(p),
				o.enter(PhaseAwaitInput),
				o.awaitInput(),
				o.enter(PhaseRollDice),
				o.rollDice(&roll),
				task.Exec(func() {
					rec.Roll, rec.Faces = roll.Total, roll.Faces
					s.logger.Debug("%s rolled %d %v", p, roll.Total, roll.Faces)
				}),
				o.enter(PhaseWalkPath),
				o.walkPath(self, p, &roll),
				o.enter(PhaseParkOrContinue),
				o.parkOrContinue(p, rec),
				o.enter(PhaseFocusRelease),
			), p),
			o.enter(PhaseDone),
		)
	}
}

func (o *Orchestrator) awaitInput() task.Sequence {
	s := o.s
	return task.Lazy(func() task.Sequence {
		flags := s.Flags()
		switch {
		case flags.Flag(FlagSkipThrow):
			return nil
		case flags.Flag(FlagRequireShake):
			return task.Wait(task.Shake(s.deps.Input))
		default:
			return task.Wait(task.KeyPress(s.deps.Input, s.opts.RollKey))
		}
	})
}

func (o *Orchestrator) rollDice(out *dice.Result) task.Sequence {
	s := o.s
	return task.Lazy(func() task.Sequence {
		cfg := dice.Config{Count: s.opts.Dice, Sides: s.opts.DiceSides, Override: s.opts.DiceOverride}
		if s.Flags().Flag(FlagSkipThrow) {
			return task.Do(func() error {
				res, err := s.roller.Roll(cfg)
				*out = res
				return err
			})
		}
		return s.thrower.Throw(cfg, out)
	})
}

func (o *Orchestrator) walkPath(self *task.Task, p *player.Player, roll *dice.Result) task.Sequence {
	s := o.s
	return task.Lazy(func() task.Sequence {
		steps := roll.Total * s.direction.Sign()
		return s.walk(self, p, steps,
			func(cell *board.Cell) task.Sequence {
				return s.dispatcher.Dispatch(cell.Definition().Leave(), cell, p)
			},
			func(cell *board.Cell) task.Sequence {
				return s.dispatcher.Dispatch(cell.Definition().Enter(), cell, p)
			},
		)
	})
}

// parkOrContinue consumes one extra turn if the player has any; otherwise
// the piece is parked and the next seat plays
func (o *Orchestrator) parkOrContinue(p *player.Player, rec *output.TurnRecord) task.Sequence {
	s := o.s
	return task.Lazy(func() task.Sequence {
		if p.ConsumeExtraTurn() {
			rec.ExtraTurn = true
			s.logger.Info("%s plays again (%d extra turns left)", p.Name(), p.ExtraTurns())
			return nil
		}
		rec.Parked = true
		return s.park(p)
	})
}

func (o *Orchestrator) complete(turn *task.Task, p *player.Player, rec *output.TurnRecord) {
	o.turns++
	o.active, o.activeRec = nil, nil
	o.phase = PhaseIdle

	rec.To = p.Cell()
	if turn.State() == task.StateFailed {
		rec.Status = output.TurnFailed
		if err := turn.Err(); err != nil {
			rec.Error = err.Error()
		}
		rec.ExtraTurn = false
		o.s.logger.Error("turn %d of %s failed: %v", rec.Turn, p.Name(), turn.Err())
	} else {
		rec.Status = output.TurnFinished
	}
	o.record(rec)

	if !rec.ExtraTurn {
		o.current = (o.current + 1) % len(o.s.players)
	}
}

func (o *Orchestrator) record(rec *output.TurnRecord) {
	rec.EndedAt = time.Now()
	rec.SimTime = o.s.sched.Now()
	if j := o.s.deps.Journal; j != nil {
		if err := j.Record(o.s.root, *rec); err != nil {
			o.s.logger.Warn("journal: failed to record turn %d: %v", rec.Turn, err)
		}
	}
	if o.hook != nil {
		o.hook(*rec)
	}
}
