package effect

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

const tracerName = "github.com/YoshitsuguKoike/deeboard/internal/domain/effect"

// Dispatcher plays effect chains against a game environment
type Dispatcher struct {
	reg    *Registry
	env    Env
	tracer trace.Tracer
	logger app.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithTracer sets the tracer effect spans are recorded with
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) { d.tracer = t }
}

// NewDispatcher creates a dispatcher. Without WithTracer the global
// provider is used.
func NewDispatcher(reg *Registry, env Env, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		env:    env,
		logger: env.Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	if d.logger == nil {
		d.logger = app.GetLogger()
	}
	return d
}

// Registry returns the registry effects are looked up in
func (d *Dispatcher) Registry() *Registry {
	return d.reg
}

// Dispatch plays names in order for p on cell, each as its own task awaited
// before the next starts. Unknown names are skipped.
func (d *Dispatcher) Dispatch(names []string, cell *board.Cell, p *player.Player) task.Sequence {
	return d.dispatch(chain{
		ctx:    d.env.Context(),
		names:  names,
		cell:   cell,
		player: p,
		state:  State{},
	})
}

// DispatchCard plays the effects of a drawn card
func (d *Dispatcher) DispatchCard(card *board.Card, cell *board.Cell, p *player.Player) task.Sequence {
	return d.dispatch(chain{
		ctx:    d.env.Context(),
		names:  card.Effects(),
		cell:   cell,
		player: p,
		params: card.Params(),
		card:   card,
		state:  State{},
	})
}

type chain struct {
	ctx    context.Context
	names  []string
	cell   *board.Cell
	player *player.Player
	params board.Params
	card   *board.Card
	state  State
	depth  int
}

func (d *Dispatcher) dispatch(ch chain) task.Sequence {
	if ch.depth > MaxChainDepth {
		d.logger.Warn("effect chain %v dropped: nested deeper than %d", ch.names, MaxChainDepth)
		return task.Done()
	}
	if ch.ctx == nil {
		ch.ctx = context.Background()
	}
	names := make([]string, len(ch.names))
	copy(names, ch.names)

	return task.Each(names, func(name string) task.Sequence {
		return task.Lazy(func() task.Sequence {
			key := Normalize(name)
			fn, ok := d.reg.Lookup(key)
			if !ok {
				d.logger.Debug("effect %q is not registered, skipped", key)
				return nil
			}
			return task.Await(d.spawn(key, fn, ch))
		})
	})
}

func (d *Dispatcher) spawn(name string, fn Func, ch chain) *task.Task {
	params := ch.params
	if params == nil && ch.cell != nil && ch.cell.Definition() != nil {
		params = ch.cell.Definition().Params()
	}
	call := &Call{
		Name:   name,
		Params: params,
		Cell:   ch.cell,
		Player: ch.player,
		Card:   ch.card,
		State:  ch.state,
		Env:    d.env,
		depth:  ch.depth,
		d:      d,
	}

	return d.env.Scheduler().New("effect:"+name, func(self *task.Task) task.Sequence {
		attrs := []attribute.KeyValue{
			attribute.String("effect.name", name),
			attribute.Int("effect.depth", ch.depth),
		}
		if ch.cell != nil {
			attrs = append(attrs, attribute.Int("board.cell", ch.cell.Index()))
		}
		if ch.player != nil {
			attrs = append(attrs, attribute.Int("player.seat", ch.player.Seat()))
		}
		ctx, span := d.tracer.Start(ch.ctx, "effect "+name, trace.WithAttributes(attrs...))
		self.Defer(func() {
			if err := self.Err(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		})

		call.Ctx = ctx
		call.Task = self
		d.logger.Debug("effect %s started (depth %d)", name, ch.depth)
		return fn(call)
	})
}
