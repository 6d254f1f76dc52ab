// Package turn runs the turn cycle of a game.
//
// A Session is the explicit game context: board, players, dice, focus stack,
// scheduler and collaborators. The Orchestrator is the long running task
// that plays one turn after another on top of it.
package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

const tracerName = "github.com/YoshitsuguKoike/deeboard/internal/application/turn"

// Flag names read from the flag store
const (
	FlagRequireShake = "require_shake"
	FlagSkipThrow    = "skip_throw"
)

// Options are the game parameters of a session
type Options struct {
	// Players are the seat names; their count is the player count
	Players      []string
	Dice         int
	DiceSides    int
	DiceOverride int
	Seed         int64
	// MaxTurns ends the game after that many turns; 0 plays until stopped
	MaxTurns int
	// MoveSpeed is in cells per second
	MoveSpeed   float64
	RollKey     task.Key
	StartCell   int
	Geometry    board.Geometry
	Prefab      string
	Camera      focus.Camera
	ParkedScale float64
	ScaleTime   time.Duration
}

// DefaultOptions returns a two player game on a 10 cell per side board
func DefaultOptions() Options {
	return Options{
		Players:     []string{"Player 1", "Player 2"},
		Dice:        2,
		DiceSides:   dice.DefaultSides,
		Seed:        1,
		MoveSpeed:   4,
		RollKey:     "space",
		Geometry:    board.Geometry{BoardSize: 10, CellSize: 1},
		Prefab:      "cell",
		Camera:      focus.Camera{Smoothing: 6, Padding: 1, MinSize: 4},
		ParkedScale: 0.5,
		ScaleTime:   250 * time.Millisecond,
	}
}

func (o Options) validate() error {
	if len(o.Players) == 0 {
		return errors.New("at least one player is required")
	}
	if o.MoveSpeed <= 0 {
		return fmt.Errorf("move speed must be positive, got %v", o.MoveSpeed)
	}
	if o.MaxTurns < 0 {
		return fmt.Errorf("max turns must not be negative, got %d", o.MaxTurns)
	}
	return nil
}

// Deps are the collaborators of a session. Animator, Input and Scene are
// required; the others may be nil.
type Deps struct {
	Animator  output.Animator
	Input     output.Input
	Scene     output.Scene
	Prompter  output.Prompter
	Announcer output.Announcer
	Flags     output.Flags
	Journal   output.Journal
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l app.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTracer sets the tracer turn and effect spans are recorded with
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithRegistry sets the effect registry. The default holds the built-ins.
func WithRegistry(r *effect.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithSessionID fixes the session ID
func WithSessionID(id model.SessionID) Option {
	return func(s *Session) { s.id = id }
}

// WithContext sets the parent context of every turn span
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.root = ctx }
}

type noFlags struct{}

func (noFlags) Flag(string) bool { return false }

// Session is the state of one game
type Session struct {
	id   model.SessionID
	opts Options
	deps Deps

	sched     *task.Scheduler
	stack     *focus.Stack
	builder   *board.Builder
	players   []*player.Player
	direction model.Direction
	roller    *dice.Roller
	thrower   *dice.Thrower
	decks     map[string]*deck

	registry   *effect.Registry
	dispatcher *effect.Dispatcher
	logger     app.Logger
	tracer     trace.Tracer
	root       context.Context
	ctx        context.Context
}

// NewSession builds the board, spawns the pieces and returns a session
// ready for an Orchestrator
func NewSession(opts Options, def *board.Definition, deps Deps, options ...Option) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid session options: %w", err)
	}
	if deps.Animator == nil || deps.Input == nil || deps.Scene == nil {
		return nil, errors.New("session needs an animator, an input and a scene")
	}

	s := &Session{
		id:        model.NewSessionID(),
		opts:      opts,
		deps:      deps,
		direction: model.Forward,
		decks:     make(map[string]*deck),
		root:      context.Background(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = app.GetLogger()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.registry == nil {
		s.registry = effect.NewBuiltinRegistry()
	}
	s.ctx = s.root

	s.sched = task.NewScheduler(task.WithLogger(s.logger))
	s.roller = dice.NewRoller(opts.Seed)
	s.thrower = dice.NewThrower(s.sched, s.roller, deps.Animator)

	s.builder = board.NewBuilder(s.logger)
	s.builder.Definition = def
	s.builder.Geometry = opts.Geometry
	s.builder.Prefab = opts.Prefab
	s.builder.Scene = deps.Scene
	b, err := s.builder.Rebuild()
	if err != nil {
		return nil, err
	}

	cam := opts.Camera
	if ext, ok := b.Extent(); ok && cam.View.Empty() {
		cam.View = ext
	}
	s.stack = focus.NewStack(cam)

	for seat, name := range opts.Players {
		p := player.New(seat, name, b.Index(opts.StartCell))
		p.AttachPiece(deps.Scene.SpawnPiece(p.Name(), b.Cell(p.Start()).Center()))
		s.players = append(s.players, p)
	}

	s.dispatcher = effect.NewDispatcher(s.registry, s, effect.WithTracer(s.tracer))
	s.logger.Info("session %s: %d players on %d cells", s.id, len(s.players), b.Len())
	return s, nil
}

// ID returns the session ID
func (s *Session) ID() model.SessionID {
	return s.id
}

// Options returns the game parameters
func (s *Session) Options() Options {
	return s.opts
}

// Tick advances the game by dt: collaborators first, then the camera, then
// every task.
func (s *Session) Tick(dt time.Duration) {
	seen := make(map[output.Frame]bool, 4)
	for _, dep := range []interface{}{s.deps.Input, s.deps.Animator, s.deps.Scene, s.deps.Prompter} {
		f, ok := dep.(output.Frame)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		f.Advance(dt)
	}
	s.stack.Update(dt)
	s.sched.Tick(dt)
}

// Dispatcher returns the effect dispatcher bound to this session
func (s *Session) Dispatcher() *effect.Dispatcher {
	return s.dispatcher
}

// Rebuild lays the board out again with new geometry. Players keep their
// indices, wrapped onto the new ring.
func (s *Session) Rebuild(g board.Geometry) error {
	for _, p := range s.players {
		p.Unpark()
	}
	prev := s.builder.Geometry
	s.builder.Geometry = g
	b, err := s.builder.Rebuild()
	if err != nil {
		s.builder.Geometry = prev
		return err
	}
	for _, p := range s.players {
		p.SetCell(b.Index(p.Cell()))
	}
	return nil
}

// Close destroys the board and the pieces
func (s *Session) Close() {
	for _, p := range s.players {
		p.Unpark()
		if pc := p.Piece(); pc != nil && !pc.Destroyed() {
			s.deps.Scene.Destroy(pc)
		}
	}
	s.builder.Destroy()
}

// effect.Env

// Context returns the context of the running turn
func (s *Session) Context() context.Context { return s.ctx }

// Logger returns the session logger
func (s *Session) Logger() app.Logger { return s.logger }

// Scheduler returns the task scheduler
func (s *Session) Scheduler() *task.Scheduler { return s.sched }

// Focus returns the focus stack
func (s *Session) Focus() *focus.Stack { return s.stack }

// Board returns the current board
func (s *Session) Board() *board.Board { return s.builder.Board() }

// Players returns the players in seat order
func (s *Session) Players() []*player.Player {
	out := make([]*player.Player, len(s.players))
	copy(out, s.players)
	return out
}

// Direction returns the direction dice rolls move players in
func (s *Session) Direction() model.Direction { return s.direction }

// SetDirection changes the direction of later rolls
func (s *Session) SetDirection(d model.Direction) { s.direction = d }

// Roller returns the seeded random source
func (s *Session) Roller() *dice.Roller { return s.roller }

// Announcer returns the announcer, possibly nil
func (s *Session) Announcer() effect.Announcer { return s.deps.Announcer }

// Prompter returns the prompter, possibly nil
func (s *Session) Prompter() effect.Prompter { return s.deps.Prompter }

// Flags returns the flag store
func (s *Session) Flags() effect.Flags {
	if s.deps.Flags == nil {
		return noFlags{}
	}
	return s.deps.Flags
}

// Walk moves p on behalf of an effect, holding the camera on the piece for
// the duration of the move
func (s *Session) Walk(c *effect.Call, p *player.Player, steps int, trigger bool) task.Sequence {
	var leave, enter func(*board.Cell) task.Sequence
	if trigger {
		leave = func(cell *board.Cell) task.Sequence {
			return c.Chain(cell.Definition().Leave(), cell, p, nil)
		}
		enter = func(cell *board.Cell) task.Sequence {
			return c.Chain(cell.Definition().Enter(), cell, p, nil)
		}
	}
	return focus.Hold(c.Task, s.stack, s.walk(c.Task, p, steps, leave, enter), p)
}
