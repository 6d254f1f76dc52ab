package effect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

const tick = 10 * time.Millisecond

type recorder struct {
	lines []string
}

func (r *recorder) Announce(text string) { r.lines = append(r.lines, text) }

type dialog struct{ closed bool }

func (d *dialog) Destroyed() bool { return d.closed }

type prompter struct {
	opened []string
	last   *dialog
}

func (p *prompter) Open(title, body string) task.Resource {
	p.opened = append(p.opened, title+"|"+body)
	p.last = &dialog{}
	return p.last
}

type flags map[string]bool

func (f flags) Flag(name string) bool { return f[name] }

// testEnv is a minimal game environment: walking is instant and only
// triggers enter effects.
type testEnv struct {
	sched     *task.Scheduler
	stack     *focus.Stack
	board     *board.Board
	players   []*player.Player
	direction model.Direction
	roller    *dice.Roller
	decks     map[string][]*board.Card
	announcer *recorder
	prompter  *prompter
	flags     flags
	walks     []string
}

func newTestEnv(t *testing.T, cells []*board.CellDefinition, seats int) *testEnv {
	t.Helper()
	def, err := board.NewDefinition("test", cells, false)
	require.NoError(t, err)
	b, err := board.New(def, board.Geometry{BoardSize: 3, CellSize: 1})
	require.NoError(t, err)

	env := &testEnv{
		sched:     task.NewScheduler(task.WithLogger(app.NopLogger())),
		stack:     focus.NewStack(focus.Camera{View: model.RectAround(model.Vec{}, 4, 4), Smoothing: 30}),
		board:     b,
		direction: model.Forward,
		roller:    dice.NewRoller(1),
		decks:     make(map[string][]*board.Card),
		announcer: &recorder{},
		prompter:  &prompter{},
		flags:     flags{},
	}
	for i := 0; i < seats; i++ {
		env.players = append(env.players, player.New(i, "", 0))
	}
	return env
}

func plain(title string, enter ...string) *board.CellDefinition {
	return board.NewCellDefinition(title, "", enter, nil, nil)
}

func (e *testEnv) Context() context.Context       { return context.Background() }
func (e *testEnv) Logger() app.Logger             { return app.NopLogger() }
func (e *testEnv) Scheduler() *task.Scheduler     { return e.sched }
func (e *testEnv) Focus() *focus.Stack            { return e.stack }
func (e *testEnv) Board() *board.Board            { return e.board }
func (e *testEnv) Players() []*player.Player      { return e.players }
func (e *testEnv) Direction() model.Direction     { return e.direction }
func (e *testEnv) SetDirection(d model.Direction) { e.direction = d }
func (e *testEnv) Roller() *dice.Roller           { return e.roller }
func (e *testEnv) Announcer() Announcer           { return e.announcer }
func (e *testEnv) Prompter() Prompter             { return e.prompter }
func (e *testEnv) Flags() Flags                   { return e.flags }

func (e *testEnv) Draw(deck string) (*board.Card, error) {
	cards := e.decks[deck]
	if len(cards) == 0 {
		return nil, errors.New("deck is empty")
	}
	card := cards[0]
	e.decks[deck] = append(cards[1:], card)
	return card, nil
}

func (e *testEnv) Walk(c *Call, p *player.Player, steps int, trigger bool) task.Sequence {
	return task.Lazy(func() task.Sequence {
		path := e.board.Path(p.Cell(), steps)
		if len(path) == 0 {
			return nil
		}
		dest := e.board.Cell(path[len(path)-1])
		p.SetCell(dest.Index())
		e.walks = append(e.walks, p.String())
		if !trigger {
			return nil
		}
		return c.Chain(dest.Definition().Enter(), dest, p, nil)
	})
}

// run drives the scheduler until tk ends
func (e *testEnv) run(t *testing.T, tk *task.Task) {
	t.Helper()
	e.sched.RunUntil(tick, 10000, func() bool { return !tk.State().IsActive() })
	require.False(t, tk.State().IsActive(), "task %s did not end", tk)
}
