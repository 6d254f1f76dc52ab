package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type announcer struct{ lines []string }

func (a *announcer) Announce(text string) { a.lines = append(a.lines, text) }

type flags map[string]bool

func (f flags) Flag(name string) bool { return f[name] }

// env is a game with instant walks that never trigger cell effects
type env struct {
	sched     *task.Scheduler
	board     *board.Board
	players   []*player.Player
	direction model.Direction
	roller    *dice.Roller
	announcer *announcer
	flags     flags
}

// newEnv builds a board whose every cell carries params
func newEnv(t *testing.T, params board.Params) *env {
	t.Helper()
	def, err := board.NewDefinition("test", []*board.CellDefinition{
		board.NewCellDefinition("Start", "", nil, nil, params),
	}, false)
	require.NoError(t, err)
	b, err := board.New(def, board.Geometry{BoardSize: 2, CellSize: 1})
	require.NoError(t, err)
	return &env{
		sched:     task.NewScheduler(task.WithLogger(app.NopLogger())),
		board:     b,
		players:   []*player.Player{player.New(0, "Ann", 0), player.New(1, "Bob", 0)},
		direction: model.Forward,
		roller:    dice.NewRoller(7),
		announcer: &announcer{},
		flags:     flags{"skip_throw": true},
	}
}

func (e *env) Context() context.Context       { return context.Background() }
func (e *env) Logger() app.Logger             { return app.NopLogger() }
func (e *env) Scheduler() *task.Scheduler     { return e.sched }
func (e *env) Focus() *focus.Stack            { return nil }
func (e *env) Board() *board.Board            { return e.board }
func (e *env) Players() []*player.Player      { return e.players }
func (e *env) Direction() model.Direction     { return e.direction }
func (e *env) SetDirection(d model.Direction) { e.direction = d }
func (e *env) Roller() *dice.Roller           { return e.roller }
func (e *env) Announcer() effect.Announcer    { return e.announcer }
func (e *env) Prompter() effect.Prompter      { return nil }
func (e *env) Flags() effect.Flags            { return e.flags }

func (e *env) Draw(string) (*board.Card, error) {
	return nil, errors.New("no decks")
}

func (e *env) Walk(c *effect.Call, p *player.Player, steps int, trigger bool) task.Sequence {
	return task.Exec(func() {
		p.SetCell(e.board.Index(p.Cell() + steps))
	})
}

type recorder struct {
	params []board.Params
	state  []effect.State
}

func (p *recorder) effect(c *effect.Call) task.Sequence {
	p.params = append(p.params, c.Params)
	snapshot := effect.State{}
	for k, v := range c.State {
		snapshot[k] = v
	}
	p.state = append(p.state, snapshot)
	return nil
}

func setup(t *testing.T, fsys afero.Fs, params board.Params) (*env, *effect.Dispatcher, *recorder) {
	t.Helper()
	e := newEnv(t, params)
	reg := effect.NewBuiltinRegistry()
	require.NoError(t, NewEngine(fsys, app.NopLogger()).Register(reg))
	pr := &recorder{}
	require.NoError(t, reg.Register("Record", pr.effect))
	return e, effect.NewDispatcher(reg, e), pr
}

func play(t *testing.T, e *env, d *effect.Dispatcher, names ...string) *task.Task {
	t.Helper()
	tk := e.sched.FromSequence("chain", d.Dispatch(names, e.board.Cell(0), e.players[0]))
	tk.Start()
	e.sched.RunUntil(10*time.Millisecond, 1000, func() bool { return !tk.State().IsActive() })
	require.False(t, tk.State().IsActive())
	return tk
}

func src(code string) board.Params {
	return board.Params{{Key: "source", Value: code}}
}

func TestScript_ReadsGameAndEditsState(t *testing.T) {
	e, d, pr := setup(t, nil, src(`
		local p = game.player()
		game.announce(p.name .. " on " .. p.cell .. " of " .. game.cells())
		game.set("seen", p.seat + game.players())
		game.set("label", "x")
		game.set("flag", game.flag("skip_throw"))
	`))
	e.players[0].SetCell(3)

	play(t, e, d, Name, "Record")

	assert.Equal(t, []string{"Ann on 3 of 8"}, e.announcer.lines)
	require.Len(t, pr.state, 1)
	assert.Equal(t, 2, pr.state[0]["seen"])
	assert.Equal(t, "x", pr.state[0]["label"])
	assert.Equal(t, true, pr.state[0]["flag"])
}

func TestScript_ChainsQueuedEffects(t *testing.T) {
	e, d, pr := setup(t, nil, src(`
		game.chain("Record", {amount = 3, label = "first"})
		game.advance(2)
		game.chain("Record")
	`))

	play(t, e, d, Name)

	require.Len(t, pr.params, 2)
	assert.Equal(t, board.Params{{Key: "amount", Value: "3"}, {Key: "label", Value: "first"}}, pr.params[0])
	// no params falls back to the cell definition
	assert.Equal(t, "source", pr.params[1][0].Key)
	assert.Equal(t, 2, e.players[0].Cell())
}

func TestScript_DirectionAndExtraTurns(t *testing.T) {
	e, d, _ := setup(t, nil, src(`
		if game.direction() == 1 then game.reverse() end
		game.grant_extra_turn(2)
	`))

	play(t, e, d, Name)

	assert.Equal(t, model.Backward, e.direction)
	assert.Equal(t, 2, e.players[0].ExtraTurns())
}

func TestScript_RollIsDeterministic(t *testing.T) {
	e, d, pr := setup(t, nil, src(`game.set("roll", game.roll(6))`))
	play(t, e, d, Name, "Record")

	want := dice.NewRoller(7).Face(6)
	assert.Equal(t, want, pr.state[0]["roll"])
}

func TestScript_ErrorDoesNotStopChain(t *testing.T) {
	e, d, pr := setup(t, nil, src(`error("boom")`))

	play(t, e, d, Name, "Record")
	assert.Len(t, pr.params, 1)
}

func TestScript_Sandbox(t *testing.T) {
	e, d, pr := setup(t, nil, src(`
		game.set("io", io == nil)
		game.set("os", os == nil)
		game.set("dofile", dofile == nil)
		game.set("loadfile", loadfile == nil)
		game.set("load", load == nil)
		game.set("loadstring", loadstring == nil)
		game.set("math", math.floor(2.5))
	`))

	play(t, e, d, Name, "Record")

	require.Len(t, pr.state, 1)
	for _, global := range []string{"io", "os", "dofile", "loadfile", "load", "loadstring"} {
		assert.Equal(t, true, pr.state[0][global], global)
	}
	assert.Equal(t, 2, pr.state[0]["math"])
}

func TestScript_CannotReadHostFiles(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.lua")
	require.NoError(t, os.WriteFile(secret, []byte(`return "leaked"`), 0o644))

	e, d, pr := setup(t, nil, src(fmt.Sprintf(`
		local ok, v = pcall(function() return dofile(%q) end)
		game.set("ok", ok)
		game.set("value", v == "leaked")
	`, secret)))

	play(t, e, d, Name, "Record")

	require.Len(t, pr.state, 1)
	assert.Equal(t, false, pr.state[0]["ok"])
	assert.Equal(t, false, pr.state[0]["value"])
}

func TestScript_FileSourceIsCached(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/scripts/bonus.lua", []byte(`game.set("n", (game.get("n") or 0) + 1)`), 0o644))

	eng := NewEngine(fsys, app.NopLogger())
	params := board.Params{{Key: "file", Value: "/scripts/bonus.lua"}}
	c := &effect.Call{Params: params, State: effect.State{}, Env: newEnv(t, nil)}

	assert.Nil(t, eng.Effect(c))
	require.NoError(t, fsys.Remove("/scripts/bonus.lua"))
	assert.Nil(t, eng.Effect(c))
	assert.Equal(t, 2, c.State["n"])
}

func TestScript_MissingSource(t *testing.T) {
	eng := NewEngine(afero.NewMemMapFs(), app.NopLogger())

	tests := []struct {
		name   string
		params board.Params
		want   string
	}{
		{name: "no params", want: ErrNoSource.Error()},
		{name: "blank source", params: board.Params{{Key: "source", Value: "  "}}, want: ErrNoSource.Error()},
		{name: "missing file", params: board.Params{{Key: "file", Value: "/nope.lua"}}, want: "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := eng.source(tt.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestToParams_FormatsValues(t *testing.T) {
	e, d, pr := setup(t, nil, src(`game.chain("Record", {b = true, f = 1.5, n = 4, s = "s"})`))
	play(t, e, d, Name)

	require.Len(t, pr.params, 1)
	got := map[string]string{}
	for _, p := range pr.params[0] {
		got[p.Key] = p.Value
	}
	assert.Equal(t, map[string]string{"b": "true", "f": "1.5", "n": "4", "s": "s"}, got)
	_, err := strconv.ParseFloat(got["f"], 64)
	assert.NoError(t, err)
}
