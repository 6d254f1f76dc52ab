// Package effect maps effect names found in cell and card definitions to
// the code that plays them.
//
// An effect runs as its own task. Dispatch plays a list of names one after
// another, waiting for each effect task to end before starting the next, and
// silently skips names nothing is registered under.
package effect

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// MaxChainDepth bounds how deep effects may trigger further effects, e.g.
// an Advance landing on a cell whose enter effects advance again
const MaxChainDepth = 8

// Func plays one effect. The returned sequence is driven by the effect's own
// task; a nil sequence ends the effect immediately.
type Func func(c *Call) task.Sequence

// Announcer shows a short message to the players
type Announcer interface {
	Announce(text string)
}

// Prompter opens modal dialogs. The dialog is closed once its handle is
// destroyed.
type Prompter interface {
	Open(title, body string) task.Resource
}

// Flags is the boolean settings store
type Flags interface {
	Flag(name string) bool
}

// Env gives effects access to the running game
type Env interface {
	Context() context.Context
	Logger() app.Logger
	Scheduler() *task.Scheduler
	Focus() *focus.Stack
	Board() *board.Board
	Players() []*player.Player
	Direction() model.Direction
	SetDirection(d model.Direction)
	Roller() *dice.Roller
	Draw(deck string) (*board.Card, error)
	Announcer() Announcer
	Prompter() Prompter
	Flags() Flags
	// Walk moves p by steps cells. With trigger set the enter effects of the
	// destination are chained from c.
	Walk(c *Call, p *player.Player, steps int, trigger bool) task.Sequence
}

// State is the key/value scratch space shared by every effect of one chain
type State map[string]interface{}

// Set stores a value
func (s State) Set(key string, v interface{}) {
	s[key] = v
}

// Int returns the integer stored under key
func (s State) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// String returns the string stored under key
func (s State) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Call is the context one effect runs with
type Call struct {
	Ctx    context.Context
	Name   string
	Params board.Params
	Cell   *board.Cell
	Player *player.Player
	Card   *board.Card
	State  State
	Env    Env
	// Task is the effect's own task
	Task *task.Task

	depth int
	d     *Dispatcher
}

// Depth returns how many chains this call is nested in
func (c *Call) Depth() int {
	return c.depth
}

// Chain dispatches names as a nested chain sharing this call's state. A nil
// params list falls back to the cell definition's parameters.
func (c *Call) Chain(names []string, cell *board.Cell, p *player.Player, params board.Params) task.Sequence {
	return c.d.dispatch(chain{
		ctx:    c.Ctx,
		names:  names,
		cell:   cell,
		player: p,
		params: params,
		card:   c.Card,
		state:  c.State,
		depth:  c.depth + 1,
	})
}

// Sleep waits d of game time
func (c *Call) Sleep(d time.Duration) task.Sequence {
	return task.Sleep(c.Env.Scheduler(), d)
}

// Seconds reads a duration parameter given in seconds
func (c *Call) Seconds(key string, def time.Duration) time.Duration {
	f := c.Params.Float(key, def.Seconds())
	if f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// Normalize returns the canonical form of an effect name
func Normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
