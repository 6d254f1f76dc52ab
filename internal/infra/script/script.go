// Package script plays effects written in Lua.
//
// A Script effect runs its chunk once when the effect starts. The chunk sees
// a global "game" table to inspect the turn, edit the chain state and queue
// further effects; queued effects are chained after the chunk returns.
package script

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// Name is the effect name scripts are registered under
const Name = "Script"

// ErrNoSource is returned when neither a source nor a file parameter is set
var ErrNoSource = errors.New("script needs a source or file parameter")

// Engine loads and runs Lua chunks for the Script effect
type Engine struct {
	fs     afero.Fs
	logger app.Logger
	cache  map[string]string
}

// NewEngine creates an engine reading script files from fsys. A nil fsys
// only allows inline sources.
func NewEngine(fsys afero.Fs, logger app.Logger) *Engine {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Engine{fs: fsys, logger: logger, cache: make(map[string]string)}
}

// Register adds the Script effect to reg
func (e *Engine) Register(reg *effect.Registry) error {
	return reg.Register(Name, e.Effect)
}

// queued is one effect requested by a script
type queued struct {
	name   string
	params board.Params
}

// Effect implements effect.Func. params: source (inline Lua) or file
func (e *Engine) Effect(c *effect.Call) task.Sequence {
	src, chunk, err := e.source(c.Params)
	if err != nil {
		return task.Fail(err)
	}

	var out []queued
	l := newState()
	e.openGame(l, c, &out)
	if err := lua.LoadString(l, src); err != nil {
		return task.Fail(fmt.Errorf("script %s: load: %w", chunk, err))
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return task.Fail(fmt.Errorf("script %s: run: %w", chunk, err))
	}

	if len(out) == 0 {
		return nil
	}
	parts := make([]task.Sequence, 0, len(out))
	for _, q := range out {
		q := q
		parts = append(parts, task.Lazy(func() task.Sequence {
			return c.Chain([]string{q.name}, c.Cell, c.Player, q.params)
		}))
	}
	return task.Seq(parts...)
}

func (e *Engine) source(params board.Params) (string, string, error) {
	if src, ok := params.Get("source"); ok && strings.TrimSpace(src) != "" {
		return src, "inline", nil
	}
	path, ok := params.Get("file")
	if !ok || strings.TrimSpace(path) == "" {
		return "", "", ErrNoSource
	}
	if src, ok := e.cache[path]; ok {
		return src, path, nil
	}
	if e.fs == nil {
		return "", "", fmt.Errorf("script %s: no filesystem configured", path)
	}
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return "", "", fmt.Errorf("script %s: read: %w", path, err)
	}
	e.cache[path] = string(data)
	return string(data), path, nil
}

// hostLoaders are base functions that load chunks from the host file system
// or from strings; scripts only reach files through the engine's Fs
var hostLoaders = []string{"dofile", "loadfile", "load", "loadstring"}

// newState opens the libraries that cannot reach outside the game
func newState() *lua.State {
	l := lua.NewState()
	for _, lib := range []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "math", Function: lua.MathOpen},
	} {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range hostLoaders {
		l.PushNil()
		l.SetGlobal(name)
	}
	return l
}

func (e *Engine) openGame(l *lua.State, c *effect.Call, out *[]queued) {
	enqueue := func(name string, params board.Params) {
		*out = append(*out, queued{name: effect.Normalize(name), params: params})
	}

	fns := []lua.RegistryFunction{
		{Name: "player", Function: func(l *lua.State) int {
			p := c.Player
			if p == nil {
				l.PushNil()
				return 1
			}
			l.NewTable()
			l.PushInteger(p.Seat())
			l.SetField(-2, "seat")
			l.PushString(p.Name())
			l.SetField(-2, "name")
			l.PushInteger(p.Cell())
			l.SetField(-2, "cell")
			l.PushInteger(p.ExtraTurns())
			l.SetField(-2, "extra_turns")
			return 1
		}},
		{Name: "players", Function: func(l *lua.State) int {
			l.PushInteger(len(c.Env.Players()))
			return 1
		}},
		{Name: "cell", Function: func(l *lua.State) int {
			if c.Cell == nil {
				l.PushNil()
				return 1
			}
			l.PushInteger(c.Cell.Index())
			return 1
		}},
		{Name: "cells", Function: func(l *lua.State) int {
			b := c.Env.Board()
			if b == nil {
				l.PushInteger(0)
				return 1
			}
			l.PushInteger(b.Len())
			return 1
		}},
		{Name: "param", Function: func(l *lua.State) int {
			key := lua.CheckString(l, 1)
			if v, ok := c.Params.Get(key); ok {
				l.PushString(v)
				return 1
			}
			if l.IsNoneOrNil(2) {
				l.PushNil()
				return 1
			}
			l.PushValue(2)
			return 1
		}},
		{Name: "get", Function: func(l *lua.State) int {
			pushValue(l, c.State[lua.CheckString(l, 1)])
			return 1
		}},
		{Name: "set", Function: func(l *lua.State) int {
			key := lua.CheckString(l, 1)
			if l.IsNoneOrNil(2) {
				delete(c.State, key)
				return 0
			}
			c.State.Set(key, toValue(l, 2))
			return 0
		}},
		{Name: "roll", Function: func(l *lua.State) int {
			sides := lua.OptInteger(l, 1, 6)
			if sides < 1 {
				lua.ArgumentError(l, 1, "sides must be positive")
			}
			l.PushInteger(c.Env.Roller().Face(sides))
			return 1
		}},
		{Name: "direction", Function: func(l *lua.State) int {
			l.PushInteger(c.Env.Direction().Sign())
			return 1
		}},
		{Name: "reverse", Function: func(l *lua.State) int {
			c.Env.SetDirection(c.Env.Direction().Reverse())
			return 0
		}},
		{Name: "grant_extra_turn", Function: func(l *lua.State) int {
			n := lua.OptInteger(l, 1, 1)
			if c.Player != nil {
				c.Player.GrantExtraTurns(n)
			}
			return 0
		}},
		{Name: "announce", Function: func(l *lua.State) int {
			text := lua.CheckString(l, 1)
			if a := c.Env.Announcer(); a != nil {
				a.Announce(text)
			}
			return 0
		}},
		{Name: "log", Function: func(l *lua.State) int {
			e.logger.Debug("script %s: %s", c.Name, lua.CheckString(l, 1))
			return 0
		}},
		{Name: "flag", Function: func(l *lua.State) int {
			f := c.Env.Flags()
			l.PushBoolean(f != nil && f.Flag(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "chain", Function: func(l *lua.State) int {
			name := lua.CheckString(l, 1)
			var params board.Params
			if l.TypeOf(2) == lua.TypeTable {
				params = toParams(l, 2)
			}
			enqueue(name, params)
			return 0
		}},
		{Name: "advance", Function: func(l *lua.State) int {
			steps := lua.CheckInteger(l, 1)
			trigger := true
			if !l.IsNoneOrNil(2) {
				trigger = l.ToBoolean(2)
			}
			enqueue(effect.Advance, board.Params{
				{Key: "steps", Value: strconv.Itoa(steps)},
				{Key: "trigger", Value: strconv.FormatBool(trigger)},
			})
			return 0
		}},
		{Name: "wait", Function: func(l *lua.State) int {
			secs := lua.CheckNumber(l, 1)
			enqueue(effect.Wait, board.Params{
				{Key: "seconds", Value: strconv.FormatFloat(secs, 'f', -1, 64)},
			})
			return 0
		}},
	}

	l.NewTable()
	lua.SetFunctions(l, fns, 0)
	l.SetGlobal("game")
}

// pushValue pushes a chain state value
func pushValue(l *lua.State, v interface{}) {
	switch v := v.(type) {
	case nil:
		l.PushNil()
	case string:
		l.PushString(v)
	case bool:
		l.PushBoolean(v)
	case int:
		l.PushInteger(v)
	case int64:
		l.PushInteger(int(v))
	case float64:
		l.PushNumber(v)
	case model.Direction:
		l.PushInteger(v.Sign())
	case time.Duration:
		l.PushNumber(v.Seconds())
	default:
		l.PushString(fmt.Sprint(v))
	}
}

// toValue converts the Lua value at index to a chain state value. Integral
// numbers become ints so built-ins reading the state see the same type.
func toValue(l *lua.State, index int) interface{} {
	switch l.TypeOf(index) {
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		if f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
			return int(f)
		}
		return f
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	default:
		s, _ := l.ToString(index)
		return s
	}
}

// toParams converts a Lua table with string keys to params sorted by key
func toParams(l *lua.State, index int) board.Params {
	index = l.AbsIndex(index)
	var params board.Params
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			params = append(params, board.Param{Key: key, Value: formatValue(l, -1)})
		}
		l.Pop(1)
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })
	return params
}

func formatValue(l *lua.State, index int) string {
	switch l.TypeOf(index) {
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		return strconv.FormatFloat(f, 'f', -1, 64)
	case lua.TypeBoolean:
		return strconv.FormatBool(l.ToBoolean(index))
	default:
		s, _ := l.ToString(index)
		return s
	}
}
