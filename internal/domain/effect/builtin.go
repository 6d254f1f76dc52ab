package effect

import (
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/focus"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// Built-in effect names
const (
	Announce         = "Announce"
	Prompt           = "Prompt"
	Advance          = "Advance"
	AdvanceAll       = "AdvanceAll"
	HoldFocus        = "HoldFocus"
	DrawCard         = "DrawCard"
	ChoosePlayer     = "ChoosePlayer"
	AdvanceChosen    = "AdvanceChosen"
	ExtraTurn        = "ExtraTurn"
	ReverseDirection = "ReverseDirection"
	Wait             = "Wait"
	MoveTo           = "MoveTo"
)

// State keys written by built-in effects
const (
	StateChosen = "chosen"
	StateCard   = "card"
)

// DefaultDeck is drawn from when DrawCard has no deck parameter
const DefaultDeck = "chance"

// ErrNoChosenPlayer is returned by AdvanceChosen when no player was chosen
// earlier in the chain
var ErrNoChosenPlayer = errors.New("no player chosen in this effect chain")

// RegisterBuiltins adds the built-in effects to r
func RegisterBuiltins(r *Registry) {
	r.MustRegister(Announce, announce)
	r.MustRegister(Prompt, prompt)
	r.MustRegister(Advance, advance)
	r.MustRegister(AdvanceAll, advanceAll)
	r.MustRegister(HoldFocus, holdFocus)
	r.MustRegister(DrawCard, drawCard)
	r.MustRegister(ChoosePlayer, choosePlayer)
	r.MustRegister(AdvanceChosen, advanceChosen)
	r.MustRegister(ExtraTurn, extraTurn)
	r.MustRegister(ReverseDirection, reverseDirection)
	r.MustRegister(Wait, wait)
	r.MustRegister(MoveTo, moveTo)
}

// NewBuiltinRegistry returns a registry holding the built-in effects
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func title(c *Call) string {
	if c.Card != nil && c.Card.Title() != "" {
		return c.Card.Title()
	}
	if c.Cell != nil && c.Cell.Definition() != nil {
		return c.Cell.Definition().Title()
	}
	return c.Name
}

// announce logs a message. params: text
func announce(c *Call) task.Sequence {
	text := c.Params.String("text", title(c))
	if c.Player != nil {
		text = fmt.Sprintf("%s: %s", c.Player.Name(), text)
	}
	c.Env.Logger().Info("%s", text)
	if a := c.Env.Announcer(); a != nil {
		a.Announce(text)
	}
	return nil
}

// prompt opens a modal dialog and waits until it is closed. params: title, body
func prompt(c *Call) task.Sequence {
	p := c.Env.Prompter()
	if p == nil {
		return nil
	}
	h := p.Open(c.Params.String("title", title(c)), c.Params.String("body", c.Params.String("text", "")))
	if h == nil {
		return nil
	}
	return task.Wait(task.ResourceAlive(h))
}

// advance moves the acting player. params: steps (signed), trigger
func advance(c *Call) task.Sequence {
	if c.Player == nil {
		return nil
	}
	steps := c.Params.Int("steps", 1)
	return c.Env.Walk(c, c.Player, steps, c.Params.Bool("trigger", true))
}

// advanceAll moves every player in seat order, each move holding the camera
// on the moved piece. params: steps, trigger
func advanceAll(c *Call) task.Sequence {
	steps := c.Params.Int("steps", 1)
	trigger := c.Params.Bool("trigger", false)
	return task.Each(c.Env.Players(), func(p *player.Player) task.Sequence {
		return c.Env.Walk(c, p, steps, trigger)
	})
}

// holdFocus frames the whole board for a while. params: seconds
func holdFocus(c *Call) task.Sequence {
	d := c.Seconds("seconds", time.Second)
	b := c.Env.Board()
	if b == nil {
		return c.Sleep(d)
	}
	return focus.Hold(c.Task, c.Env.Focus(), c.Sleep(d), b)
}

// drawCard draws the next card of a deck and plays its effects. params: deck
func drawCard(c *Call) task.Sequence {
	deck := c.Params.String("deck", DefaultDeck)
	card, err := c.Env.Draw(deck)
	if err != nil {
		return task.Fail(fmt.Errorf("draw from %q: %w", deck, err))
	}
	c.State.Set(StateCard, card.Name())
	if a := c.Env.Announcer(); a != nil {
		a.Announce(fmt.Sprintf("Card: %s", card.Title()))
	}
	prev := c.Card
	c.Card = card
	seq := c.Chain(card.Effects(), c.Cell, c.Player, card.Params())
	c.Card = prev
	return seq
}

// choosePlayer picks another player and stores its seat in the chain state.
// params: mode (random, next, previous)
func choosePlayer(c *Call) task.Sequence {
	players := c.Env.Players()
	if len(players) == 0 {
		return task.Fail(errors.New("no players to choose from"))
	}
	self := -1
	if c.Player != nil {
		self = c.Player.Seat()
	}

	var chosen int
	switch mode := c.Params.String("mode", "random"); mode {
	case "next":
		chosen = (self + 1) % len(players)
	case "previous":
		chosen = (self - 1 + len(players)) % len(players)
	case "random":
		if len(players) == 1 || self < 0 {
			chosen = c.Env.Roller().Intn(len(players))
			break
		}
		// any seat but the acting one
		chosen = c.Env.Roller().Intn(len(players) - 1)
		if chosen >= self {
			chosen++
		}
	default:
		return task.Fail(fmt.Errorf("unknown choose mode %q", mode))
	}

	c.State.Set(StateChosen, chosen)
	c.Env.Logger().Debug("%s chose player %d", c.Name, chosen)
	return nil
}

// advanceChosen moves the player picked by ChoosePlayer. params: steps, trigger
func advanceChosen(c *Call) task.Sequence {
	seat, ok := c.State.Int(StateChosen)
	players := c.Env.Players()
	if !ok || seat < 0 || seat >= len(players) {
		return task.Fail(ErrNoChosenPlayer)
	}
	return c.Env.Walk(c, players[seat], c.Params.Int("steps", 1), c.Params.Bool("trigger", false))
}

// extraTurn banks extra turns for the acting player. params: turns
func extraTurn(c *Call) task.Sequence {
	if c.Player != nil {
		c.Player.GrantExtraTurns(c.Params.Int("turns", 1))
	}
	return nil
}

// reverseDirection flips the direction dice rolls move players in
func reverseDirection(c *Call) task.Sequence {
	c.Env.SetDirection(c.Env.Direction().Reverse())
	c.Env.Logger().Info("turn direction is now %s", c.Env.Direction())
	return nil
}

// wait pauses the chain. params: seconds
func wait(c *Call) task.Sequence {
	return c.Sleep(c.Seconds("seconds", time.Second))
}

// moveTo walks the acting player the short way to a cell. params: cell, trigger
func moveTo(c *Call) task.Sequence {
	b := c.Env.Board()
	if c.Player == nil || b == nil {
		return nil
	}
	target, ok := c.Params.Get("cell")
	if !ok {
		return task.Fail(errors.New("MoveTo needs a cell parameter"))
	}
	steps := b.ShortestPath(c.Player.Cell(), c.Params.Int("cell", 0))
	c.Env.Logger().Debug("%s moves %d to cell %s", c.Player, steps, target)
	if steps == 0 {
		return nil
	}
	return c.Env.Walk(c, c.Player, steps, c.Params.Bool("trigger", true))
}
