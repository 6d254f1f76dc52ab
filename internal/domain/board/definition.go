package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Param is one key/value entry of a cell or card definition
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter list. Keys may repeat; lookups return the
// first match.
type Params []Param

// Get returns the first value stored under key
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// String returns the value under key or def
func (p Params) String(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Int returns the value under key parsed as an integer, or def when missing
// or malformed
func (p Params) Int(key string, def int) int {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Float returns the value under key parsed as a float, or def
func (p Params) Float(key string, def float64) float64 {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the value under key parsed as a boolean, or def
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func (p Params) clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

func cloneNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// CellDefinition describes what happens on a cell. It is immutable once
// created; accessors return copies.
type CellDefinition struct {
	title    string
	material string
	enter    []string
	leave    []string
	params   Params
}

// NewCellDefinition creates a cell definition
func NewCellDefinition(title, material string, enter, leave []string, params Params) *CellDefinition {
	return &CellDefinition{
		title:    title,
		material: material,
		enter:    cloneNames(enter),
		leave:    cloneNames(leave),
		params:   params.clone(),
	}
}

// Title returns the display title
func (d *CellDefinition) Title() string {
	return d.title
}

// Material returns the display material name
func (d *CellDefinition) Material() string {
	return d.material
}

// Enter returns the effect names dispatched when a player lands on the cell
func (d *CellDefinition) Enter() []string {
	return cloneNames(d.enter)
}

// Leave returns the effect names dispatched when a player walks off the cell
func (d *CellDefinition) Leave() []string {
	return cloneNames(d.leave)
}

// Params returns the parameter list
func (d *CellDefinition) Params() Params {
	return d.params.clone()
}

// Card is an entry of a deck. DrawCard dispatches its effects.
type Card struct {
	name    string
	title   string
	effects []string
	params  Params
}

// NewCard creates a card
func NewCard(name, title string, effects []string, params Params) *Card {
	return &Card{
		name:    name,
		title:   title,
		effects: cloneNames(effects),
		params:  params.clone(),
	}
}

// Name returns the card identifier
func (c *Card) Name() string {
	return c.name
}

// Title returns the display title
func (c *Card) Title() string {
	return c.title
}

// Effects returns the effect names run when the card is drawn
func (c *Card) Effects() []string {
	return cloneNames(c.effects)
}

// Params returns the parameter list
func (c *Card) Params() Params {
	return c.params.clone()
}

// ErrEmptyDefinition is returned when a definition has no cells
var ErrEmptyDefinition = errors.New("board definition has no cells")

// Definition is a loaded board definition: the cell definitions the ring
// is laid out with and the card decks effects draw from.
type Definition struct {
	name             string
	cells            []*CellDefinition
	decks            map[string][]*Card
	useFirstCellOnce bool
}

// NewDefinition creates a definition
func NewDefinition(name string, cells []*CellDefinition, useFirstCellOnce bool) (*Definition, error) {
	if len(cells) == 0 {
		return nil, ErrEmptyDefinition
	}
	for i, c := range cells {
		if c == nil {
			return nil, fmt.Errorf("cell definition %d is nil", i)
		}
	}
	out := make([]*CellDefinition, len(cells))
	copy(out, cells)
	return &Definition{
		name:             name,
		cells:            out,
		decks:            make(map[string][]*Card),
		useFirstCellOnce: useFirstCellOnce,
	}, nil
}

// Name returns the definition name
func (d *Definition) Name() string {
	return d.name
}

// Len returns the number of cell definitions
func (d *Definition) Len() int {
	return len(d.cells)
}

// UseFirstCellOnce reports whether the first cell definition is reserved
// for the start cell
func (d *Definition) UseFirstCellOnce() bool {
	return d.useFirstCellOnce
}

// WithFirstCellOnce returns a copy of d with the use-first-cell-once flag set
// to v. Decks are shared.
func (d *Definition) WithFirstCellOnce(v bool) *Definition {
	out := *d
	out.useFirstCellOnce = v
	return &out
}

// GetCell maps a ring index to a cell definition. Definitions repeat around
// the ring. With use-first-cell-once the first definition is used for index 0
// only and the rest cycle over the remaining ones, so index 0 and index Len()
// map to different definitions.
func (d *Definition) GetCell(i int) *CellDefinition {
	n := len(d.cells)
	if d.useFirstCellOnce && n > 1 {
		if i == 0 {
			return d.cells[0]
		}
		return d.cells[1+mod(i-1, n-1)]
	}
	return d.cells[mod(i, n)]
}

// AddDeck registers a card deck under name, replacing any previous one
func (d *Definition) AddDeck(name string, cards []*Card) {
	out := make([]*Card, len(cards))
	copy(out, cards)
	d.decks[name] = out
}

// Deck returns the cards of a deck
func (d *Definition) Deck(name string) ([]*Card, bool) {
	cards, ok := d.decks[name]
	if !ok {
		return nil, false
	}
	out := make([]*Card, len(cards))
	copy(out, cards)
	return out, true
}

// DeckNames returns the registered deck names
func (d *Definition) DeckNames() []string {
	names := make([]string, 0, len(d.decks))
	for name := range d.decks {
		names = append(names, name)
	}
	return names
}

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}
