package board

import (
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// Occupant is something that can take a parking slot on a cell
type Occupant interface {
	Seat() int
}

// Cell is one position of the ring
type Cell struct {
	index  int
	corner bool
	bounds model.Rect
	def    *CellDefinition

	active bool
	slots  []Occupant
	visual task.Resource
}

func newCell(index int, corner bool, bounds model.Rect, def *CellDefinition) *Cell {
	return &Cell{
		index:  index,
		corner: corner,
		bounds: bounds,
		def:    def,
	}
}

// Index returns the ring index
func (c *Cell) Index() int {
	return c.index
}

// Corner reports whether the cell sits on a corner of the board
func (c *Cell) Corner() bool {
	return c.corner
}

// Bounds returns the spatial bounds
func (c *Cell) Bounds() model.Rect {
	return c.bounds
}

// Center returns the centre of the cell
func (c *Cell) Center() model.Vec {
	return c.bounds.Center()
}

// Extent implements focus.Trackable
func (c *Cell) Extent() (model.Rect, bool) {
	return c.bounds, true
}

// Definition returns the cell definition
func (c *Cell) Definition() *CellDefinition {
	return c.def
}

// Visual returns the spawned scene handle, nil when none
func (c *Cell) Visual() task.Resource {
	return c.visual
}

// Active reports whether the cell currently accepts parked players
func (c *Cell) Active() bool {
	return c.active
}

// Activate creates an empty parking list
func (c *Cell) Activate() {
	c.active = true
	c.slots = nil
}

// Deactivate clears the parking list
func (c *Cell) Deactivate() {
	c.active = false
	c.slots = nil
}

// Park puts o into the first free slot, growing the list when every slot is
// taken, and returns the slot index. Parking on an inactive cell returns -1.
func (c *Cell) Park(o Occupant) int {
	if !c.active || o == nil {
		return -1
	}
	for i, s := range c.slots {
		if s == nil {
			c.slots[i] = o
			return i
		}
	}
	c.slots = append(c.slots, o)
	return len(c.slots) - 1
}

// Unpark frees the slot held by o and trims trailing empty slots.
func (c *Cell) Unpark(o Occupant) bool {
	for i, s := range c.slots {
		if s != nil && s.Seat() == o.Seat() {
			c.slots[i] = nil
			c.trim()
			return true
		}
	}
	return false
}

func (c *Cell) trim() {
	n := len(c.slots)
	for n > 0 && c.slots[n-1] == nil {
		n--
	}
	c.slots = c.slots[:n]
}

// Slots returns the length of the parking list, free slots included
func (c *Cell) Slots() int {
	return len(c.slots)
}

// Slot returns the occupant of slot i, nil when free or out of range
func (c *Cell) Slot(i int) Occupant {
	if i < 0 || i >= len(c.slots) {
		return nil
	}
	return c.slots[i]
}

// Parked returns the number of occupied slots
func (c *Cell) Parked() int {
	n := 0
	for _, s := range c.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// SlotPosition returns where a piece parked in slot i stands. Slots fill the
// cell in a 2x2 grid of quarters; further slots wrap around it.
func (c *Cell) SlotPosition(i int) model.Vec {
	w, h := c.bounds.Size()
	quarter := []model.Vec{
		{X: -w / 4, Y: -h / 4},
		{X: w / 4, Y: -h / 4},
		{X: -w / 4, Y: h / 4},
		{X: w / 4, Y: h / 4},
	}
	if i < 0 {
		i = 0
	}
	return c.Center().Add(quarter[i%len(quarter)])
}
