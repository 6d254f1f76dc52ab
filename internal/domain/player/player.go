// Package player holds the state of a seat at the table: where its piece
// stands, whether it is parked, and how many extra turns it has banked.
package player

import (
	"fmt"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// Piece is the visual token of a player. It is owned by the scene; the
// player only keeps the handle.
type Piece interface {
	task.Resource
	Extent() (model.Rect, bool)
}

// Player is one seat
type Player struct {
	seat  int
	name  string
	start int
	cell  int
	piece Piece

	extraTurns int
	moving     bool

	parkedOn *board.Cell
	slot     int
}

// New creates a player standing on the start cell
func New(seat int, name string, start int) *Player {
	if name == "" {
		name = fmt.Sprintf("Player %d", seat+1)
	}
	return &Player{
		seat:  seat,
		name:  name,
		start: start,
		cell:  start,
		slot:  -1,
	}
}

// Seat implements board.Occupant
func (p *Player) Seat() int {
	return p.seat
}

// Name returns the display name
func (p *Player) Name() string {
	return p.name
}

// Start returns the start cell index
func (p *Player) Start() int {
	return p.start
}

// Cell returns the index of the cell the player stands on
func (p *Player) Cell() int {
	return p.cell
}

// SetCell moves the player logically; animation is up to the caller
func (p *Player) SetCell(i int) {
	p.cell = i
}

// Piece returns the piece handle, nil before spawn
func (p *Player) Piece() Piece {
	return p.piece
}

// AttachPiece sets the piece handle
func (p *Player) AttachPiece(piece Piece) {
	p.piece = piece
}

// Extent implements focus.Trackable through the piece
func (p *Player) Extent() (model.Rect, bool) {
	if p.piece == nil || p.piece.Destroyed() {
		return model.Rect{}, false
	}
	return p.piece.Extent()
}

// ExtraTurns returns the number of banked extra turns
func (p *Player) ExtraTurns() int {
	return p.extraTurns
}

// GrantExtraTurns banks n more turns. Non-positive n is ignored.
func (p *Player) GrantExtraTurns(n int) {
	if n > 0 {
		p.extraTurns += n
	}
}

// ConsumeExtraTurn uses one banked turn if there is any
func (p *Player) ConsumeExtraTurn() bool {
	if p.extraTurns == 0 {
		return false
	}
	p.extraTurns--
	return true
}

// Moving reports whether a movement is in progress
func (p *Player) Moving() bool {
	return p.moving
}

// BeginMove sets the movement guard. It returns false when a movement is
// already in progress.
func (p *Player) BeginMove() bool {
	if p.moving {
		return false
	}
	p.moving = true
	return true
}

// EndMove clears the movement guard
func (p *Player) EndMove() {
	p.moving = false
}

// Parked reports whether the player occupies a parking slot
func (p *Player) Parked() bool {
	return p.parkedOn != nil
}

// ParkedAt returns the cell and slot the player is parked in
func (p *Player) ParkedAt() (*board.Cell, int) {
	return p.parkedOn, p.slot
}

// Park takes the first free slot on c. A player already parked elsewhere is
// unparked first.
func (p *Player) Park(c *board.Cell) (int, error) {
	if p.parkedOn != nil {
		p.Unpark()
	}
	slot := c.Park(p)
	if slot < 0 {
		return -1, fmt.Errorf("cell %d is not active", c.Index())
	}
	p.parkedOn, p.slot = c, slot
	return slot, nil
}

// Unpark frees the parking slot. It returns false when the player was not
// parked.
func (p *Player) Unpark() bool {
	if p.parkedOn == nil {
		return false
	}
	p.parkedOn.Unpark(p)
	p.parkedOn, p.slot = nil, -1
	return true
}

// Reset puts the player back on its start cell with no banked turns
func (p *Player) Reset() {
	p.Unpark()
	p.cell = p.start
	p.extraTurns = 0
	p.moving = false
}

// String returns a short description for logs
func (p *Player) String() string {
	return fmt.Sprintf("%s@%d", p.name, p.cell)
}
