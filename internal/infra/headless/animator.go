package headless

import (
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// Animator reports animation durations and applies the end state at once
type Animator struct {
	// DieTime is how long every die tumbles
	DieTime time.Duration
	// CellSize converts path length into cells for the move speed
	CellSize float64

	Moves  int
	Scales int
	Dice   int
}

// NewAnimator creates an animator for a board with the given cell size
func NewAnimator(cellSize float64) *Animator {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Animator{DieTime: 600 * time.Millisecond, CellSize: cellSize}
}

// AnimateMove implements output.Animator. The duration is the path length in
// cells divided by speed.
func (a *Animator) AnimateMove(piece player.Piece, path []model.Vec, speed float64) time.Duration {
	a.Moves++
	p, ok := piece.(*Piece)
	if !ok || len(path) == 0 || speed <= 0 {
		return 0
	}
	var dist float64
	at := p.Position
	for _, w := range path {
		dist += at.Dist(w)
		at = w
	}
	p.Position = at
	cells := dist / a.CellSize
	return time.Duration(cells / speed * float64(time.Second))
}

// AnimateScale implements output.Animator
func (a *Animator) AnimateScale(piece player.Piece, scale float64, d time.Duration) time.Duration {
	a.Scales++
	if p, ok := piece.(*Piece); ok {
		p.Scale = scale
	}
	return d
}

// AnimateDie implements output.Animator and dice.Animator
func (a *Animator) AnimateDie(d *dice.Die) time.Duration {
	a.Dice++
	return a.DieTime
}
