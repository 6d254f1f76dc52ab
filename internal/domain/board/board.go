// Package board models the ring of cells players walk around.
//
// A board with side length boardSize has N = 4*boardSize cells laid out on the
// perimeter of a square, starting at a corner and running counter-clockwise.
// Every index is taken modulo N, negative ones included.
package board

import (
	"fmt"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
)

// Geometry holds the parameters the ring is laid out with
type Geometry struct {
	// BoardSize is the number of cells per side
	BoardSize int
	// CellSize is the edge length of a cell
	CellSize float64
	// Origin is the centre of cell 0
	Origin model.Vec
}

// Validate checks that the geometry can lay out a ring
func (g Geometry) Validate() error {
	if g.BoardSize <= 0 {
		return fmt.Errorf("board size must be positive, got %d", g.BoardSize)
	}
	if g.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %v", g.CellSize)
	}
	return nil
}

// Len returns the ring size N
func (g Geometry) Len() int {
	return 4 * g.BoardSize
}

// Waypoint returns the centre of ring index i
func (g Geometry) Waypoint(i int) model.Vec {
	n := g.BoardSize
	i = mod(i, g.Len())
	side, off := i/n, float64(i%n)
	size := float64(n)

	var p model.Vec
	switch side {
	case 0:
		p = model.Vec{X: off, Y: 0}
	case 1:
		p = model.Vec{X: size, Y: off}
	case 2:
		p = model.Vec{X: size - off, Y: size}
	default:
		p = model.Vec{X: 0, Y: size - off}
	}
	return g.Origin.Add(p.Scale(g.CellSize))
}

// Board is the ring of cells
type Board struct {
	geometry Geometry
	def      *Definition
	cells    []*Cell
}

// New lays out a ring over def. All cells start active.
func New(def *Definition, g Geometry) (*Board, error) {
	if def == nil {
		return nil, ErrEmptyDefinition
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n := g.Len()
	b := &Board{
		geometry: g,
		def:      def,
		cells:    make([]*Cell, n),
	}
	for i := 0; i < n; i++ {
		bounds := model.RectAround(g.Waypoint(i), g.CellSize, g.CellSize)
		c := newCell(i, i%g.BoardSize == 0, bounds, def.GetCell(i))
		c.Activate()
		b.cells[i] = c
	}
	return b, nil
}

// Len returns the ring size N
func (b *Board) Len() int {
	return len(b.cells)
}

// Geometry returns the layout parameters
func (b *Board) Geometry() Geometry {
	return b.geometry
}

// Definition returns the definition the board was built from
func (b *Board) Definition() *Definition {
	return b.def
}

// Index normalizes i into [0, N)
func (b *Board) Index(i int) int {
	return mod(i, len(b.cells))
}

// Cell returns the cell at i mod N
func (b *Board) Cell(i int) *Cell {
	return b.cells[b.Index(i)]
}

// Cells returns the cells in ring order
func (b *Board) Cells() []*Cell {
	out := make([]*Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Path returns the indices visited when walking steps cells from from,
// excluding the origin and ending on the destination. A negative count walks
// backwards; zero returns an empty path.
func (b *Board) Path(from, steps int) []int {
	n := abs(steps)
	sign := 1
	if steps < 0 {
		sign = -1
	}
	path := make([]int, 0, n)
	for k := 1; k <= n; k++ {
		path = append(path, b.Index(from+sign*k))
	}
	return path
}

// Waypoints returns the cell centres along path
func (b *Board) Waypoints(path []int) []model.Vec {
	out := make([]model.Vec, len(path))
	for i, idx := range path {
		out[i] = b.Cell(idx).Center()
	}
	return out
}

// ShortestPath returns the signed step count of the shortest walk from one
// index to another. Ties go forward.
func (b *Board) ShortestPath(from, to int) int {
	n := len(b.cells)
	fwd := mod(to-from, n)
	if fwd <= n-fwd {
		return fwd
	}
	return fwd - n
}

// Extent implements focus.Trackable and frames the whole board
func (b *Board) Extent() (model.Rect, bool) {
	if len(b.cells) == 0 {
		return model.Rect{}, false
	}
	r := b.cells[0].bounds
	for _, c := range b.cells[1:] {
		r = r.Union(c.bounds)
	}
	return r, true
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
