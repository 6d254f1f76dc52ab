package board

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// ErrMissingDependency is returned when a rebuild lacks one of its inputs
var ErrMissingDependency = errors.New("board rebuild: missing dependency")

// Scene spawns and destroys the visuals of the cells
type Scene interface {
	Spawn(kind, name string) task.Resource
	Destroy(h task.Resource)
}

// Builder owns the current board and rebuilds it when its inputs change.
// A failed rebuild leaves the previous board in place.
type Builder struct {
	Definition *Definition
	Geometry   Geometry
	// Prefab is the scene kind spawned for every cell
	Prefab string
	Scene  Scene

	logger app.Logger
	board  *Board
}

// NewBuilder creates a builder with no board
func NewBuilder(logger app.Logger) *Builder {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Builder{logger: logger}
}

// Board returns the current board, nil before the first successful rebuild
func (b *Builder) Board() *Board {
	return b.board
}

func (b *Builder) missing() string {
	switch {
	case b.Definition == nil:
		return "definition"
	case b.Geometry.BoardSize <= 0 || b.Geometry.CellSize <= 0:
		return "waypoints"
	case b.Prefab == "":
		return "prefab"
	case b.Scene == nil:
		return "scene"
	}
	return ""
}

// Rebuild destroys the current cells and lays out a new ring
func (b *Builder) Rebuild() (*Board, error) {
	if what := b.missing(); what != "" {
		err := fmt.Errorf("%w: %s", ErrMissingDependency, what)
		b.logger.Error("%v; keeping the current board", err)
		return b.board, err
	}

	next, err := New(b.Definition, b.Geometry)
	if err != nil {
		b.logger.Error("board rebuild failed: %v", err)
		return b.board, fmt.Errorf("board rebuild: %w", err)
	}

	b.Destroy()
	for _, c := range next.cells {
		c.visual = b.Scene.Spawn(b.Prefab, fmt.Sprintf("cell-%02d", c.index))
	}
	b.board = next
	b.logger.Debug("board rebuilt: %d cells from %q", next.Len(), b.Definition.Name())
	return next, nil
}

// Destroy removes the current board and its visuals
func (b *Builder) Destroy() {
	if b.board == nil {
		return
	}
	for _, c := range b.board.cells {
		c.Deactivate()
		if c.visual != nil && b.Scene != nil {
			b.Scene.Destroy(c.visual)
		}
		c.visual = nil
	}
	b.board = nil
}
