// Package headless provides collaborators that run the engine without a
// renderer: pieces teleport, animations only report durations and input is
// simulated on a timer.
package headless

import (
	"fmt"
	"sort"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// Object is a spawned scene object
type Object struct {
	Kind      string
	Name      string
	destroyed bool
}

// Destroyed implements task.Resource
func (o *Object) Destroyed() bool {
	return o.destroyed
}

// Piece is a headless player token
type Piece struct {
	Object
	Position model.Vec
	Scale    float64
	// Size is the edge length at scale 1
	Size float64
}

// Extent implements player.Piece
func (p *Piece) Extent() (model.Rect, bool) {
	if p.destroyed {
		return model.Rect{}, false
	}
	s := p.Size * p.Scale
	return model.RectAround(p.Position, s, s), true
}

// Scene keeps track of spawned objects
type Scene struct {
	// PieceSize is the edge length of spawned pieces
	PieceSize float64

	logger  app.Logger
	objects map[string]*Object
	pieces  map[string]*Piece
	seq     int
}

// NewScene creates an empty scene
func NewScene(logger app.Logger) *Scene {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Scene{
		PieceSize: 0.4,
		logger:    logger,
		objects:   make(map[string]*Object),
		pieces:    make(map[string]*Piece),
	}
}

// Spawn implements board.Scene
func (s *Scene) Spawn(kind, name string) task.Resource {
	s.seq++
	o := &Object{Kind: kind, Name: name}
	s.objects[s.key(name)] = o
	return o
}

// SpawnPiece implements output.Scene
func (s *Scene) SpawnPiece(name string, at model.Vec) player.Piece {
	s.seq++
	p := &Piece{
		Object:   Object{Kind: "piece", Name: name},
		Position: at,
		Scale:    1,
		Size:     s.PieceSize,
	}
	s.pieces[s.key(name)] = p
	s.logger.Debug("scene: spawned piece %s at %v", name, at)
	return p
}

func (s *Scene) key(name string) string {
	return fmt.Sprintf("%06d:%s", s.seq, name)
}

// Destroy implements board.Scene
func (s *Scene) Destroy(h task.Resource) {
	switch o := h.(type) {
	case *Object:
		o.destroyed = true
	case *Piece:
		o.destroyed = true
	default:
		s.logger.Warn("scene: cannot destroy foreign handle %T", h)
		return
	}
	s.prune()
}

func (s *Scene) prune() {
	for k, o := range s.objects {
		if o.destroyed {
			delete(s.objects, k)
		}
	}
	for k, p := range s.pieces {
		if p.destroyed {
			delete(s.pieces, k)
		}
	}
}

// Live returns the number of objects and pieces not destroyed
func (s *Scene) Live() int {
	return len(s.objects) + len(s.pieces)
}

// Pieces returns the live pieces in spawn order
func (s *Scene) Pieces() []*Piece {
	keys := make([]string, 0, len(s.pieces))
	for k := range s.pieces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Piece, len(keys))
	for i, k := range keys {
		out[i] = s.pieces[k]
	}
	return out
}
