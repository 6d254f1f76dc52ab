package output

import (
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// Handle is a scene object the engine can wait on with task.ResourceAlive
type Handle = task.Resource

// Animator is the rendering backend. Every call starts an animation and
// returns how long it runs; the engine never looks at interpolation.
type Animator interface {
	// AnimateMove moves piece along path at speed cells per second
	AnimateMove(piece player.Piece, path []model.Vec, speed float64) time.Duration
	// AnimateScale scales piece to scale over d
	AnimateScale(piece player.Piece, scale float64, d time.Duration) time.Duration
	// AnimateDie tumbles a die until it shows its face
	AnimateDie(d *dice.Die) time.Duration
}

// Input is the input subsystem. Presses are edge triggered: Pressed reports
// true only during the tick the key went down.
type Input interface {
	task.KeySource
	task.MotionSource
}

// Scene spawns and destroys scene objects
type Scene interface {
	board.Scene
	// SpawnPiece creates the token of a player at a position
	SpawnPiece(name string, at model.Vec) player.Piece
}

// Prompter opens modal dialogs
type Prompter = effect.Prompter

// Announcer shows short messages to the players
type Announcer = effect.Announcer

// Flags is the boolean settings store, read at every decision point
type Flags = effect.Flags

// Frame is implemented by collaborators that advance with the game clock.
// The session calls Advance before driving tasks on every tick.
type Frame interface {
	Advance(dt time.Duration)
}
