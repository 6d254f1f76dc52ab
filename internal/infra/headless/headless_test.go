package headless

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/dice"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
)

func TestScene_SpawnAndDestroy(t *testing.T) {
	s := NewScene(app.NopLogger())
	cell := s.Spawn("cell", "cell-00")
	piece := s.SpawnPiece("p1", model.Vec{X: 1, Y: 2})
	assert.Equal(t, 2, s.Live())

	r, ok := piece.Extent()
	require.True(t, ok)
	assert.Equal(t, model.Vec{X: 1, Y: 2}, r.Center())

	s.Destroy(cell)
	assert.True(t, cell.Destroyed())
	s.Destroy(piece)
	assert.True(t, piece.Destroyed())
	_, ok = piece.Extent()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Live())
}

func TestAnimator_MoveDuration(t *testing.T) {
	s := NewScene(app.NopLogger())
	a := NewAnimator(2)
	piece := s.SpawnPiece("p1", model.Vec{})

	// three cells of size 2 at 2 cells per second
	d := a.AnimateMove(piece, []model.Vec{{X: 2}, {X: 4}, {X: 6}}, 2)
	assert.Equal(t, 1500*time.Millisecond, d)
	assert.Equal(t, model.Vec{X: 6}, s.Pieces()[0].Position)

	assert.Equal(t, 200*time.Millisecond, a.AnimateScale(piece, 0.5, 200*time.Millisecond))
	assert.Equal(t, 0.5, s.Pieces()[0].Scale)
	assert.Equal(t, a.DieTime, a.AnimateDie(&dice.Die{}))
	assert.Equal(t, 1, a.Moves)
	assert.Equal(t, 1, a.Dice)
}

func TestInput_PressesAreEdgeTriggered(t *testing.T) {
	in := NewInput("space", 30*time.Millisecond)

	var pressedAt []int
	for i := 1; i <= 9; i++ {
		in.Advance(10 * time.Millisecond)
		if in.Pressed("space") {
			pressedAt = append(pressedAt, i)
			assert.True(t, in.Shaken())
		}
	}
	assert.Equal(t, []int{3, 6, 9}, pressedAt)

	manual := NewInput("space", 0)
	manual.Press("enter")
	assert.False(t, manual.Pressed("enter"))
	manual.Advance(time.Millisecond)
	assert.True(t, manual.Pressed("enter"))
	manual.Advance(time.Millisecond)
	assert.False(t, manual.Pressed("enter"))
}

func TestPrompter_ClosesAfterDelay(t *testing.T) {
	p := NewPrompter(50*time.Millisecond, app.NopLogger())
	h := p.Open("Tax", "pay 2")
	assert.Len(t, p.Dialogs(), 1)

	for i := 0; i < 4; i++ {
		p.Advance(10 * time.Millisecond)
	}
	assert.False(t, h.Destroyed())
	p.Advance(10 * time.Millisecond)
	assert.True(t, h.Destroyed())
	assert.Empty(t, p.Dialogs())
	assert.Equal(t, 1, p.Shown())
}

func TestAnnouncerAndFlags(t *testing.T) {
	var buf bytes.Buffer
	a := NewAnnouncer(&buf)
	a.Announce("hello")
	assert.Equal(t, "hello\n", buf.String())
	assert.Equal(t, []string{"hello"}, a.Lines())

	f := Flags{"skip_throw": true}
	assert.True(t, f.Flag("skip_throw"))
	assert.False(t, f.Flag("require_shake"))
}
