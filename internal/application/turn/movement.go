package turn

import (
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/player"
)

// ErrNoBoard is returned when moving while no board is built
var ErrNoBoard = errors.New("no board")

func longest(ds ...time.Duration) time.Duration {
	var out time.Duration
	for _, d := range ds {
		if d > out {
			out = d
		}
	}
	return out
}

// pause waits d of game time; zero waits one tick
func (s *Session) pause(d time.Duration) task.Sequence {
	if d <= 0 {
		return task.Wait(task.NextTick())
	}
	return task.Sleep(s.sched, d)
}

// unpark frees the parking slot of p and brings the piece back to the cell
// centre at full size. Not parked, it does nothing.
func (s *Session) unpark(p *player.Player) task.Sequence {
	return task.Lazy(func() task.Sequence {
		if !p.Parked() {
			return nil
		}
		b := s.Board()
		if b == nil {
			return task.Fail(ErrNoBoard)
		}
		p.Unpark()
		center := b.Cell(p.Cell()).Center()
		move := s.deps.Animator.AnimateMove(p.Piece(), []model.Vec{center}, s.opts.MoveSpeed)
		scale := s.deps.Animator.AnimateScale(p.Piece(), 1, s.opts.ScaleTime)
		return s.pause(longest(move, scale))
	})
}

// park takes the first free slot on the current cell of p and shrinks the
// piece into it
func (s *Session) park(p *player.Player) task.Sequence {
	return task.Lazy(func() task.Sequence {
		b := s.Board()
		if b == nil {
			return task.Fail(ErrNoBoard)
		}
		cell := b.Cell(p.Cell())
		slot, err := p.Park(cell)
		if err != nil {
			return task.Fail(fmt.Errorf("park %s: %w", p, err))
		}
		move := s.deps.Animator.AnimateMove(p.Piece(), []model.Vec{cell.SlotPosition(slot)}, s.opts.MoveSpeed)
		scale := s.deps.Animator.AnimateScale(p.Piece(), s.opts.ParkedScale, s.opts.ScaleTime)
		return s.pause(longest(move, scale))
	})
}

// walk moves p by steps cells: leave effects of the origin, the animated
// move along the ring, then enter effects of the destination. The movement
// guard is held by self from the start of the leave effects until the piece
// arrives; a player already moving is left alone. A parked player is
// unparked first and parked again on arrival.
func (s *Session) walk(self *task.Task, p *player.Player, steps int, leave, enter func(*board.Cell) task.Sequence) task.Sequence {
	return task.Lazy(func() task.Sequence {
		b := s.Board()
		if b == nil {
			return task.Fail(ErrNoBoard)
		}
		if p.Moving() {
			s.logger.Debug("%s is already moving, walk of %d skipped", p, steps)
			return nil
		}
		wasParked := p.Parked()
		var dest *board.Cell

		move := task.Scoped(self,
			func() error {
				p.BeginMove()
				return nil
			},
			p.EndMove,
			task.Seq(
				s.unpark(p),
				task.Lazy(func() task.Sequence {
					if leave == nil {
						return nil
					}
					return leave(b.Cell(p.Cell()))
				}),
				task.Lazy(func() task.Sequence {
					path := b.Path(p.Cell(), steps)
					if len(path) == 0 {
						return nil
					}
					d := s.deps.Animator.AnimateMove(p.Piece(), b.Waypoints(path), s.opts.MoveSpeed)
					last := b.Cell(path[len(path)-1])
					return task.Seq(s.pause(d), task.Exec(func() {
						dest = last
						p.SetCell(last.Index())
						s.logger.Debug("%s walked %d to cell %d", p, steps, last.Index())
					}))
				}),
			),
		)

		return task.Seq(
			move,
			task.Lazy(func() task.Sequence {
				if dest == nil || enter == nil {
					return nil
				}
				return enter(dest)
			}),
			task.If(func() bool { return wasParked && !p.Parked() }, s.park(p), nil),
		)
	})
}
