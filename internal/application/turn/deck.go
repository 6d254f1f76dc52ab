package turn

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
)

// ErrUnknownDeck is returned when drawing from a deck the definition lacks
var ErrUnknownDeck = errors.New("unknown deck")

type deck struct {
	cards []*board.Card
	next  int
}

// Draw returns the next card of a deck. Decks are shuffled with the session
// seed when first drawn from and reshuffled once exhausted.
func (s *Session) Draw(name string) (*board.Card, error) {
	d, ok := s.decks[name]
	if !ok {
		b := s.Board()
		if b == nil {
			return nil, ErrNoBoard
		}
		cards, ok := b.Definition().Deck(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDeck, name)
		}
		d = &deck{cards: cards, next: len(cards)}
		s.decks[name] = d
	}
	if len(d.cards) == 0 {
		return nil, fmt.Errorf("deck %s is empty", name)
	}
	if d.next >= len(d.cards) {
		s.roller.Shuffle(len(d.cards), func(i, j int) {
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		})
		d.next = 0
	}
	card := d.cards[d.next]
	d.next++
	return card, nil
}
