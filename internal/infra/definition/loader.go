// Package definition loads board definitions from YAML.
//
// A definition file lists the cells of the ring in order, each with its
// enter and leave effects and an ordered parameter map, plus optional card
// decks:
//
//	name: classic
//	use_first_cell_once: true
//	cells:
//	  - title: Start
//	    enter: [Announce]
//	    params: {text: "Welcome"}
//	  - title: Lane
//	    repeat: 3
//	decks:
//	  chance:
//	    - name: forward
//	      effects: [Advance]
//	      params: {steps: 3}
package definition

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the YAML layout of a board definition
type File struct {
	Name             string                `yaml:"name"`
	UseFirstCellOnce bool                  `yaml:"use_first_cell_once"`
	Cells            []CellSpec            `yaml:"cells"`
	Decks            map[string][]CardSpec `yaml:"decks"`
}

// CellSpec is one cell entry. Repeat places the same cell that many times.
type CellSpec struct {
	Title    string    `yaml:"title"`
	Material string    `yaml:"material"`
	Enter    []string  `yaml:"enter"`
	Leave    []string  `yaml:"leave"`
	Params   ParamList `yaml:"params"`
	Repeat   int       `yaml:"repeat"`
}

// CardSpec is one card of a deck
type CardSpec struct {
	Name    string    `yaml:"name"`
	Title   string    `yaml:"title"`
	Effects []string  `yaml:"effects"`
	Params  ParamList `yaml:"params"`
}

// ParamList is a YAML mapping of scalars decoded in document order
type ParamList board.Params

// UnmarshalYAML implements yaml.Unmarshaler
func (p *ParamList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", node.Line)
	}
	out := make(ParamList, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: param %q must be a scalar", v.Line, k.Value)
		}
		if _, dup := seen[k.Value]; dup {
			return fmt.Errorf("line %d: duplicate param %q", k.Line, k.Value)
		}
		seen[k.Value] = struct{}{}
		out = append(out, board.Param{Key: k.Value, Value: v.Value})
	}
	*p = out
	return nil
}

// Parse decodes and validates a definition document
func Parse(data []byte) (*board.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Fail on unknown fields
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("definition: parse: %w", err)
	}
	return Build(&f)
}

// Load reads a definition file from fsys
func Load(fsys afero.Fs, path string) (*board.Definition, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("definition: read: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in board
func Default() *board.Definition {
	def, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in board: %v", err))
	}
	return def
}

// DefaultYAML returns the source of the built-in board
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// Build turns a decoded file into a definition. Effect names are
// normalized; empty names are rejected.
func Build(f *File) (*board.Definition, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, errors.New(`definition: "name" is required`)
	}
	if len(f.Cells) == 0 {
		return nil, fmt.Errorf("definition: %w", board.ErrEmptyDefinition)
	}

	var cells []*board.CellDefinition
	for i, spec := range f.Cells {
		idx := fmt.Sprintf("definition.cells[%d]", i)
		if spec.Repeat < 0 {
			return nil, fmt.Errorf("%s: repeat must not be negative", idx)
		}
		enter, err := names(idx+".enter", spec.Enter)
		if err != nil {
			return nil, err
		}
		leave, err := names(idx+".leave", spec.Leave)
		if err != nil {
			return nil, err
		}
		n := spec.Repeat
		if n == 0 {
			n = 1
		}
		for j := 0; j < n; j++ {
			cells = append(cells, board.NewCellDefinition(spec.Title, spec.Material, enter, leave, board.Params(spec.Params)))
		}
	}

	def, err := board.NewDefinition(f.Name, cells, f.UseFirstCellOnce)
	if err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}

	decks := make([]string, 0, len(f.Decks))
	for deck := range f.Decks {
		decks = append(decks, deck)
	}
	sort.Strings(decks)
	for _, deck := range decks {
		specs := f.Decks[deck]
		idx := fmt.Sprintf("definition.decks.%s", deck)
		if len(specs) == 0 {
			return nil, fmt.Errorf("%s: deck is empty", idx)
		}
		seen := make(map[string]struct{}, len(specs))
		cards := make([]*board.Card, 0, len(specs))
		for i, spec := range specs {
			cidx := fmt.Sprintf("%s[%d]", idx, i)
			if strings.TrimSpace(spec.Name) == "" {
				return nil, fmt.Errorf(`%s: "name" is required`, cidx)
			}
			if _, dup := seen[spec.Name]; dup {
				return nil, fmt.Errorf(`%s: duplicate name "%s"`, cidx, spec.Name)
			}
			seen[spec.Name] = struct{}{}
			effects, err := names(cidx+".effects", spec.Effects)
			if err != nil {
				return nil, err
			}
			title := spec.Title
			if title == "" {
				title = spec.Name
			}
			cards = append(cards, board.NewCard(spec.Name, title, effects, board.Params(spec.Params)))
		}
		def.AddDeck(deck, cards)
	}
	return def, nil
}

func names(idx string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for i, n := range in {
		n = effect.Normalize(n)
		if n == "" {
			return nil, fmt.Errorf("%s[%d]: effect name is empty", idx, i)
		}
		out = append(out, n)
	}
	return out, nil
}

// Problem is a reference to an effect nothing is registered under. Such
// names are skipped at play time.
type Problem struct {
	Where  string
	Effect string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: unknown effect %q", p.Where, p.Effect)
}

// Check lists every effect name of def that reg does not know
func Check(def *board.Definition, reg *effect.Registry) []Problem {
	var out []Problem
	add := func(where string, list []string) {
		for _, n := range reg.Unknown(list) {
			out = append(out, Problem{Where: where, Effect: n})
		}
	}
	for i := 0; i < def.Len(); i++ {
		c := def.GetCell(i)
		add(fmt.Sprintf("cells[%d].enter", i), c.Enter())
		add(fmt.Sprintf("cells[%d].leave", i), c.Leave())
	}
	for _, deck := range def.DeckNames() {
		cards, _ := def.Deck(deck)
		for i, card := range cards {
			add(fmt.Sprintf("decks.%s[%d]", deck, i), card.Effects())
		}
	}
	return out
}
