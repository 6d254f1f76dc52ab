package app

import (
	"path/filepath"
)

// Paths holds all resolved paths of a deeboard home directory
type Paths struct {
	Home string // .deeboard directory
	Var  string // .deeboard/var

	// Key files
	Setting       string // .deeboard/setting.json
	Board         string // .deeboard/board.yaml
	Journal       string // .deeboard/var/journal.db
	JournalNDJSON string // .deeboard/var/journal.ndjson
	Health        string // .deeboard/var/health.json
}

// ResolvePaths returns all paths below home; an empty home means .deeboard
func ResolvePaths(home string) Paths {
	if home == "" {
		home = ".deeboard"
	}

	p := Paths{
		Home: home,
		Var:  filepath.Join(home, "var"),
	}

	// Key files
	p.Setting = filepath.Join(home, "setting.json")
	p.Board = filepath.Join(home, "board.yaml")
	p.Journal = filepath.Join(p.Var, "journal.db")
	p.JournalNDJSON = filepath.Join(p.Var, "journal.ndjson")
	p.Health = filepath.Join(p.Var, "health.json")

	return p
}
