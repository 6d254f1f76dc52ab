package headless

import (
	"fmt"
	"io"
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
)

// Dialog is an open modal
type Dialog struct {
	Title  string
	Body   string
	left   time.Duration
	closed bool
}

// Destroyed implements task.Resource
func (d *Dialog) Destroyed() bool {
	return d.closed
}

// Close dismisses the dialog
func (d *Dialog) Close() {
	d.closed = true
}

// Prompter opens dialogs that dismiss themselves after a delay
type Prompter struct {
	CloseAfter time.Duration

	logger app.Logger
	open   []*Dialog
	shown  int
}

// NewPrompter creates a prompter whose dialogs close after closeAfter
func NewPrompter(closeAfter time.Duration, logger app.Logger) *Prompter {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Prompter{CloseAfter: closeAfter, logger: logger}
}

// Open implements effect.Prompter
func (p *Prompter) Open(title, body string) task.Resource {
	d := &Dialog{Title: title, Body: body, left: p.CloseAfter}
	p.open = append(p.open, d)
	p.shown++
	p.logger.Info("[%s] %s", title, body)
	return d
}

// Advance implements output.Frame
func (p *Prompter) Advance(dt time.Duration) {
	open := p.open[:0]
	for _, d := range p.open {
		if !d.closed {
			d.left -= dt
			if d.left <= 0 {
				d.closed = true
			}
		}
		if !d.closed {
			open = append(open, d)
		}
	}
	for i := len(open); i < len(p.open); i++ {
		p.open[i] = nil
	}
	p.open = open
}

// Dialogs returns the dialogs still open
func (p *Prompter) Dialogs() []*Dialog {
	out := make([]*Dialog, len(p.open))
	copy(out, p.open)
	return out
}

// Shown returns how many dialogs were opened
func (p *Prompter) Shown() int {
	return p.shown
}

// Announcer writes announcements to a writer and keeps them
type Announcer struct {
	w     io.Writer
	lines []string
}

// NewAnnouncer creates an announcer; w may be nil
func NewAnnouncer(w io.Writer) *Announcer {
	return &Announcer{w: w}
}

// Announce implements effect.Announcer
func (a *Announcer) Announce(text string) {
	a.lines = append(a.lines, text)
	if a.w != nil {
		fmt.Fprintln(a.w, text)
	}
}

// Lines returns every announcement so far
func (a *Announcer) Lines() []string {
	out := make([]string, len(a.lines))
	copy(out, a.lines)
	return out
}

// Flags is a fixed flag store
type Flags map[string]bool

// Flag implements effect.Flags
func (f Flags) Flag(name string) bool {
	return f[name]
}
