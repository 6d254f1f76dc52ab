package di

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	appconfig "github.com/YoshitsuguKoike/deeboard/internal/app/config"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/application/turn"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/model/task"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/definition"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/headless"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/script"
	"github.com/YoshitsuguKoike/deeboard/internal/infrastructure/persistence/sqlite"
)

// Container is the DI container that holds every collaborator of a game.
// This implements manual dependency injection for Clean Architecture.
type Container struct {
	// Infrastructure Layer
	fs      afero.Fs
	journal output.Journal
	scripts *script.Engine

	// Headless backends
	scene     *headless.Scene
	animator  *headless.Animator
	input     *headless.Input
	prompter  *headless.Prompter
	announcer *headless.Announcer

	// Domain Layer
	definition *board.Definition
	registry   *effect.Registry

	// Application Layer
	session      *turn.Session
	orchestrator *turn.Orchestrator

	config Config
	logger app.Logger
}

// Config holds configuration for the container
type Config struct {
	App appconfig.Config
	// Fs is where definitions, scripts and the NDJSON journal live (default: OS filesystem)
	Fs afero.Fs
	// OutputWriter receives announcements (default: os.Stdout)
	OutputWriter io.Writer
	Logger       app.Logger
	// Options replaces the session options derived from App
	Options *turn.Options
	// Journal replaces the journal opened from App
	Journal output.Journal
	// PressInterval is how often the headless player presses the roll key (default: 500ms)
	PressInterval time.Duration
	// DialogTime is how long headless dialogs stay open (default: 1s)
	DialogTime time.Duration
	// OnTurn is called after every journaled turn
	OnTurn func(rec output.TurnRecord)
}

// NewContainer creates and initializes the DI container. ctx parents every
// turn span.
func NewContainer(ctx context.Context, config Config) (*Container, error) {
	if config.App == nil {
		return nil, fmt.Errorf("container needs an application config")
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.OutputWriter == nil {
		config.OutputWriter = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = app.GetLogger()
	}
	if config.PressInterval <= 0 {
		config.PressInterval = 500 * time.Millisecond
	}
	if config.DialogTime <= 0 {
		config.DialogTime = time.Second
	}

	c := &Container{
		fs:     config.Fs,
		config: config,
		logger: config.Logger,
	}

	// Initialize dependencies in dependency order
	if err := c.initializeDomain(); err != nil {
		return nil, fmt.Errorf("failed to initialize domain: %w", err)
	}

	if err := c.initializeInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := c.initializeApplication(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	return c, nil
}

// initializeDomain loads the board definition and fills the effect registry
func (c *Container) initializeDomain() error {
	cfg := c.config.App

	def, err := LoadDefinition(c.fs, cfg)
	if err != nil {
		return err
	}
	c.definition = def

	c.scripts = script.NewEngine(scriptFs(c.fs, cfg), c.logger)
	c.registry = effect.NewBuiltinRegistry()
	if err := c.scripts.Register(c.registry); err != nil {
		return fmt.Errorf("failed to register script effect: %w", err)
	}

	// Unknown names are skipped at play time; surface them once up front
	for _, p := range definition.Check(def, c.registry) {
		c.logger.Warn("board %s: %s", def.Name(), p)
	}
	return nil
}

// initializeInfrastructure opens the journal and creates the headless backends
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	cfg := c.config.App

	if c.config.Journal != nil {
		c.journal = c.config.Journal
	} else {
		j, err := OpenJournal(ctx, c.fs, cfg, c.logger)
		if err != nil {
			return err
		}
		c.journal = j
	}

	c.scene = headless.NewScene(c.logger)
	c.animator = headless.NewAnimator(1)
	c.input = headless.NewInput(task.Key(cfg.RollKey()), c.config.PressInterval)
	c.prompter = headless.NewPrompter(c.config.DialogTime, c.logger)
	c.announcer = headless.NewAnnouncer(c.config.OutputWriter)
	return nil
}

// initializeApplication builds the session and its orchestrator
func (c *Container) initializeApplication(ctx context.Context) error {
	opts := SessionOptions(c.config.App)
	if c.config.Options != nil {
		opts = *c.config.Options
	}

	s, err := turn.NewSession(opts, c.definition, turn.Deps{
		Animator:  c.animator,
		Input:     c.input,
		Scene:     c.scene,
		Prompter:  c.prompter,
		Announcer: c.announcer,
		Flags:     c.config.App,
		Journal:   c.journal,
	},
		turn.WithLogger(c.logger),
		turn.WithRegistry(c.registry),
		turn.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	c.session = s

	var orchOpts []turn.OrchestratorOption
	if c.config.OnTurn != nil {
		orchOpts = append(orchOpts, turn.WithTurnHook(c.config.OnTurn))
	}
	c.orchestrator = turn.NewOrchestrator(s, orchOpts...)
	return nil
}

// SessionOptions maps the application config onto session options
func SessionOptions(cfg appconfig.Config) turn.Options {
	opts := turn.DefaultOptions()
	opts.Players = cfg.Players()
	opts.Dice = cfg.Dice()
	opts.DiceSides = cfg.DiceSides()
	opts.DiceOverride = cfg.DiceOverride()
	opts.Seed = cfg.Seed()
	opts.MaxTurns = cfg.MaxTurns()
	opts.MoveSpeed = cfg.MoveSpeed()
	opts.RollKey = task.Key(cfg.RollKey())
	opts.Geometry.BoardSize = cfg.BoardSize()
	return opts
}

// LoadDefinition reads the configured board file, or the built-in board
// when none is set
func LoadDefinition(fsys afero.Fs, cfg appconfig.Config) (*board.Definition, error) {
	var def *board.Definition
	if path := cfg.Definition(); path != "" {
		d, err := definition.Load(fsys, path)
		if err != nil {
			return nil, err
		}
		def = d
	} else {
		def = definition.Default()
	}
	if cfg.UseFirstCellOnce() {
		def = def.WithFirstCellOnce(true)
	}
	return def, nil
}

// OpenJournal opens the journal selected by the config. The none driver
// returns a nil journal.
func OpenJournal(ctx context.Context, fsys afero.Fs, cfg appconfig.Config, logger app.Logger) (output.Journal, error) {
	switch cfg.JournalDriver() {
	case appconfig.JournalNone:
		return nil, nil
	case appconfig.JournalNDJSON:
		return file.NewTurnJournal(fsys, cfg.Journal(), logger), nil
	case appconfig.JournalSQLite, "":
		j, err := sqlite.Open(ctx, cfg.Journal())
		if err != nil {
			return nil, fmt.Errorf("failed to open journal %s: %w", cfg.Journal(), err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.JournalDriver())
	}
}

// scriptFs roots script files next to the board definition, or in the home
// directory for the built-in board
func scriptFs(fsys afero.Fs, cfg appconfig.Config) afero.Fs {
	base := cfg.Home()
	if path := cfg.Definition(); path != "" {
		base = filepath.Dir(path)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fsys
	}
	return afero.NewBasePathFs(fsys, abs)
}

// GetDefinition returns the board definition
func (c *Container) GetDefinition() *board.Definition {
	return c.definition
}

// GetRegistry returns the effect registry
func (c *Container) GetRegistry() *effect.Registry {
	return c.registry
}

// GetJournal returns the journal, nil for the none driver
func (c *Container) GetJournal() output.Journal {
	return c.journal
}

// GetSession returns the game session
func (c *Container) GetSession() *turn.Session {
	return c.session
}

// GetOrchestrator returns the turn orchestrator
func (c *Container) GetOrchestrator() *turn.Orchestrator {
	return c.orchestrator
}

// GetScene returns the headless scene
func (c *Container) GetScene() *headless.Scene {
	return c.scene
}

// GetAnnouncer returns the headless announcer
func (c *Container) GetAnnouncer() *headless.Announcer {
	return c.announcer
}

// Run plays the game at the configured tick until it ends or ctx is done
func (c *Container) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = c.config.App.Tick()
	}
	return c.orchestrator.Run(ctx, tick)
}

// Close releases all resources
func (c *Container) Close() error {
	if c.session != nil {
		c.session.Close()
	}

	// Close journal
	if c.journal != nil {
		return c.journal.Close()
	}
	return nil
}
