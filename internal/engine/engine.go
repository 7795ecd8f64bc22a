// Package engine assembles the reconciliation pipeline: watcher events
// flow through schema validation into the snapshot store, and a
// periodic tick recomputes health, analytics, and team staleness.
//
// A single goroutine owns all state transitions. Side effects (archive
// writes, cleanup commands, hook installs) run off that goroutine
// through a gated spawner so shutdown can drain them.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/crewsync/crewsync/internal/analytics"
	"github.com/crewsync/crewsync/internal/archive"
	"github.com/crewsync/crewsync/internal/command"
	"github.com/crewsync/crewsync/internal/config"
	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/health"
	"github.com/crewsync/crewsync/internal/hooks"
	"github.com/crewsync/crewsync/internal/ingest"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/ops"
	"github.com/crewsync/crewsync/internal/team"
	"github.com/crewsync/crewsync/internal/template"
	"github.com/crewsync/crewsync/internal/watch"
)

// Engine is the running crewsync core. Construct with New, drive with
// Run, tear down with Close.
type Engine struct {
	cfg *config.Config
	log *logging.Logger

	bus       *event.Bus
	store     *team.Store
	decoder   *ingest.Decoder
	ingestor  *ingest.Ingestor
	monitor   *health.Monitor
	analytics *analytics.Engine
	archiveDB *archive.Service
	archiver  *archive.Coordinator
	hooksSync *hooks.Synchronizer
	commander *command.FileCommander
	bulk      *ops.Coordinator
	templates *template.Service
	watcher   *watch.Watcher

	spawn *spawner
	tick  time.Duration
}

// New builds a fully wired Engine from configuration. The watcher
// starts observing immediately; call Run to begin applying its events.
func New(cfg *config.Config, log *logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.Nop()
	}
	e := &Engine{
		cfg:   cfg,
		log:   log.WithComponent("engine"),
		bus:   event.NewBus(),
		spawn: &spawner{},
		tick:  cfg.Engine.TickInterval(),
	}

	e.store = team.NewStore(e.bus, log)

	decoder, err := ingest.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.decoder = decoder

	db, err := archive.NewService(cfg.Paths.ResolveArchiveDB())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.archiveDB = db
	e.archiver = archive.NewCoordinator(db, e.bus, log)

	e.commander = command.NewFileCommander(cfg.Paths.ResolveTeamsDir())
	e.bulk = ops.NewCoordinator(e.store, e.commander, log)
	e.templates = template.NewService(cfg.Paths.ResolveTemplatesDir())

	e.ingestor = ingest.NewIngestor(ingest.IngestorConfig{
		Store:   e.store,
		Archive: e.archiver,
		Cleaner: e.commander,
		Dedup:   archive.NewDedupSet(),
		Bus:     e.bus,
		Log:     log,
		Spawn:   e.spawn.Spawn,
	})

	e.monitor = health.NewMonitor(e.store, e.bus, log,
		health.WithThresholds(cfg.Health.ActiveTaskThreshold(), cfg.Health.IdleThreshold()))
	e.analytics = analytics.NewEngine(e.store, e.monitor, e.bus, log)

	loadVoice := func() hooks.VoiceConfig {
		voice, err := hooks.LoadVoiceConfig(cfg.Paths.ResolveVoiceConfig())
		if err != nil {
			log.Warn("falling back to default voice", "error", err)
			return hooks.DefaultVoiceConfig()
		}
		return voice
	}
	e.hooksSync = hooks.NewSynchronizer(e.bus, hooks.NewFileService(cfg.Paths.ResolveHooksDir()),
		loadVoice, log, e.spawn.Spawn)

	w, err := watch.New(cfg.Paths.ResolveTeamsDir(), log,
		watch.WithDebounce(cfg.Watch.Debounce()),
		watch.WithStaleThreshold(cfg.Health.StaleTeamThreshold()))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.watcher = w

	return e, nil
}

// Run applies watcher events and fires the periodic recompute until
// ctx is cancelled or the watcher shuts down. It owns every store
// mutation; nothing else may write concurrently.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.log.Info("engine running",
		"teams_dir", e.cfg.Paths.ResolveTeamsDir(),
		"tick", e.tick.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-e.watcher.Events():
			if !ok {
				return nil
			}
			e.handleRaw(raw)

		case <-ticker.C:
			now := time.Now()
			// Off the loop goroutine: stale emits block under
			// backpressure, and this goroutine is the consumer.
			e.spawn.Spawn(e.watcher.ScanStale)
			e.monitor.Tick(now)
			e.analytics.Compute(now)
		}
	}
}

// handleRaw validates one raw watcher event and applies it. Events
// that fail validation are rejected whole and surfaced as watcher
// errors; nothing is partially applied.
func (e *Engine) handleRaw(raw []byte) {
	ev, err := e.decoder.Decode(raw)
	if err != nil {
		e.log.Warn("rejecting watcher event", "error", err)
		e.ingestor.Handle(ingest.WatcherFailure{Error: err.Error()})
		return
	}
	e.ingestor.Handle(ev)
}

// Close stops the watcher, waits for in-flight side effects, and
// releases the archive database. Call after Run has returned.
func (e *Engine) Close() error {
	err := e.watcher.Close()
	e.spawn.CloseAndWait()
	e.hooksSync.Close()
	if dbErr := e.archiveDB.Close(); err == nil {
		err = dbErr
	}
	return err
}

// Bus returns the engine's event bus for external subscribers.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Store returns the snapshot store.
func (e *Engine) Store() *team.Store { return e.store }

// Health returns the health monitor.
func (e *Engine) Health() *health.Monitor { return e.monitor }

// Analytics returns the analytics engine.
func (e *Engine) Analytics() *analytics.Engine { return e.analytics }

// Archives returns the archive store.
func (e *Engine) Archives() *archive.Service { return e.archiveDB }

// Commander returns the outbound command layer.
func (e *Engine) Commander() command.Commander { return e.commander }

// Bulk returns the bulk operations coordinator.
func (e *Engine) Bulk() *ops.Coordinator { return e.bulk }

// Templates returns the template service.
func (e *Engine) Templates() *template.Service { return e.templates }

// Err returns the most recent watcher error, or "" if none.
func (e *Engine) Err() string { return e.ingestor.Err() }
