// Package ingest translates watcher change events into snapshot store
// mutations. Raw events are schema-validated at the boundary (fail
// closed) and dispatched one at a time by the engine's event loop.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/crewsync/crewsync/internal/archive"
	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

// Archiver writes a team snapshot to the archive. Implementations never
// panic; the returned error only matters to the staleness path, which
// uses it to roll back its dedup marker.
type Archiver interface {
	Archive(teamName string, snap team.Snapshot) error
}

// Cleaner asks the external command layer to tear down a team's backing
// state. The watcher observes the teardown and emits a team-deleted
// event in response.
type Cleaner interface {
	CleanupTeam(ctx context.Context, teamName string) error
}

// Ingestor maps each watcher event to a store mutation, with three
// policy exceptions: deletion dedup against double archiving, the
// staleness archive-then-cleanup sequence, and watcher errors recorded
// as the engine's visible error state.
type Ingestor struct {
	store   *team.Store
	archive Archiver
	cleaner Cleaner
	dedup   *archive.DedupSet
	bus     *event.Bus
	log     *logging.Logger
	now     func() time.Time

	// spawn runs side-effect I/O off the event loop. The engine installs
	// a gated launcher so no new side effects start after teardown.
	spawn func(func())

	mu      sync.Mutex
	lastErr string
}

// IngestorConfig holds required dependencies for creating an Ingestor.
type IngestorConfig struct {
	Store   *team.Store
	Archive Archiver
	Cleaner Cleaner
	Dedup   *archive.DedupSet
	Bus     *event.Bus
	Log     *logging.Logger

	// Spawn overrides the side-effect launcher. Nil means `go fn()`.
	Spawn func(func())

	// Now overrides the time source. Nil means time.Now.
	Now func() time.Time
}

// NewIngestor creates an Ingestor.
func NewIngestor(cfg IngestorConfig) *Ingestor {
	in := &Ingestor{
		store:   cfg.Store,
		archive: cfg.Archive,
		cleaner: cfg.Cleaner,
		dedup:   cfg.Dedup,
		bus:     cfg.Bus,
		log:     cfg.Log.WithComponent("ingest"),
		spawn:   cfg.Spawn,
		now:     cfg.Now,
	}
	if in.spawn == nil {
		in.spawn = func(fn func()) { go fn() }
	}
	if in.now == nil {
		in.now = time.Now
	}
	return in
}

// Handle applies one decoded watcher event. It never returns an error:
// every failure mode is non-fatal, logged, and the engine keeps
// serving snapshot reads.
func (in *Ingestor) Handle(ev Event) {
	switch e := ev.(type) {
	case ConfigChanged:
		in.store.UpdateConfig(e.TeamName, e.Config)

	case TasksChanged:
		in.store.UpdateTasks(e.TeamName, e.Tasks)

	case InboxChanged:
		in.store.UpdateInbox(e.TeamName, e.AgentName, e.Messages)

	case TeamCreated:
		in.store.AddTeam(team.Snapshot{
			Config:      e.Config,
			Inboxes:     map[string][]team.Message{},
			LastUpdated: in.now(),
		})

	case TeamDeleted:
		in.handleDeleted(e.TeamName)

	case TeamStale:
		in.handleStale(e.TeamName)

	case WatcherFailure:
		in.mu.Lock()
		in.lastErr = e.Error
		in.mu.Unlock()
		in.log.Warn("watcher reported error", "error", e.Error)
		in.bus.Publish(event.NewWatcherErrorEvent(e.Error))

	default:
		in.log.Warn("dropping unrecognized event", "kind", ev.Kind())
	}
}

// handleDeleted archives the team unless its archive was already written
// by the staleness path, then removes it from the store. The dedup
// marker is consumed regardless, so a later deletion for the same name
// gets a fresh decision.
func (in *Ingestor) handleDeleted(name string) {
	alreadyArchived := in.dedup.Consume(name)
	if !alreadyArchived {
		if snap, ok := in.store.Team(name); ok {
			in.spawn(func() {
				// Fire and forget: archive failure is logged by the
				// coordinator and must not block removal.
				_ = in.archive.Archive(name, snap)
			})
		}
	}
	in.store.RemoveTeam(name)
}

// handleStale archives the team, marks the dedup set so the follow-up
// team-deleted event does not archive again, and asks the command layer
// to clean the team up. Archive failure rolls the marker back so the
// deletion event retries the archive.
func (in *Ingestor) handleStale(name string) {
	snap, ok := in.store.Team(name)
	if !ok {
		return
	}

	in.dedup.Mark(name)
	in.spawn(func() {
		if err := in.archive.Archive(name, snap); err != nil {
			in.dedup.Unmark(name)
			in.log.Warn("stale-team archive failed, deletion event will retry",
				"team", name, "error", err)
		}
		if err := in.cleaner.CleanupTeam(context.Background(), name); err != nil {
			in.log.Warn("stale-team cleanup failed", "team", name, "error", err)
		}
	})
}

// Err returns the most recent watcher error, or "" if none has been
// reported. Errors are overwritten, never accumulated.
func (in *Ingestor) Err() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lastErr
}
