package archive

import (
	"context"
	"time"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

// Store is the archive backend the Coordinator writes through.
// *Service satisfies it; tests substitute fakes.
type Store interface {
	ArchiveSession(ctx context.Context, rec Record) (string, error)
	ListArchives(ctx context.Context) ([]Entry, error)
}

// archiveTimeout bounds one archive write plus the follow-up list
// refresh. Archives are fire-and-forget; a hung write must not leak a
// goroutine forever.
const archiveTimeout = 30 * time.Second

// Coordinator writes archive records for deleted and stale teams.
// Failures are logged and surfaced only through the return value;
// deletion and cleanup always proceed regardless.
type Coordinator struct {
	store Store
	bus   *event.Bus
	log   *logging.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store Store, bus *event.Bus, log *logging.Logger) *Coordinator {
	return &Coordinator{
		store: store,
		bus:   bus,
		log:   log.WithComponent("archive"),
	}
}

// Archive writes one archive record for the team's current snapshot.
// On success it publishes ArchiveWrittenEvent and refreshes the
// externally-visible archive list. The returned error exists solely so
// the staleness path can roll back its dedup marker; callers on the
// deletion path ignore it.
func (c *Coordinator) Archive(teamName string, snap team.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	id, err := c.store.ArchiveSession(ctx, Record{
		TeamName: teamName,
		Config:   snap.Config,
		Tasks:    snap.Tasks,
		Inboxes:  snap.Inboxes,
	})
	if err != nil {
		c.log.Error("archive write failed", "team", teamName, "error", err)
		return err
	}

	c.log.Info("team archived", "team", teamName, "archive_id", id)
	c.bus.Publish(event.NewArchiveWrittenEvent(teamName, id))

	entries, err := c.store.ListArchives(ctx)
	if err != nil {
		// The write succeeded; a failed refresh only leaves the list view stale.
		c.log.Warn("archive list refresh failed", "error", err)
		return nil
	}
	c.bus.Publish(event.NewArchiveListRefreshedEvent(len(entries)))
	return nil
}
