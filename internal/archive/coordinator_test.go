package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

type fakeStore struct {
	archiveErr error
	listErr    error
	records    []Record
}

func (f *fakeStore) ArchiveSession(ctx context.Context, rec Record) (string, error) {
	if f.archiveErr != nil {
		return "", f.archiveErr
	}
	f.records = append(f.records, rec)
	return "arch-1", nil
}

func (f *fakeStore) ListArchives(ctx context.Context) ([]Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	entries := make([]Entry, len(f.records))
	for i, r := range f.records {
		entries[i] = Entry{ID: "arch-1", TeamName: r.TeamName, ArchivedAt: time.Now()}
	}
	return entries, nil
}

func testSnap(name string) team.Snapshot {
	return team.Snapshot{
		Config:  team.Config{Name: name},
		Inboxes: map[string][]team.Message{},
	}
}

func TestCoordinator_Archive_PublishesWrittenAndRefresh(t *testing.T) {
	bus := event.NewBus()
	store := &fakeStore{}
	c := NewCoordinator(store, bus, logging.Nop())

	var written []event.ArchiveWrittenEvent
	bus.Subscribe("archive.written", func(e event.Event) {
		written = append(written, e.(event.ArchiveWrittenEvent))
	})
	var refreshed []event.ArchiveListRefreshedEvent
	bus.Subscribe("archive.list_refreshed", func(e event.Event) {
		refreshed = append(refreshed, e.(event.ArchiveListRefreshedEvent))
	})

	if err := c.Archive("alpha", testSnap("alpha")); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if len(written) != 1 || written[0].TeamName != "alpha" || written[0].ArchiveID != "arch-1" {
		t.Errorf("written events = %+v", written)
	}
	if len(refreshed) != 1 || refreshed[0].Count != 1 {
		t.Errorf("refreshed events = %+v", refreshed)
	}
}

func TestCoordinator_Archive_WriteFailureReturnsError(t *testing.T) {
	bus := event.NewBus()
	store := &fakeStore{archiveErr: errors.New("disk full")}
	c := NewCoordinator(store, bus, logging.Nop())

	published := 0
	bus.SubscribeAll(func(event.Event) { published++ })

	err := c.Archive("alpha", testSnap("alpha"))
	if err == nil {
		t.Fatal("expected error")
	}
	if published != 0 {
		t.Errorf("events published on failure = %d, want 0", published)
	}
}

func TestCoordinator_Archive_ListFailureStillSucceeds(t *testing.T) {
	bus := event.NewBus()
	store := &fakeStore{listErr: errors.New("locked")}
	c := NewCoordinator(store, bus, logging.Nop())

	refreshed := 0
	bus.Subscribe("archive.list_refreshed", func(event.Event) { refreshed++ })

	if err := c.Archive("alpha", testSnap("alpha")); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if refreshed != 0 {
		t.Errorf("refresh events = %d, want 0", refreshed)
	}
}
