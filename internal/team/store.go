package team

import (
	"sort"
	"sync"
	"time"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
)

// Projection is the derived view recomputed after every store mutation:
// the selected team's snapshot, its task list, and the flattened
// concatenation of all of its inboxes. Cross-member message order is
// not meaningful; per-member order is preserved.
type Projection struct {
	Selected *Snapshot
	Tasks    []Task
	Messages []Message
}

// Store holds the authoritative map of team name to snapshot plus the
// current selection. All mutations are synchronous and serialized by
// the caller (the engine's single event loop); the internal mutex only
// guards concurrent readers.
//
// Snapshots are copy-on-write: a mutation replaces the affected team's
// snapshot value and leaves every other team's snapshot untouched.
type Store struct {
	mu       sync.RWMutex
	bus      *event.Bus
	log      *logging.Logger
	teams    map[string]Snapshot
	order    []string // insertion order for deterministic iteration
	selected string
	proj     Projection
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the store's time source. Used in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store publishing on the given bus.
func NewStore(bus *event.Bus, log *logging.Logger, opts ...StoreOption) *Store {
	s := &Store{
		bus:   bus,
		log:   log.WithComponent("store"),
		teams: make(map[string]Snapshot),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTeams replaces the full team list. Teams absent from the new list
// are dropped without removal events; SetTeams is the initial-load path,
// not a deletion path.
func (s *Store) SetTeams(snaps []Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teams = make(map[string]Snapshot, len(snaps))
	s.order = s.order[:0]
	for _, snap := range snaps {
		if snap.Config.Name == "" {
			continue
		}
		if _, exists := s.teams[snap.Config.Name]; !exists {
			s.order = append(s.order, snap.Config.Name)
		}
		s.teams[snap.Config.Name] = snap
	}
	s.reprojectLocked()
}

// AddTeam upserts a team snapshot by name. Adding a previously-unknown
// team publishes a TeamAddedEvent carrying the resulting team count.
func (s *Store) AddTeam(snap Snapshot) {
	name := snap.Config.Name
	if name == "" {
		return
	}

	s.mu.Lock()
	prev, existed := s.teams[name]
	if !existed {
		s.order = append(s.order, name)
	}
	s.teams[name] = snap
	count := len(s.teams)
	s.reprojectLocked()
	s.mu.Unlock()

	if existed {
		s.publishExits(name, prev.Config, snap.Config)
		s.bus.Publish(event.NewSnapshotUpdatedEvent(name))
		return
	}
	s.log.Info("team added", "name", name, "teams", count)
	s.bus.Publish(event.NewTeamAddedEvent(name, count))
	s.bus.Publish(event.NewSnapshotUpdatedEvent(name))
}

// RemoveTeam drops a team from the store. Publishes a TeamRemovedEvent
// with the resulting team count. Unknown names are a no-op.
func (s *Store) RemoveTeam(name string) {
	s.mu.Lock()
	if _, exists := s.teams[name]; !exists {
		s.mu.Unlock()
		return
	}
	delete(s.teams, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	count := len(s.teams)
	s.reprojectLocked()
	s.mu.Unlock()

	s.log.Info("team removed", "name", name, "teams", count)
	s.bus.Publish(event.NewTeamRemovedEvent(name, count))
}

// UpdateConfig replaces a team's config. For an unknown team name this
// delegates to AddTeam: the watcher may deliver a config change before
// the explicit creation notice, and a config is enough to track a team.
//
// Members present in the old config and absent from the new one are
// reported via MemberExitedEvent. A config diff is the only exit signal
// available; see MemberExitedEvent for the caveat.
func (s *Store) UpdateConfig(name string, cfg Config) {
	s.mu.Lock()
	prev, exists := s.teams[name]
	if !exists {
		s.mu.Unlock()
		s.AddTeam(Snapshot{
			Config:      cfg,
			Inboxes:     map[string][]Message{},
			LastUpdated: s.now(),
		})
		return
	}

	next := prev.clone()
	next.Config = cfg
	next.LastUpdated = s.now()
	s.teams[name] = next
	s.reprojectLocked()
	s.mu.Unlock()

	s.publishExits(name, prev.Config, cfg)
	s.bus.Publish(event.NewSnapshotUpdatedEvent(name))
}

// UpdateTasks replaces a team's task list (last-write-wins per team).
// Unknown teams are a no-op: a task list alone does not establish a team.
func (s *Store) UpdateTasks(name string, tasks []Task) {
	s.mu.Lock()
	prev, exists := s.teams[name]
	if !exists {
		s.mu.Unlock()
		return
	}
	next := prev.clone()
	next.Tasks = tasks
	next.LastUpdated = s.now()
	s.teams[name] = next
	s.reprojectLocked()
	s.mu.Unlock()

	s.bus.Publish(event.NewSnapshotUpdatedEvent(name))
}

// UpdateInbox replaces one member's inbox for a team.
// Unknown teams are a no-op.
func (s *Store) UpdateInbox(name, member string, messages []Message) {
	s.mu.Lock()
	prev, exists := s.teams[name]
	if !exists {
		s.mu.Unlock()
		return
	}
	next := prev.clone()
	next.Inboxes[member] = messages
	next.LastUpdated = s.now()
	s.teams[name] = next
	s.reprojectLocked()
	s.mu.Unlock()

	s.bus.Publish(event.NewSnapshotUpdatedEvent(name))
}

// Select sets the currently-selected team. An empty name clears the
// selection. Selecting a name the store does not track is allowed; the
// projection stays empty until that team appears.
func (s *Store) Select(name string) {
	s.mu.Lock()
	if s.selected == name {
		s.mu.Unlock()
		return
	}
	s.selected = name
	s.reprojectLocked()
	s.mu.Unlock()

	s.bus.Publish(event.NewSelectionChangedEvent(name))
}

// Selected returns the name of the currently-selected team, or "".
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Team returns the snapshot for the named team.
func (s *Store) Team(name string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.teams[name]
	return snap, ok
}

// Teams returns all snapshots in insertion order.
func (s *Store) Teams() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.teams[name])
	}
	return out
}

// Len returns the number of tracked teams.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}

// Projection returns the derived view for the current selection.
func (s *Store) Projection() Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proj
}

// reprojectLocked recomputes the derived projection. Must be called with
// s.mu held for writing.
func (s *Store) reprojectLocked() {
	s.proj = project(s.teams, s.selected)
}

// project is the pure projection function from team map plus selection
// to derived view, kept free of store state for testability.
func project(teams map[string]Snapshot, selected string) Projection {
	snap, ok := teams[selected]
	if selected == "" || !ok {
		return Projection{}
	}

	// Flatten inboxes: config-member order first, then any inboxes for
	// names no longer in the config, in sorted order for determinism.
	var messages []Message
	seen := make(map[string]bool, len(snap.Inboxes))
	for _, m := range snap.Config.Members {
		if msgs, ok := snap.Inboxes[m.Name]; ok {
			messages = append(messages, msgs...)
			seen[m.Name] = true
		}
	}
	var rest []string
	for name := range snap.Inboxes {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		messages = append(messages, snap.Inboxes[name]...)
	}

	return Projection{
		Selected: &snap,
		Tasks:    snap.Tasks,
		Messages: messages,
	}
}

// publishExits emits a MemberExitedEvent for every member present in the
// old config and absent from the new one. Exit time is the store's
// current clock; uptime runs from the member's original join time.
func (s *Store) publishExits(teamName string, oldCfg, newCfg Config) {
	newNames := newCfg.MemberNames()
	now := s.now()
	for _, m := range oldCfg.Members {
		if newNames[m.Name] {
			continue
		}
		s.log.Info("member left config", "team", teamName, "member", m.Name)
		s.bus.Publish(event.NewMemberExitedEvent(teamName, m.Name, m.JoinedAt, now))
	}
}
