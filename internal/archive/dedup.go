package archive

import "sync"

// DedupSet marks teams whose deletion archive was already written by
// the staleness path, so the follow-up externally-observed deletion
// does not archive the same team twice. It is owned by the engine and
// passed by handle; there is no package-level state.
//
// The event stream is serialized, but archive completions run off the
// event loop and may unmark concurrently, so the set carries its own
// mutex.
type DedupSet struct {
	mu    sync.Mutex
	teams map[string]bool
}

// NewDedupSet creates an empty DedupSet.
func NewDedupSet() *DedupSet {
	return &DedupSet{teams: make(map[string]bool)}
}

// Mark records that the named team's archive has been written ahead of
// its deletion event.
func (d *DedupSet) Mark(team string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams[team] = true
}

// Unmark removes the marker, re-allowing an archive on the next
// deletion event. Used when a proactive archive attempt fails.
func (d *DedupSet) Unmark(team string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.teams, team)
}

// Consume reports whether the team was marked and removes the marker
// either way, so each logical deletion gets exactly one decision.
func (d *DedupSet) Consume(team string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	marked := d.teams[team]
	delete(d.teams, team)
	return marked
}

// Contains reports whether the team is currently marked.
func (d *DedupSet) Contains(team string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.teams[team]
}
