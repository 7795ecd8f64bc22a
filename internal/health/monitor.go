// Package health classifies members of the selected team as
// responsive, unresponsive, or exited from activity timestamps.
//
// The classification is heuristic. Agent processes are not directly
// observable: the only signals are inbox message timestamps and config
// membership diffs, so "unresponsive" means "likely stalled" and
// "exited" means "dropped from the config", nothing stronger.
package health

import (
	"sync"
	"time"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

// Default activity thresholds. A member holding an in_progress task is
// expected to report more often than one sitting idle, hence the lower
// bar when a task is active.
const (
	DefaultActiveTaskThreshold = 5 * time.Minute
	DefaultIdleThreshold       = 10 * time.Minute
)

// HumanSender is the inbox sender name for operator-injected prompts.
// Messages from the human count as prompts for response-time pairing,
// same as messages from the lead.
const HumanSender = "human"

// Info is the derived health record for one non-lead member.
type Info struct {
	LastActivity    time.Time
	IsUnresponsive  bool
	ExitedAt        time.Time // zero if the member has not exited
	Uptime          time.Duration
	MessageCount    int // messages from this member in the lead's inbox
	AvgResponseTime time.Duration
	HasResponseTime bool // false when no prompt/response pairs exist
}

// Exited reports whether the member has an inferred exit recorded.
func (i Info) Exited() bool {
	return !i.ExitedAt.IsZero()
}

// Monitor maintains per-member health for the currently-selected team.
// Tick runs on the engine's 30-second cadence and synchronously on
// selection change; exit records arrive via the event bus and survive
// recomputation.
type Monitor struct {
	mu      sync.RWMutex
	store   *team.Store
	bus     *event.Bus
	log     *logging.Logger
	entries map[string]Info
	team    string // team the entries belong to

	activeTaskThreshold time.Duration
	idleThreshold       time.Duration
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithThresholds overrides the unresponsiveness thresholds.
func WithThresholds(activeTask, idle time.Duration) MonitorOption {
	return func(m *Monitor) {
		if activeTask > 0 {
			m.activeTaskThreshold = activeTask
		}
		if idle > 0 {
			m.idleThreshold = idle
		}
	}
}

// NewMonitor creates a Monitor and subscribes it to member-exit events.
func NewMonitor(store *team.Store, bus *event.Bus, log *logging.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:               store,
		bus:                 bus,
		log:                 log.WithComponent("health"),
		entries:             make(map[string]Info),
		activeTaskThreshold: DefaultActiveTaskThreshold,
		idleThreshold:       DefaultIdleThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}

	bus.Subscribe("team.member_exited", func(e event.Event) {
		if ex, ok := e.(event.MemberExitedEvent); ok {
			m.recordExit(ex)
		}
	})
	bus.Subscribe("snapshot.selection_changed", func(event.Event) {
		m.Tick(time.Now())
	})

	return m
}

// recordExit stores an inferred exit for a member of the selected team.
// The entry is created if the member was never evaluated; an existing
// exit timestamp is never overwritten.
func (m *Monitor) recordExit(ex event.MemberExitedEvent) {
	if ex.TeamName != m.store.Selected() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info := m.entries[ex.Member]
	if !info.ExitedAt.IsZero() {
		return
	}
	info.ExitedAt = ex.ExitedAt
	info.Uptime = ex.ExitedAt.Sub(ex.JoinedAt)
	if info.LastActivity.IsZero() {
		info.LastActivity = ex.JoinedAt
	}
	m.entries[ex.Member] = info
}

// Tick recomputes health for every non-lead member of the selected
// team. With no selection, all health state is cleared.
func (m *Monitor) Tick(now time.Time) {
	selected := m.store.Selected()
	snap, ok := m.store.Team(selected)
	if selected == "" || !ok {
		m.mu.Lock()
		m.entries = make(map[string]Info)
		m.team = ""
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Selection moved to another team: prior entries are meaningless.
	if m.team != selected {
		m.entries = make(map[string]Info)
		m.team = selected
	}

	lead, hasLead := snap.Config.Lead()
	var leadInbox []team.Message
	if hasLead {
		leadInbox = snap.Inbox(lead.Name)
	}

	next := make(map[string]Info, len(m.entries))
	unresponsive, exited := 0, 0

	for _, member := range snap.Config.NonLeadMembers() {
		prev := m.entries[member.Name]
		info := m.evaluate(member, snap, lead, leadInbox, prev, now)
		next[member.Name] = info
		if info.IsUnresponsive {
			unresponsive++
		}
		if info.Exited() {
			exited++
		}
	}

	// Members gone from the config keep their record verbatim if it
	// carries an exit; a removed member's stats are never recomputed.
	inConfig := snap.Config.MemberNames()
	for name, info := range m.entries {
		if inConfig[name] || !info.Exited() {
			continue
		}
		next[name] = info
		exited++
	}

	m.entries = next
	m.bus.Publish(event.NewHealthUpdatedEvent(selected, len(next), unresponsive, exited))
}

// evaluate computes one member's health record.
func (m *Monitor) evaluate(member team.Member, snap team.Snapshot, lead team.Member, leadInbox []team.Message, prev Info, now time.Time) Info {
	info := Info{
		// An exit is carried forward even when the member reappears in
		// a later config; the reappearance is a new join, not a revival.
		ExitedAt: prev.ExitedAt,
	}

	inbox := snap.Inbox(member.Name)

	info.LastActivity = member.JoinedAt
	for _, msg := range inbox {
		if msg.Timestamp.After(info.LastActivity) {
			info.LastActivity = msg.Timestamp
		}
	}

	hasActiveTask := false
	for _, t := range snap.Tasks {
		if t.Owner == member.Name && t.Status == team.TaskInProgress {
			hasActiveTask = true
			break
		}
	}

	silence := now.Sub(info.LastActivity)
	info.IsUnresponsive = (hasActiveTask && silence > m.activeTaskThreshold) ||
		silence > m.idleThreshold

	end := now
	if info.Exited() {
		end = info.ExitedAt
	}
	info.Uptime = end.Sub(member.JoinedAt)

	for _, msg := range leadInbox {
		if msg.From == member.Name {
			info.MessageCount++
		}
	}

	info.AvgResponseTime, info.HasResponseTime = avgResponse(member.Name, lead.Name, inbox, leadInbox)
	return info
}

// avgResponse pairs each prompt in the member's inbox (a message from
// the lead or from the human) with the member's next chronologically
// later report in the lead's inbox, and averages the deltas. The lead's
// inbox is the de facto transcript of subordinate reports, which is why
// responses are looked up there rather than anywhere else.
func avgResponse(memberName, leadName string, inbox, leadInbox []team.Message) (time.Duration, bool) {
	var total time.Duration
	var pairs int

	for _, prompt := range inbox {
		if prompt.From != leadName && prompt.From != HumanSender {
			continue
		}
		var best time.Time
		for _, reply := range leadInbox {
			if reply.From != memberName || !reply.Timestamp.After(prompt.Timestamp) {
				continue
			}
			if best.IsZero() || reply.Timestamp.Before(best) {
				best = reply.Timestamp
			}
		}
		if !best.IsZero() {
			total += best.Sub(prompt.Timestamp)
			pairs++
		}
	}

	if pairs == 0 {
		return 0, false
	}
	return total / time.Duration(pairs), true
}

// Health returns a copy of the current health map.
func (m *Monitor) Health() map[string]Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Info, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Team returns the team the current health map belongs to.
func (m *Monitor) Team() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.team
}
