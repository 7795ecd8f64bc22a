package team

import "time"

// Member is one agent in a team. Identity is Name within the team;
// AgentID distinguishes the lead.
type Member struct {
	Name     string    `json:"name"`
	AgentID  string    `json:"agentId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Config is a team's configuration as reported by the watcher.
// Name is the unique key across all teams.
type Config struct {
	Name        string    `json:"name"`
	Members     []Member  `json:"members"`
	LeadAgentID string    `json:"leadAgentId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Lead returns the team's lead member, if present in the member list.
func (c Config) Lead() (Member, bool) {
	for _, m := range c.Members {
		if m.AgentID == c.LeadAgentID {
			return m, true
		}
	}
	return Member{}, false
}

// IsLead reports whether the given member is the team's lead.
func (c Config) IsLead(m Member) bool {
	return m.AgentID == c.LeadAgentID
}

// NonLeadMembers returns the members that are not the team's lead,
// in config order.
func (c Config) NonLeadMembers() []Member {
	out := make([]Member, 0, len(c.Members))
	for _, m := range c.Members {
		if !c.IsLead(m) {
			out = append(out, m)
		}
	}
	return out
}

// MemberNames returns the set of member names in the config.
func (c Config) MemberNames() map[string]bool {
	names := make(map[string]bool, len(c.Members))
	for _, m := range c.Members {
		names[m.Name] = true
	}
	return names
}

// TaskStatus is the lifecycle state of a shared task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
	TaskDeleted    TaskStatus = "deleted"
)

// IsValid returns true if this is a recognized task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked, TaskDeleted:
		return true
	default:
		return false
	}
}

// Task is one entry in a team's shared task list.
type Task struct {
	ID        string         `json:"id"`
	Status    TaskStatus     `json:"status"`
	Owner     string         `json:"owner"`
	BlockedBy []string       `json:"blockedBy,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Internal reports whether the task's metadata marks it as internal.
// Internal tasks are bookkeeping entries the agents create for
// themselves; they are excluded from all analytics.
func (t Task) Internal() bool {
	v, ok := t.Metadata["internal"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// CountsForAnalytics reports whether the task participates in
// throughput and completion metrics.
func (t Task) CountsForAnalytics() bool {
	return t.Status != TaskDeleted && !t.Internal()
}

// Message is one entry in a member's inbox. Inboxes are ordered oldest
// first, as delivered by the watcher.
type Message struct {
	From      string    `json:"from"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
}

// Snapshot is the materialized state of one team. Snapshots are owned
// by the Store and treated as immutable: every update produces a new
// Snapshot value for the affected team, so holders of a previous
// snapshot never observe mutation.
type Snapshot struct {
	Config      Config               `json:"config"`
	Tasks       []Task               `json:"tasks"`
	Inboxes     map[string][]Message `json:"inboxes"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

// Inbox returns the inbox for the named member, or nil if none exists.
func (s Snapshot) Inbox(member string) []Message {
	return s.Inboxes[member]
}

// clone returns a shallow copy of the snapshot with a fresh inbox map.
// Task and message slices are shared with the original; the store only
// ever replaces them wholesale, never edits them in place.
func (s Snapshot) clone() Snapshot {
	inboxes := make(map[string][]Message, len(s.Inboxes))
	for k, v := range s.Inboxes {
		inboxes[k] = v
	}
	s.Inboxes = inboxes
	return s
}
