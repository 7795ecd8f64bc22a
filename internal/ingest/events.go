package ingest

import "github.com/crewsync/crewsync/internal/team"

// Kind identifies a watcher event type.
type Kind string

const (
	KindTeamConfigChanged Kind = "team-config-changed"
	KindTasksChanged      Kind = "tasks-changed"
	KindInboxChanged      Kind = "inbox-changed"
	KindTeamCreated       Kind = "team-created"
	KindTeamDeleted       Kind = "team-deleted"
	KindTeamStale         Kind = "team-stale"
	KindWatcherError      Kind = "watcher-error"
)

// Event is one decoded watcher notification. The seven concrete types
// below form a closed union: each is fully self-describing, and no
// event requires a prior event to interpret (a config change for an
// untracked team is treated as creation).
type Event interface {
	Kind() Kind
}

// ConfigChanged reports a new config for a team.
type ConfigChanged struct {
	TeamName string      `json:"teamName"`
	Config   team.Config `json:"config"`
}

// Kind implements Event.
func (ConfigChanged) Kind() Kind { return KindTeamConfigChanged }

// TasksChanged reports the full replacement task list for a team.
type TasksChanged struct {
	TeamName string      `json:"teamName"`
	Tasks    []team.Task `json:"tasks"`
}

// Kind implements Event.
func (TasksChanged) Kind() Kind { return KindTasksChanged }

// InboxChanged reports the full replacement inbox for one member.
type InboxChanged struct {
	TeamName  string         `json:"teamName"`
	AgentName string         `json:"agentName"`
	Messages  []team.Message `json:"messages"`
}

// Kind implements Event.
func (InboxChanged) Kind() Kind { return KindInboxChanged }

// TeamCreated reports a newly-observed team.
type TeamCreated struct {
	Config team.Config `json:"config"`
}

// Kind implements Event.
func (TeamCreated) Kind() Kind { return KindTeamCreated }

// TeamDeleted reports that a team's backing state is gone.
type TeamDeleted struct {
	TeamName string `json:"teamName"`
}

// Kind implements Event.
func (TeamDeleted) Kind() Kind { return KindTeamDeleted }

// TeamStale reports a team inactive beyond the watcher's threshold.
type TeamStale struct {
	TeamName string `json:"teamName"`
}

// Kind implements Event.
func (TeamStale) Kind() Kind { return KindTeamStale }

// WatcherFailure reports an error inside the watcher itself.
type WatcherFailure struct {
	Error string `json:"error"`
}

// Kind implements Event.
func (WatcherFailure) Kind() Kind { return KindWatcherError }
