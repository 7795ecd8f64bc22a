// Package event defines the typed notifications that decouple the
// crewsync engine's components. The snapshot store publishes state
// transitions; the health monitor, hook synchronizer, and archive
// coordinator react to them without holding direct references.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "team.added", "archive.written").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Team Lifecycle Events
// -----------------------------------------------------------------------------

// TeamAddedEvent is emitted when a team enters the snapshot store.
// TeamCount is the number of tracked teams after the addition, which the
// hook synchronizer uses to detect the empty-to-populated transition.
type TeamAddedEvent struct {
	baseEvent
	TeamName  string
	TeamCount int
}

// NewTeamAddedEvent creates a TeamAddedEvent.
func NewTeamAddedEvent(teamName string, teamCount int) TeamAddedEvent {
	return TeamAddedEvent{
		baseEvent: newBaseEvent("team.added"),
		TeamName:  teamName,
		TeamCount: teamCount,
	}
}

// TeamRemovedEvent is emitted when a team leaves the snapshot store.
// TeamCount is the number of tracked teams after the removal.
type TeamRemovedEvent struct {
	baseEvent
	TeamName  string
	TeamCount int
}

// NewTeamRemovedEvent creates a TeamRemovedEvent.
func NewTeamRemovedEvent(teamName string, teamCount int) TeamRemovedEvent {
	return TeamRemovedEvent{
		baseEvent: newBaseEvent("team.removed"),
		TeamName:  teamName,
		TeamCount: teamCount,
	}
}

// MemberExitedEvent is emitted when a config update drops a member that
// was present in the previous config. This is the only exit signal the
// engine has: process death is not separately observable, so a config
// diff is treated as an exit. Consumers must regard it as a heuristic,
// not proof of process termination.
type MemberExitedEvent struct {
	baseEvent
	TeamName string
	Member   string
	JoinedAt time.Time
	ExitedAt time.Time
	Uptime   time.Duration
}

// NewMemberExitedEvent creates a MemberExitedEvent.
func NewMemberExitedEvent(teamName, member string, joinedAt, exitedAt time.Time) MemberExitedEvent {
	return MemberExitedEvent{
		baseEvent: newBaseEvent("team.member_exited"),
		TeamName:  teamName,
		Member:    member,
		JoinedAt:  joinedAt,
		ExitedAt:  exitedAt,
		Uptime:    exitedAt.Sub(joinedAt),
	}
}

// -----------------------------------------------------------------------------
// Snapshot Events
// -----------------------------------------------------------------------------

// SnapshotUpdatedEvent is emitted after any mutation of a team's snapshot
// (config, tasks, or inbox replacement).
type SnapshotUpdatedEvent struct {
	baseEvent
	TeamName string
}

// NewSnapshotUpdatedEvent creates a SnapshotUpdatedEvent.
func NewSnapshotUpdatedEvent(teamName string) SnapshotUpdatedEvent {
	return SnapshotUpdatedEvent{
		baseEvent: newBaseEvent("snapshot.updated"),
		TeamName:  teamName,
	}
}

// SelectionChangedEvent is emitted when the selected team changes.
// TeamName is empty when the selection was cleared.
type SelectionChangedEvent struct {
	baseEvent
	TeamName string
}

// NewSelectionChangedEvent creates a SelectionChangedEvent.
func NewSelectionChangedEvent(teamName string) SelectionChangedEvent {
	return SelectionChangedEvent{
		baseEvent: newBaseEvent("snapshot.selection_changed"),
		TeamName:  teamName,
	}
}

// -----------------------------------------------------------------------------
// Derived-State Events
// -----------------------------------------------------------------------------

// HealthUpdatedEvent is emitted after each health monitor pass over the
// selected team.
type HealthUpdatedEvent struct {
	baseEvent
	TeamName     string
	Members      int // non-lead members evaluated
	Unresponsive int
	Exited       int
}

// NewHealthUpdatedEvent creates a HealthUpdatedEvent.
func NewHealthUpdatedEvent(teamName string, members, unresponsive, exited int) HealthUpdatedEvent {
	return HealthUpdatedEvent{
		baseEvent:    newBaseEvent("health.updated"),
		TeamName:     teamName,
		Members:      members,
		Unresponsive: unresponsive,
		Exited:       exited,
	}
}

// AnalyticsUpdatedEvent is emitted after each analytics pass over the
// selected team.
type AnalyticsUpdatedEvent struct {
	baseEvent
	TeamName          string
	Velocity          float64
	CompletionPct     float64
	BottleneckTaskIDs []string
}

// NewAnalyticsUpdatedEvent creates an AnalyticsUpdatedEvent.
func NewAnalyticsUpdatedEvent(teamName string, velocity, completionPct float64, bottlenecks []string) AnalyticsUpdatedEvent {
	return AnalyticsUpdatedEvent{
		baseEvent:         newBaseEvent("analytics.updated"),
		TeamName:          teamName,
		Velocity:          velocity,
		CompletionPct:     completionPct,
		BottleneckTaskIDs: bottlenecks,
	}
}

// -----------------------------------------------------------------------------
// Side-Effect Events
// -----------------------------------------------------------------------------

// ArchiveWrittenEvent is emitted after a team's snapshot is successfully
// written to the archive store.
type ArchiveWrittenEvent struct {
	baseEvent
	TeamName  string
	ArchiveID string
}

// NewArchiveWrittenEvent creates an ArchiveWrittenEvent.
func NewArchiveWrittenEvent(teamName, archiveID string) ArchiveWrittenEvent {
	return ArchiveWrittenEvent{
		baseEvent: newBaseEvent("archive.written"),
		TeamName:  teamName,
		ArchiveID: archiveID,
	}
}

// ArchiveListRefreshedEvent is emitted after the externally-visible
// archive list has been reloaded following a successful archive write.
type ArchiveListRefreshedEvent struct {
	baseEvent
	Count int
}

// NewArchiveListRefreshedEvent creates an ArchiveListRefreshedEvent.
func NewArchiveListRefreshedEvent(count int) ArchiveListRefreshedEvent {
	return ArchiveListRefreshedEvent{
		baseEvent: newBaseEvent("archive.list_refreshed"),
		Count:     count,
	}
}

// WatcherErrorEvent is emitted when the watcher reports an error. The
// ingestor also records the error as the engine's visible error state.
type WatcherErrorEvent struct {
	baseEvent
	Message string
}

// NewWatcherErrorEvent creates a WatcherErrorEvent.
func NewWatcherErrorEvent(message string) WatcherErrorEvent {
	return WatcherErrorEvent{
		baseEvent: newBaseEvent("watcher.error"),
		Message:   message,
	}
}
