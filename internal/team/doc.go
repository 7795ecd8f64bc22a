// Package team defines the crewsync data model and the snapshot Store.
//
// A team is a named group of cooperating agents with one designated
// lead. The watcher reports each team's config, shared task list, and
// per-member inboxes as independent change streams; the Store
// reconciles them into one [Snapshot] per team.
//
// # Snapshot Ownership
//
// Snapshots are owned exclusively by the [Store] and never mutated in
// place: every update produces a new snapshot value for the affected
// team while unaffected teams keep referential identity
// (shallow copy-on-write). Readers can therefore hold a snapshot
// across ticks without synchronization.
//
// # Derived Projection
//
// After every mutation the Store recomputes a [Projection] for the
// currently-selected team: the snapshot itself, its task list, and the
// flattened concatenation of its inboxes. The recompute is a pure
// function of the team map and the selection, so it is testable
// independent of the storage mechanism.
//
// # Exit Detection
//
// A config update that drops a member is the only exit signal the
// engine has. The Store publishes a MemberExitedEvent for each dropped
// name; consumers must treat it as a heuristic, since the watcher
// failing to report a member is indistinguishable from a shutdown.
package team
