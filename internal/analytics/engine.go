// Package analytics computes productivity metrics for the selected
// team: throughput, completion, messaging volume, response latency, and
// bottleneck-task ranking. Metrics are recomputed wholesale on each
// tick and never partially updated.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/health"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

// blockerWeight converts a dependency count into bottleneck-score
// minutes. A blocked task is a structural bottleneck, so dependency
// count dominates over mere running time.
const blockerWeight = 3

// bottleneckLimit caps how many task IDs the ranking reports.
const bottleneckLimit = 3

// Analytics is one wholesale metrics computation for a team.
type Analytics struct {
	Velocity           float64 // completed tasks per minute of team uptime
	CompletionPct      float64
	TotalMessages      int
	AvgResponseLatency time.Duration
	MessageRate        float64 // messages per minute of team uptime
	BottleneckTaskIDs  []string
	TeamUptime         time.Duration
}

// Engine derives Analytics from the snapshot store, the health map, and
// a process-lifetime index of when each task ID was first observed.
type Engine struct {
	mu     sync.RWMutex
	store  *team.Store
	health *health.Monitor
	bus    *event.Bus
	log    *logging.Logger

	// firstSeen is append-only for the engine's lifetime: a task's
	// observation time survives the task leaving and re-entering the
	// task list, so in-progress duration is never undercounted.
	firstSeen map[string]time.Time
	latest    Analytics
	team      string
}

// NewEngine creates an analytics Engine. It recomputes synchronously on
// selection change; the health monitor subscribes first, so the metrics
// see the freshly recomputed health map.
func NewEngine(store *team.Store, monitor *health.Monitor, bus *event.Bus, log *logging.Logger) *Engine {
	e := &Engine{
		store:     store,
		health:    monitor,
		bus:       bus,
		log:       log.WithComponent("analytics"),
		firstSeen: make(map[string]time.Time),
	}
	bus.Subscribe("snapshot.selection_changed", func(event.Event) {
		e.Compute(time.Now())
	})
	return e
}

// Compute recalculates all metrics for the selected team. With no
// selection the previous metrics are discarded and zeroes are kept.
func (e *Engine) Compute(now time.Time) Analytics {
	selected := e.store.Selected()
	snap, ok := e.store.Team(selected)
	if selected == "" || !ok {
		e.mu.Lock()
		e.latest = Analytics{}
		e.team = ""
		e.mu.Unlock()
		return Analytics{}
	}

	tasks := eligibleTasks(snap.Tasks)

	e.mu.Lock()
	// Index first, so a task observed and scored in the same pass gets
	// zero minutes running rather than a negative or missing stamp.
	for _, t := range tasks {
		if _, seen := e.firstSeen[t.ID]; !seen {
			e.firstSeen[t.ID] = now
		}
	}

	a := Analytics{TeamUptime: now.Sub(snap.Config.CreatedAt)}
	uptimeMinutes := a.TeamUptime.Minutes()

	completed := 0
	for _, t := range tasks {
		if t.Status == team.TaskCompleted {
			completed++
		}
	}
	if uptimeMinutes > 0 {
		a.Velocity = float64(completed) / uptimeMinutes
	}
	if len(tasks) > 0 {
		a.CompletionPct = 100 * float64(completed) / float64(len(tasks))
	}

	for _, msgs := range snap.Inboxes {
		a.TotalMessages += len(msgs)
	}
	if uptimeMinutes > 0 {
		a.MessageRate = float64(a.TotalMessages) / uptimeMinutes
	}

	a.AvgResponseLatency = meanResponseLatency(e.health.Health())
	a.BottleneckTaskIDs = e.bottlenecksLocked(tasks, now)

	e.latest = a
	e.team = selected
	e.mu.Unlock()

	e.bus.Publish(event.NewAnalyticsUpdatedEvent(selected, a.Velocity, a.CompletionPct, a.BottleneckTaskIDs))
	return a
}

// eligibleTasks filters out deleted and internal tasks, which are
// excluded from all analytics.
func eligibleTasks(tasks []team.Task) []team.Task {
	out := make([]team.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.CountsForAnalytics() {
			out = append(out, t)
		}
	}
	return out
}

// meanResponseLatency averages the defined per-member response times.
func meanResponseLatency(entries map[string]health.Info) time.Duration {
	var total time.Duration
	var n int
	for _, info := range entries {
		if info.HasResponseTime {
			total += info.AvgResponseTime
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// bottlenecksLocked ranks non-completed tasks by
// blockerWeight*|blockedBy| + minutesRunning, where minutesRunning only
// accrues while the task is in_progress. Must be called with e.mu held.
func (e *Engine) bottlenecksLocked(tasks []team.Task, now time.Time) []string {
	type scored struct {
		id    string
		score float64
	}
	var candidates []scored

	for _, t := range tasks {
		if t.Status == team.TaskCompleted {
			continue
		}
		score := float64(blockerWeight * len(t.BlockedBy))
		if t.Status == team.TaskInProgress {
			if first, ok := e.firstSeen[t.ID]; ok {
				score += now.Sub(first).Minutes()
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{id: t.ID, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > bottleneckLimit {
		candidates = candidates[:bottleneckLimit]
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}

// Latest returns the most recently computed analytics and the team they
// belong to.
func (e *Engine) Latest() (Analytics, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest, e.team
}

// FirstSeen returns when the given task ID was first observed, if ever.
func (e *Engine) FirstSeen(taskID string) (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ts, ok := e.firstSeen[taskID]
	return ts, ok
}
