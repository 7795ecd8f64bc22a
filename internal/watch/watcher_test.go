package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crewsync/crewsync/internal/logging"
)

const waitFor = 3 * time.Second

type rawEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// waitEnvelope reads events until one of the wanted type arrives,
// skipping unrelated events produced along the way.
func waitEnvelope(t *testing.T, ch <-chan []byte, wantType string) rawEnvelope {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed while waiting for %s", wantType)
			}
			var env rawEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("malformed envelope: %v", err)
			}
			if env.Type == wantType {
				return env
			}
		case <-deadline:
			t.Fatalf("no %s event within %v", wantType, waitFor)
		}
	}
}

func writeTeamFixture(t *testing.T, root, teamName string) {
	t.Helper()
	dir := filepath.Join(root, teamName)
	if err := os.MkdirAll(filepath.Join(dir, "inboxes"), 0o755); err != nil {
		t.Fatal(err)
	}
	config := `{"name": "` + teamName + `", "members": [{"name": "lead", "agentId": "a-1", "joinedAt": "2025-06-01T09:00:00Z"}], "leadAgentId": "a-1", "createdAt": "2025-06-01T09:00:00Z"}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestWatcher(t *testing.T, root string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithDebounce(10 * time.Millisecond)}, opts...)
	w, err := New(root, logging.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestAnnouncesExistingTeams(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")

	w := newTestWatcher(t, root)

	env := waitEnvelope(t, w.Events(), "team-created")
	var payload struct {
		Config struct {
			Name string `json:"name"`
		} `json:"config"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Config.Name != "alpha" {
		t.Fatalf("announced team %q, want alpha", payload.Config.Name)
	}
}

func TestAnnouncesExistingTeamContents(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")

	tasks := `[{"id": "t1", "status": "in_progress"}]`
	if err := os.WriteFile(filepath.Join(root, "alpha", "tasks.json"), []byte(tasks), 0o644); err != nil {
		t.Fatal(err)
	}
	line := `{"from": "lead", "timestamp": "2025-06-01T10:00:00Z", "content": "ping"}` + "\n"
	if err := os.WriteFile(filepath.Join(root, "alpha", "inboxes", "worker.jsonl"), []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, root)
	waitEnvelope(t, w.Events(), "team-created")

	// The scheduled emits for tasks and inboxes race each other.
	seen := map[string]rawEnvelope{}
	deadline := time.After(waitFor)
	for len(seen) < 2 {
		select {
		case raw, ok := <-w.Events():
			if !ok {
				t.Fatal("events channel closed during startup rescan")
			}
			var env rawEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("malformed envelope: %v", err)
			}
			if env.Type == "tasks-changed" || env.Type == "inbox-changed" {
				seen[env.Type] = env
			}
		case <-deadline:
			t.Fatalf("startup rescan emitted %v, want tasks-changed and inbox-changed", seen)
		}
	}

	var tasksPayload struct {
		Tasks []struct {
			ID string `json:"id"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(seen["tasks-changed"].Payload, &tasksPayload); err != nil {
		t.Fatal(err)
	}
	if len(tasksPayload.Tasks) != 1 || tasksPayload.Tasks[0].ID != "t1" {
		t.Fatalf("startup tasks payload: %s", seen["tasks-changed"].Payload)
	}

	var inboxPayload struct {
		AgentName string            `json:"agentName"`
		Messages  []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(seen["inbox-changed"].Payload, &inboxPayload); err != nil {
		t.Fatal(err)
	}
	if inboxPayload.AgentName != "worker" || len(inboxPayload.Messages) != 1 {
		t.Fatalf("startup inbox payload: %s", seen["inbox-changed"].Payload)
	}
}

func TestConfigChangeEmitted(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")
	w := newTestWatcher(t, root)
	waitEnvelope(t, w.Events(), "team-created")

	config := `{"name": "alpha", "members": [], "leadAgentId": "a-1", "createdAt": "2025-06-01T09:00:00Z"}`
	if err := os.WriteFile(filepath.Join(root, "alpha", "config.json"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	env := waitEnvelope(t, w.Events(), "team-config-changed")
	var payload struct {
		TeamName string `json:"teamName"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.TeamName != "alpha" {
		t.Fatalf("teamName = %q, want alpha", payload.TeamName)
	}
}

func TestTasksChangeEmitted(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")
	w := newTestWatcher(t, root)
	waitEnvelope(t, w.Events(), "team-created")

	tasks := `[{"id": "t1", "status": "pending"}]`
	if err := os.WriteFile(filepath.Join(root, "alpha", "tasks.json"), []byte(tasks), 0o644); err != nil {
		t.Fatal(err)
	}

	env := waitEnvelope(t, w.Events(), "tasks-changed")
	var payload struct {
		Tasks []struct {
			ID string `json:"id"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Tasks) != 1 || payload.Tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks payload: %s", env.Payload)
	}
}

func TestInboxChangeEmitted(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")
	w := newTestWatcher(t, root)
	waitEnvelope(t, w.Events(), "team-created")

	lines := `{"from": "lead", "timestamp": "2025-06-01T10:00:00Z", "content": "ping"}` + "\n" +
		"\n" +
		`{"from": "lead", "timestamp": "2025-06-01T10:01:00Z", "content": "pong"}` + "\n" +
		`{"from": "lead", "truncated` // partial trailing line is skipped
	path := filepath.Join(root, "alpha", "inboxes", "worker.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	env := waitEnvelope(t, w.Events(), "inbox-changed")
	var payload struct {
		TeamName  string            `json:"teamName"`
		AgentName string            `json:"agentName"`
		Messages  []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.AgentName != "worker" {
		t.Fatalf("agentName = %q, want worker", payload.AgentName)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (blank and partial lines skipped)", len(payload.Messages))
	}
}

func TestTeamDeletedEmitted(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")
	w := newTestWatcher(t, root)
	waitEnvelope(t, w.Events(), "team-created")

	if err := os.RemoveAll(filepath.Join(root, "alpha")); err != nil {
		t.Fatal(err)
	}

	env := waitEnvelope(t, w.Events(), "team-deleted")
	var payload struct {
		TeamName string `json:"teamName"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.TeamName != "alpha" {
		t.Fatalf("teamName = %q, want alpha", payload.TeamName)
	}
}

func TestNewTeamDirectoryPickedUp(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	writeTeamFixture(t, root, "beta")

	env := waitEnvelope(t, w.Events(), "team-config-changed")
	var payload struct {
		TeamName string `json:"teamName"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.TeamName != "beta" {
		t.Fatalf("teamName = %q, want beta", payload.TeamName)
	}
}

func TestScanStale(t *testing.T) {
	root := t.TempDir()
	writeTeamFixture(t, root, "alpha")

	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	w := newTestWatcher(t, root,
		WithClock(clock),
		WithStaleThreshold(time.Hour))
	waitEnvelope(t, w.Events(), "team-created")

	// Not stale yet.
	w.ScanStale()
	select {
	case raw := <-w.Events():
		var env rawEnvelope
		_ = json.Unmarshal(raw, &env)
		if env.Type == "team-stale" {
			t.Fatal("team reported stale before threshold")
		}
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	w.ScanStale()
	waitEnvelope(t, w.Events(), "team-stale")

	// The same silence period is reported once.
	w.ScanStale()
	select {
	case raw, ok := <-w.Events():
		if !ok {
			break
		}
		var env rawEnvelope
		_ = json.Unmarshal(raw, &env)
		if env.Type == "team-stale" {
			t.Fatal("stale reported twice for one silence period")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitBlocksUnderBackpressure(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	// Well past the channel buffer; every event must still come through.
	const n = 400
	go func() {
		for i := 0; i < n; i++ {
			w.emit("team-stale", map[string]any{"teamName": "alpha"})
		}
	}()

	got := 0
	deadline := time.After(waitFor)
	for got < n {
		select {
		case _, ok := <-w.Events():
			if !ok {
				t.Fatalf("channel closed after %d events, want %d", got, n)
			}
			got++
		case <-deadline:
			t.Fatalf("received %d events, want %d", got, n)
		}
	}
}

func TestClose(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Channel drains then closes.
	deadline := time.After(waitFor)
	for {
		select {
		case _, ok := <-w.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed")
		}
	}
}
