package command

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crewsync/crewsync/internal/team"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCommander(t *testing.T) (*FileCommander, string) {
	t.Helper()
	dir := t.TempDir()
	c := NewFileCommander(dir, WithClock(func() time.Time { return testNow }))
	return c, dir
}

func testConfig() team.Config {
	return team.Config{
		Name: "alpha",
		Members: []team.Member{
			{Name: "lead", AgentID: "agent-1", JoinedAt: testNow},
			{Name: "worker", AgentID: "agent-2", JoinedAt: testNow},
		},
		LeadAgentID: "agent-1",
	}
}

func readInbox(t *testing.T, path string) []team.Message {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open inbox: %v", err)
	}
	defer f.Close()

	var msgs []team.Message
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m team.Message
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("parse inbox line: %v", err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestCreateTeam(t *testing.T) {
	c, dir := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "alpha", "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg team.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Name != "alpha" || len(cfg.Members) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.CreatedAt.Equal(testNow) {
		t.Fatalf("CreatedAt = %v, want %v", cfg.CreatedAt, testNow)
	}

	tasks, err := os.ReadFile(filepath.Join(dir, "alpha", "tasks.json"))
	if err != nil {
		t.Fatalf("read tasks: %v", err)
	}
	if string(tasks) != "[]\n" {
		t.Fatalf("tasks = %q, want empty list", tasks)
	}

	for _, name := range []string{"lead", "worker"} {
		if _, err := os.Stat(filepath.Join(dir, "alpha", "inboxes", name+".jsonl")); err != nil {
			t.Fatalf("missing inbox for %s: %v", name, err)
		}
	}
}

func TestCreateTeam_AlreadyExists(t *testing.T) {
	c, _ := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatalf("first CreateTeam: %v", err)
	}
	if err := c.CreateTeam(context.Background(), testConfig()); err == nil {
		t.Fatal("expected error creating duplicate team")
	}
}

func TestMessageTeammate(t *testing.T) {
	c, dir := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatal(err)
	}

	if err := c.MessageTeammate(context.Background(), "alpha", "worker", "status update please"); err != nil {
		t.Fatalf("MessageTeammate: %v", err)
	}
	if err := c.MessageTeammate(context.Background(), "alpha", "worker", "second"); err != nil {
		t.Fatalf("MessageTeammate: %v", err)
	}

	msgs := readInbox(t, filepath.Join(dir, "alpha", "inboxes", "worker.jsonl"))
	if len(msgs) != 2 {
		t.Fatalf("inbox has %d messages, want 2", len(msgs))
	}
	if msgs[0].From != SupervisorSender || msgs[0].Content != "status update please" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if !msgs[0].Timestamp.Equal(testNow) {
		t.Fatalf("timestamp = %v, want %v", msgs[0].Timestamp, testNow)
	}
}

func TestShutdownTeammate(t *testing.T) {
	c, dir := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatal(err)
	}

	if err := c.ShutdownTeammate(context.Background(), "alpha", "worker"); err != nil {
		t.Fatalf("ShutdownTeammate: %v", err)
	}

	msgs := readInbox(t, filepath.Join(dir, "alpha", "inboxes", "worker.jsonl"))
	if len(msgs) != 1 || msgs[0].Content != shutdownRequest {
		t.Fatalf("unexpected inbox contents: %+v", msgs)
	}
}

func TestCleanupTeam(t *testing.T) {
	c, dir := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatal(err)
	}

	if err := c.CleanupTeam(context.Background(), "alpha"); err != nil {
		t.Fatalf("CleanupTeam: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "alpha")); !os.IsNotExist(err) {
		t.Fatal("team directory still present after cleanup")
	}

	// Cleaning a team that is already gone succeeds.
	if err := c.CleanupTeam(context.Background(), "alpha"); err != nil {
		t.Fatalf("second CleanupTeam: %v", err)
	}
}

func TestRefreshTeam(t *testing.T) {
	c, dir := newTestCommander(t)
	if err := c.CreateTeam(context.Background(), testConfig()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "alpha", "config.json")
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if err := c.RefreshTeam(context.Background(), "alpha"); err != nil {
		t.Fatalf("RefreshTeam: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().After(old) {
		t.Fatalf("mtime %v not bumped past %v", info.ModTime(), old)
	}
}

func TestRefreshTeam_UnknownTeam(t *testing.T) {
	c, _ := newTestCommander(t)
	if err := c.RefreshTeam(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error refreshing unknown team")
	}
}

func TestContextCancellation(t *testing.T) {
	c, _ := newTestCommander(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.CreateTeam(ctx, testConfig()); err == nil {
		t.Fatal("expected context error from CreateTeam")
	}
	if err := c.MessageTeammate(ctx, "alpha", "worker", "hi"); err == nil {
		t.Fatal("expected context error from MessageTeammate")
	}
}
