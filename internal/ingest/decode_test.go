package ingest

import (
	"testing"
	"time"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func TestDecode_ConfigChanged(t *testing.T) {
	d := newTestDecoder(t)
	raw := []byte(`{
		"type": "team-config-changed",
		"payload": {
			"teamName": "alpha",
			"config": {
				"name": "alpha",
				"members": [
					{"name": "lead", "agentId": "a-1", "joinedAt": "2025-06-01T09:00:00Z"}
				],
				"leadAgentId": "a-1",
				"createdAt": "2025-06-01T09:00:00Z"
			}
		}
	}`)

	ev, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cc, ok := ev.(ConfigChanged)
	if !ok {
		t.Fatalf("decoded %T, want ConfigChanged", ev)
	}
	if cc.TeamName != "alpha" || cc.Config.LeadAgentID != "a-1" {
		t.Fatalf("unexpected event: %+v", cc)
	}
	if len(cc.Config.Members) != 1 || !cc.Config.Members[0].JoinedAt.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected members: %+v", cc.Config.Members)
	}
}

func TestDecode_TasksChanged(t *testing.T) {
	d := newTestDecoder(t)
	raw := []byte(`{
		"type": "tasks-changed",
		"payload": {
			"teamName": "alpha",
			"tasks": [
				{"id": "t1", "status": "in_progress", "owner": "one", "blockedBy": ["t2"]},
				{"id": "t2", "status": "pending"}
			]
		}
	}`)

	ev, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tc := ev.(TasksChanged)
	if len(tc.Tasks) != 2 || tc.Tasks[0].Status != "in_progress" || tc.Tasks[0].BlockedBy[0] != "t2" {
		t.Fatalf("unexpected tasks: %+v", tc.Tasks)
	}
}

func TestDecode_InboxChanged(t *testing.T) {
	d := newTestDecoder(t)
	raw := []byte(`{
		"type": "inbox-changed",
		"payload": {
			"teamName": "alpha",
			"agentName": "one",
			"messages": [
				{"from": "lead", "timestamp": "2025-06-01T10:00:00Z", "content": "ping", "summary": "ping"}
			]
		}
	}`)

	ev, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ic := ev.(InboxChanged)
	if ic.AgentName != "one" || len(ic.Messages) != 1 || ic.Messages[0].From != "lead" {
		t.Fatalf("unexpected event: %+v", ic)
	}
}

func TestDecode_SimpleKinds(t *testing.T) {
	d := newTestDecoder(t)
	cases := []struct {
		name string
		raw  string
		want Kind
	}{
		{"deleted", `{"type": "team-deleted", "payload": {"teamName": "alpha"}}`, KindTeamDeleted},
		{"stale", `{"type": "team-stale", "payload": {"teamName": "alpha"}}`, KindTeamStale},
		{"watcher error", `{"type": "watcher-error", "payload": {"error": "inotify limit"}}`, KindWatcherError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := d.Decode([]byte(tc.raw))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if ev.Kind() != tc.want {
				t.Fatalf("kind = %s, want %s", ev.Kind(), tc.want)
			}
		})
	}
}

func TestDecode_FailsClosed(t *testing.T) {
	d := newTestDecoder(t)
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type": "team-renamed", "payload": {"teamName": "alpha"}}`},
		{"missing payload", `{"type": "team-deleted"}`},
		{"empty team name", `{"type": "team-deleted", "payload": {"teamName": ""}}`},
		{"missing required field", `{"type": "inbox-changed", "payload": {"teamName": "alpha", "messages": []}}`},
		{"bad task status", `{"type": "tasks-changed", "payload": {"teamName": "alpha", "tasks": [{"id": "t1", "status": "paused"}]}}`},
		{"payload wrong shape", `{"type": "tasks-changed", "payload": {"teamName": "alpha", "tasks": {"id": "t1"}}}`},
		{"unparseable timestamp", `{"type": "inbox-changed", "payload": {"teamName": "alpha", "agentName": "one", "messages": [{"from": "lead", "timestamp": "yesterday", "content": "x"}]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := d.Decode([]byte(tc.raw)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}
