// Package command sends instructions to teams through their on-disk
// mailboxes. The engine observes team state through the watcher; this
// package is the write side of that same directory layout.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crewsync/crewsync/internal/team"
)

// Commander issues operations against a team. Implementations must be
// safe for sequential use from a single goroutine; the engine never
// issues commands concurrently.
type Commander interface {
	CreateTeam(ctx context.Context, cfg team.Config) error
	MessageTeammate(ctx context.Context, teamName, member, content string) error
	ShutdownTeammate(ctx context.Context, teamName, member string) error
	CleanupTeam(ctx context.Context, teamName string) error
	RefreshTeam(ctx context.Context, teamName string) error
}

// SupervisorSender is the sender name stamped on messages the engine
// writes into member inboxes.
const SupervisorSender = "supervisor"

// shutdownRequest is the content of the message asking a member to
// wind down. Members treat it as a control message, not chat.
const shutdownRequest = "shutdown_request"

// FileCommander implements Commander on top of a teams directory:
//
//	<root>/<team>/config.json
//	<root>/<team>/tasks.json
//	<root>/<team>/inboxes/<member>.jsonl
//
// Messages are appended as one JSON object per line so concurrent
// readers only ever see whole records.
type FileCommander struct {
	root string
	now  func() time.Time
}

// Option configures a FileCommander.
type Option func(*FileCommander)

// WithClock overrides the commander's time source.
func WithClock(now func() time.Time) Option {
	return func(c *FileCommander) { c.now = now }
}

// NewFileCommander creates a FileCommander rooted at dir.
func NewFileCommander(dir string, opts ...Option) *FileCommander {
	c := &FileCommander{root: dir, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FileCommander) teamDir(teamName string) string {
	return filepath.Join(c.root, teamName)
}

// CreateTeam materializes a team directory with its config, an empty
// task list, and one empty inbox per member. An existing team of the
// same name is an error.
func (c *FileCommander) CreateTeam(ctx context.Context, cfg team.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Name == "" {
		return fmt.Errorf("command: team name is empty")
	}
	dir := c.teamDir(cfg.Name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("command: team %q already exists", cfg.Name)
	}
	if err := os.MkdirAll(filepath.Join(dir, "inboxes"), 0o755); err != nil {
		return fmt.Errorf("command: create team directory: %w", err)
	}

	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = c.now().UTC()
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("command: marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644); err != nil {
		return fmt.Errorf("command: write config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("[]\n"), 0o644); err != nil {
		return fmt.Errorf("command: write tasks: %w", err)
	}
	for _, m := range cfg.Members {
		path := filepath.Join(dir, "inboxes", m.Name+".jsonl")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("command: create inbox for %s: %w", m.Name, err)
		}
	}
	return nil
}

// MessageTeammate appends a supervisor message to the member's inbox.
func (c *FileCommander) MessageTeammate(ctx context.Context, teamName, member, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.appendMessage(teamName, member, content)
}

// ShutdownTeammate appends a shutdown request to the member's inbox.
func (c *FileCommander) ShutdownTeammate(ctx context.Context, teamName, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.appendMessage(teamName, member, shutdownRequest)
}

func (c *FileCommander) appendMessage(teamName, member, content string) error {
	msg := team.Message{
		From:      SupervisorSender,
		Timestamp: c.now().UTC(),
		Content:   content,
	}
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("command: marshal message: %w", err)
	}

	path := filepath.Join(c.teamDir(teamName), "inboxes", member+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("command: open inbox for %s: %w", member, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("command: append to inbox for %s: %w", member, err)
	}
	return nil
}

// CleanupTeam removes the team's directory and everything beneath it.
// Cleaning an absent team succeeds.
func (c *FileCommander) CleanupTeam(ctx context.Context, teamName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if teamName == "" {
		return fmt.Errorf("command: team name is empty")
	}
	if err := os.RemoveAll(c.teamDir(teamName)); err != nil {
		return fmt.Errorf("command: cleanup team %s: %w", teamName, err)
	}
	return nil
}

// RefreshTeam bumps the config file's modification time so watchers
// re-read the team without any content change.
func (c *FileCommander) RefreshTeam(ctx context.Context, teamName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(c.teamDir(teamName), "config.json")
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("command: refresh team %s: %w", teamName, err)
	}
	return nil
}
