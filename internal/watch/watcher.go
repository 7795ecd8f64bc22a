// Package watch observes a teams directory and turns filesystem
// activity into raw JSON event envelopes for the ingest layer.
//
// Layout watched, one subtree per team:
//
//	<root>/<team>/config.json
//	<root>/<team>/tasks.json
//	<root>/<team>/inboxes/<member>.jsonl
//
// The watcher never interprets payloads beyond assembling them; schema
// validation happens downstream in ingest.
package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/crewsync/crewsync/internal/logging"
)

// DefaultDebounce is how long a path must stay quiet before its change
// is emitted. Editors and agents write in bursts; coalescing them keeps
// the ingest loop from re-reading half-written files.
const DefaultDebounce = 100 * time.Millisecond

// DefaultStaleThreshold is how long a team may go without any file
// activity before a staleness scan reports it.
const DefaultStaleThreshold = 2 * time.Hour

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Watcher emits raw event envelopes for a teams directory.
type Watcher struct {
	root      string
	fs        *fsnotify.Watcher
	log       *logging.Logger
	debounce  time.Duration
	staleAge  time.Duration
	now       func() time.Time
	events    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	closed       bool
	timers       map[string]*time.Timer
	lastActivity map[string]time.Time
	staleSent    map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the quiet period before a change is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithStaleThreshold overrides the inactivity age reported by ScanStale.
func WithStaleThreshold(d time.Duration) Option {
	return func(w *Watcher) { w.staleAge = d }
}

// WithClock overrides the watcher's time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// New creates a Watcher over root and begins watching. Teams already
// present are announced as team-created events before any filesystem
// activity is reported.
func New(root string, log *logging.Logger, opts ...Option) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	w := &Watcher{
		root:         root,
		fs:           fsw,
		log:          log.WithComponent("watch"),
		debounce:     DefaultDebounce,
		staleAge:     DefaultStaleThreshold,
		now:          time.Now,
		events:       make(chan []byte, 256),
		done:         make(chan struct{}),
		timers:       make(map[string]*time.Timer),
		lastActivity: make(map[string]time.Time),
		staleSent:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: create teams directory: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: watch teams directory: %w", err)
	}
	if err := w.announceExisting(); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Events returns the channel of raw event envelopes. The channel is
// closed by Close.
func (w *Watcher) Events() <-chan []byte {
	return w.events
}

// Close stops the watcher and closes the events channel.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.timers = map[string]*time.Timer{}
		w.closed = true
		close(w.events)
		w.mu.Unlock()
	})
	return err
}

// announceExisting emits team-created for every team directory already
// on disk, registers watches on their subtrees, and schedules change
// emits for their existing tasks and inbox files so a restart rebuilds
// the full snapshot.
func (w *Watcher) announceExisting() error {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("watch: scan teams directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		teamName := e.Name()
		w.watchTeamDir(teamName)
		cfg, err := w.readConfig(teamName)
		if err != nil {
			w.log.Warn("skipping team with unreadable config", "team", teamName, "error", err)
			continue
		}
		w.touch(teamName)
		w.emit("team-created", map[string]any{"config": cfg})
		w.rescanTeam(teamName)
	}
	return nil
}

func (w *Watcher) watchTeamDir(teamName string) {
	dir := filepath.Join(w.root, teamName)
	if err := w.fs.Add(dir); err != nil {
		w.log.Warn("failed to watch team directory", "team", teamName, "error", err)
	}
	inboxes := filepath.Join(dir, "inboxes")
	if _, err := os.Stat(inboxes); err == nil {
		if err := w.fs.Add(inboxes); err != nil {
			w.log.Warn("failed to watch inboxes directory", "team", teamName, "error", err)
		}
	}
}

// rescanTeam schedules change emits for every file already present
// under a newly-watched team directory.
func (w *Watcher) rescanTeam(teamName string) {
	dir := filepath.Join(w.root, teamName)
	for _, name := range []string{"config.json", "tasks.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			rel := []string{name}
			w.schedule(path, func() { w.emitChange(teamName, rel) })
		}
	}
	entries, err := os.ReadDir(filepath.Join(dir, "inboxes"))
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		rel := []string{"inboxes", e.Name()}
		path := filepath.Join(dir, "inboxes", e.Name())
		w.schedule(path, func() { w.emitChange(teamName, rel) })
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.emit("watcher-error", map[string]any{"error": err.Error()})
		}
	}
}

// handleFsEvent classifies a raw fsnotify event. Structural changes
// (team directories appearing or disappearing) are handled at once;
// file content changes are debounced per path.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	teamName := parts[0]

	// Team directory appeared or vanished.
	if len(parts) == 1 {
		switch {
		case ev.Op.Has(fsnotify.Create):
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.watchTeamDir(teamName)
				w.touch(teamName)
				// Files may land before the subtree watch is in place;
				// pick up whatever is already there.
				w.rescanTeam(teamName)
			}
		case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
			w.forget(teamName)
			w.emit("team-deleted", map[string]any{"teamName": teamName})
		}
		return
	}

	// A new inboxes directory needs its own watch.
	if len(parts) == 2 && parts[1] == "inboxes" && ev.Op.Has(fsnotify.Create) {
		if err := w.fs.Add(ev.Name); err != nil {
			w.log.Warn("failed to watch inboxes directory", "team", teamName, "error", err)
		}
		return
	}

	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return
	}
	w.touch(teamName)
	w.schedule(ev.Name, func() { w.emitChange(teamName, parts[1:]) })
}

// schedule arms (or re-arms) the debounce timer for a path.
func (w *Watcher) schedule(path string, fire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		fire()
	})
}

// emitChange reads the settled file and emits the matching envelope.
func (w *Watcher) emitChange(teamName string, rel []string) {
	switch {
	case len(rel) == 1 && rel[0] == "config.json":
		cfg, err := w.readConfig(teamName)
		if err != nil {
			w.log.Warn("unreadable config", "team", teamName, "error", err)
			return
		}
		w.emit("team-config-changed", map[string]any{"teamName": teamName, "config": cfg})

	case len(rel) == 1 && rel[0] == "tasks.json":
		tasks, err := w.readTasks(teamName)
		if err != nil {
			w.log.Warn("unreadable tasks", "team", teamName, "error", err)
			return
		}
		w.emit("tasks-changed", map[string]any{"teamName": teamName, "tasks": tasks})

	case len(rel) == 2 && rel[0] == "inboxes" && strings.HasSuffix(rel[1], ".jsonl"):
		member := strings.TrimSuffix(rel[1], ".jsonl")
		msgs, err := w.readInbox(teamName, rel[1])
		if err != nil {
			w.log.Warn("unreadable inbox", "team", teamName, "member", member, "error", err)
			return
		}
		w.emit("inbox-changed", map[string]any{
			"teamName":  teamName,
			"agentName": member,
			"messages":  msgs,
		})
	}
}

func (w *Watcher) readConfig(teamName string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(w.root, teamName, "config.json"))
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("config.json is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func (w *Watcher) readTasks(teamName string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(w.root, teamName, "tasks.json"))
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("tasks.json is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// readInbox parses a JSONL inbox into a slice of raw messages. A
// trailing partial line is skipped; it will be picked up by the next
// write event once complete.
func (w *Watcher) readInbox(teamName, file string) ([]json.RawMessage, error) {
	f, err := os.Open(filepath.Join(w.root, teamName, "inboxes", file))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msgs := []json.RawMessage{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			continue
		}
		msgs = append(msgs, json.RawMessage(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ScanStale emits team-stale for every team whose files have been quiet
// longer than the staleness threshold. Each silence period is reported
// once; any new activity re-arms the report.
func (w *Watcher) ScanStale() {
	now := w.now()

	w.mu.Lock()
	var stale []string
	for teamName, last := range w.lastActivity {
		if now.Sub(last) >= w.staleAge && !w.staleSent[teamName] {
			w.staleSent[teamName] = true
			stale = append(stale, teamName)
		}
	}
	w.mu.Unlock()

	for _, teamName := range stale {
		w.emit("team-stale", map[string]any{"teamName": teamName})
	}
}

func (w *Watcher) touch(teamName string) {
	w.mu.Lock()
	w.lastActivity[teamName] = w.now()
	w.staleSent[teamName] = false
	w.mu.Unlock()
}

func (w *Watcher) forget(teamName string) {
	w.mu.Lock()
	delete(w.lastActivity, teamName)
	delete(w.staleSent, teamName)
	w.mu.Unlock()
}

func (w *Watcher) emit(kind string, payload any) {
	data, err := json.Marshal(envelope{Type: kind, Payload: payload})
	if err != nil {
		w.log.Error("failed to marshal envelope", "kind", kind, "error", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// A full buffer blocks rather than drops; structural events such as
	// team-deleted must reach the consumer. Close closes done before it
	// acquires the mutex, so a blocked send always unwinds first.
	select {
	case w.events <- data:
	case <-w.done:
	}
}
