package hooks

import (
	"sync"

	"github.com/crewsync/crewsync/internal/event"
	"github.com/crewsync/crewsync/internal/logging"
)

// Synchronizer keeps hook installation in step with the number of
// active teams. It reacts only to the zero boundary: the first team
// appearing installs the global hook and suppresses project hooks,
// the last team disappearing reverses both. Intermediate count changes
// are ignored.
//
// Hook writes run off the event loop through the injected spawn
// function so a slow filesystem never stalls event handling. Failures
// are logged and otherwise swallowed; hook state is advisory.
type Synchronizer struct {
	svc       Service
	loadVoice func() VoiceConfig
	log       *logging.Logger
	spawn     func(func())

	mu        sync.Mutex
	lastCount int
	subs      []string
	bus       *event.Bus
}

// NewSynchronizer wires a Synchronizer to the bus. loadVoice is invoked
// on every install so edits to the voice configuration between installs
// take effect. The initial team count is taken as zero; callers loading
// pre-existing teams should call Prime first.
func NewSynchronizer(bus *event.Bus, svc Service, loadVoice func() VoiceConfig, log *logging.Logger, spawn func(func())) *Synchronizer {
	if log == nil {
		log = logging.Nop()
	}
	if spawn == nil {
		spawn = func(fn func()) { go fn() }
	}
	if loadVoice == nil {
		loadVoice = DefaultVoiceConfig
	}
	s := &Synchronizer{
		svc:       svc,
		loadVoice: loadVoice,
		log:       log.WithComponent("hooks"),
		spawn:     spawn,
		bus:       bus,
	}
	s.subs = append(s.subs,
		bus.Subscribe("team.added", s.onTeamEvent),
		bus.Subscribe("team.removed", s.onTeamEvent),
	)
	return s
}

// Prime sets the current team count without triggering transitions.
// If count is already positive, the global hook is assumed installed.
func (s *Synchronizer) Prime(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCount = count
}

// Close detaches the synchronizer from the bus.
func (s *Synchronizer) Close() {
	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.subs = nil
}

func (s *Synchronizer) onTeamEvent(ev event.Event) {
	var count int
	switch e := ev.(type) {
	case event.TeamAddedEvent:
		count = e.TeamCount
	case event.TeamRemovedEvent:
		count = e.TeamCount
	default:
		return
	}

	s.mu.Lock()
	prev := s.lastCount
	s.lastCount = count
	s.mu.Unlock()

	switch {
	case prev == 0 && count > 0:
		s.spawn(s.install)
	case prev > 0 && count == 0:
		s.spawn(s.uninstall)
	}
}

func (s *Synchronizer) install() {
	if err := s.svc.InstallGlobal(s.loadVoice()); err != nil {
		s.log.Warn("failed to install global hook", "error", err)
	}
	if err := s.svc.SetLocalOverride(true); err != nil {
		s.log.Warn("failed to suppress project hooks", "error", err)
	}
}

func (s *Synchronizer) uninstall() {
	if err := s.svc.RemoveGlobal(); err != nil {
		s.log.Warn("failed to remove global hook", "error", err)
	}
	if err := s.svc.SetLocalOverride(false); err != nil {
		s.log.Warn("failed to restore project hooks", "error", err)
	}
}
