package engine

import "sync"

// spawner launches fire-and-forget side effects and gates them on
// shutdown: once closed, new work is silently dropped and Wait blocks
// until everything in flight has finished.
type spawner struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func (s *spawner) Spawn(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *spawner) CloseAndWait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
