package shutdown

import "sync"

// SignalCounter counts termination signals. Reaching the threshold calls
// onForce once.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	forced     bool
	onForce    func()
}

func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	if forceAfter < 1 {
		forceAfter = 1
	}
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment records a signal and returns the new count.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	s.count++
	count := s.count
	fire := count >= s.forceAfter && !s.forced && s.onForce != nil
	if fire {
		s.forced = true
	}
	onForce := s.onForce
	s.mu.Unlock()

	if fire {
		onForce()
	}
	return count
}

func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
