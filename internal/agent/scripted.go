package agent

import (
	"context"
	"sync"
)

// Scripted is a deterministic provider that replays a fixed sequence of
// decisions, cycling when exhausted. It exists for tests and local runs
// without provider credentials.
type Scripted struct {
	mu        sync.Mutex
	decisions []string
	next      int
}

// NewScripted builds a scripted provider. With no decisions it always
// answers "hold".
func NewScripted(decisions ...string) *Scripted {
	return &Scripted{decisions: decisions}
}

// Decide returns the next scripted decision.
func (s *Scripted) Decide(ctx context.Context, systemInstruction, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return "hold", nil
	}
	d := s.decisions[s.next%len(s.decisions)]
	s.next++
	return d, nil
}
