package booking

import (
	"context"
	"log"
)

// saga accumulates compensation steps during a multi-step flow.  Each
// completed side effect registers its undo; on failure unwind runs the
// undos in reverse order.  Undo errors are logged and skipped; a
// failed compensation must not mask the original failure.
type saga struct {
	steps []sagaStep
}

type sagaStep struct {
	name string
	undo func(ctx context.Context) error
}

func (s *saga) add(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, undo: undo})
}

func (s *saga) unwind(ctx context.Context) {
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			log.Printf("booking: compensation %q failed: %v", step.name, err)
		}
	}
	s.steps = nil
}

// bestEffort runs a side effect that must never fail the operation it
// belongs to.  Invoice generation and notifications go through here.
func bestEffort(name string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("booking: best-effort %s failed: %v", name, err)
	}
}
