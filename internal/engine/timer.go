package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// schedule replaces the pending one-shot timer.
func (s *Session) schedule(kind pendingKind, d time.Duration) {
	s.cancelPending()
	s.pending = s.clock.NewTimer(d)
	s.pendingKind = kind
}

// pendingChan returns the pending timer's channel, or nil (blocks forever)
// when nothing is scheduled.
func (s *Session) pendingChan() <-chan time.Time {
	if s.pending == nil {
		return nil
	}
	return s.pending.Chan()
}

// fire handles an expired pending timer. Stale timers after teardown are
// ignored.
func (s *Session) fire() {
	kind := s.pendingKind
	s.pending = nil
	s.pendingKind = pendingNone
	if !s.alive {
		return
	}
	switch kind {
	case pendingLeadIn:
		if s.state == StateIdle {
			s.beginRound()
		}
	case pendingSettle:
		s.afterSettle()
	}
}

func (s *Session) cancelPending() {
	if s.pending == nil {
		return
	}
	stopAndDrainTimer(s.pending)
	s.pending = nil
	s.pendingKind = pendingNone
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
