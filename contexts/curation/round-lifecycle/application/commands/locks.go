package commands

import (
	"sync"

	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
)

// RoundLocks enforces at most one in-flight lifecycle operation per round.
// Acquisition fails fast instead of queueing: a second concurrent request for
// the same round is an operator error, not a workload to serialize.
type RoundLocks struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewRoundLocks() *RoundLocks {
	return &RoundLocks{
		active: make(map[int64]struct{}),
	}
}

func (l *RoundLocks) Acquire(roundID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[roundID]; ok {
		return domainerrors.ErrRoundBusy
	}
	l.active[roundID] = struct{}{}
	return nil
}

func (l *RoundLocks) Release(roundID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, roundID)
}
