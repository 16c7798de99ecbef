// Package locks provides the per-group remit lock. The redis variant
// coordinates across registry replicas; the memory variant serves tests and
// single-node deployments.
package locks

import (
	"context"
	"sync"

	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

type MemoryLock struct {
	mu   sync.Mutex
	held map[id.GroupID]bool
}

func NewMemory() *MemoryLock {
	return &MemoryLock{held: make(map[id.GroupID]bool)}
}

func (l *MemoryLock) Acquire(_ context.Context, groupID id.GroupID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[groupID] {
		return nil, dErrors.New(dErrors.CodeStateViolation, "remittance already in progress for this group")
	}
	l.held[groupID] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, groupID)
	}, nil
}
