// Package memory is the in-process group store. It favors clarity over
// performance and is the default for tests and single-node runs.
package memory

import (
	"context"
	"sync"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

type Store struct {
	mu     sync.RWMutex
	groups map[id.GroupID]*models.Group
}

func New() *Store {
	return &Store{groups: make(map[id.GroupID]*models.Group)}
}

func (s *Store) Create(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[group.ID]; exists {
		return dErrors.New(dErrors.CodeStateViolation, "group already exists")
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, groupID id.GroupID) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "group not found")
	}
	return group.Clone(), nil
}

func (s *Store) Save(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[group.ID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "group not found")
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) List(_ context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Group, 0, len(s.groups))
	for _, group := range s.groups {
		out = append(out, group.Clone())
	}
	return out, nil
}
