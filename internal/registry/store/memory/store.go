package memory

import (
	"context"
	"sync"

	"tandapool/internal/registry/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

type Store struct {
	mu          sync.RWMutex
	admins      map[id.AccountID]models.Administrator
	secretaries map[id.AccountID]models.SecretaryAssignment
}

func New() *Store {
	return &Store{
		admins:      make(map[id.AccountID]models.Administrator),
		secretaries: make(map[id.AccountID]models.SecretaryAssignment),
	}
}

func (s *Store) SaveAdmin(_ context.Context, admin models.Administrator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[admin.Account] = admin
	return nil
}

func (s *Store) GetAdmin(_ context.Context, account id.AccountID) (models.Administrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[account]
	if !ok {
		return models.Administrator{}, dErrors.New(dErrors.CodeNotFound, "administrator not found")
	}
	return admin, nil
}

func (s *Store) DeleteAdmin(_ context.Context, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[account]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "administrator not found")
	}
	delete(s.admins, account)
	return nil
}

func (s *Store) CountAdmins(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins), nil
}

func (s *Store) AssignSecretary(_ context.Context, assignment models.SecretaryAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secretaries[assignment.Secretary]; ok {
		return dErrors.New(dErrors.CodeStateViolation, "secretary already runs a group")
	}
	s.secretaries[assignment.Secretary] = assignment
	return nil
}

func (s *Store) UnassignSecretary(_ context.Context, secretary id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secretaries, secretary)
	return nil
}

func (s *Store) SecretaryGroup(_ context.Context, secretary id.AccountID) (models.SecretaryAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assignment, ok := s.secretaries[secretary]
	if !ok {
		return models.SecretaryAssignment{}, dErrors.New(dErrors.CodeNotFound, "secretary has no group")
	}
	return assignment, nil
}
