// Package ports declares the registry's dependencies.
package ports

import (
	"context"

	"tandapool/internal/registry/models"
	id "tandapool/pkg/domain"
)

// Store persists administrator credentials and secretary assignments.
// Implementations return CodeNotFound on missing records.
type Store interface {
	SaveAdmin(ctx context.Context, admin models.Administrator) error
	GetAdmin(ctx context.Context, account id.AccountID) (models.Administrator, error)
	DeleteAdmin(ctx context.Context, account id.AccountID) error
	CountAdmins(ctx context.Context) (int, error)

	// AssignSecretary records a founding secretary. It fails with
	// CodeStateViolation when the secretary already runs a group.
	AssignSecretary(ctx context.Context, assignment models.SecretaryAssignment) error
	UnassignSecretary(ctx context.Context, secretary id.AccountID) error
	SecretaryGroup(ctx context.Context, secretary id.AccountID) (models.SecretaryAssignment, error)
}

// RemitLock serializes remittance per group across registry replicas.
type RemitLock interface {
	// Acquire takes the group's remit lock and returns a release func, or
	// CodeStateViolation when another remitter holds it.
	Acquire(ctx context.Context, groupID id.GroupID) (release func(), err error)
}
