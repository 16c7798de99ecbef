// Package postgres persists registry records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tandapool/internal/registry/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

const Schema = `
CREATE TABLE IF NOT EXISTS registry_admins (
    account     TEXT PRIMARY KEY,
    secret_hash TEXT        NOT NULL,
    added_by    TEXT        NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS secretary_assignments (
    secretary  TEXT PRIMARY KEY,
    group_id   UUID        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`

// uniqueViolation is the pq error code for unique constraint violations.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveAdmin(ctx context.Context, admin models.Administrator) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_admins (account, secret_hash, added_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account) DO UPDATE SET secret_hash = EXCLUDED.secret_hash`,
		admin.Account.String(), admin.SecretHash, admin.AddedBy.String(), admin.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save administrator: %w", err)
	}
	return nil
}

func (s *Store) GetAdmin(ctx context.Context, account id.AccountID) (models.Administrator, error) {
	var admin models.Administrator
	var acct, addedBy string
	err := s.db.QueryRowContext(ctx, `
		SELECT account, secret_hash, added_by, created_at
		FROM registry_admins WHERE account = $1`, account.String(),
	).Scan(&acct, &admin.SecretHash, &addedBy, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Administrator{}, dErrors.New(dErrors.CodeNotFound, "administrator not found")
	}
	if err != nil {
		return models.Administrator{}, fmt.Errorf("select administrator: %w", err)
	}
	admin.Account = id.AccountID(acct)
	admin.AddedBy = id.AccountID(addedBy)
	return admin, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, account id.AccountID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM registry_admins WHERE account = $1`, account.String())
	if err != nil {
		return fmt.Errorf("delete administrator: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete administrator: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "administrator not found")
	}
	return nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registry_admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count administrators: %w", err)
	}
	return count, nil
}

func (s *Store) AssignSecretary(ctx context.Context, assignment models.SecretaryAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secretary_assignments (secretary, group_id, created_at)
		VALUES ($1, $2, $3)`,
		assignment.Secretary.String(), assignment.GroupID.String(), assignment.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return dErrors.New(dErrors.CodeStateViolation, "secretary already runs a group")
	}
	if err != nil {
		return fmt.Errorf("assign secretary: %w", err)
	}
	return nil
}

func (s *Store) UnassignSecretary(ctx context.Context, secretary id.AccountID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM secretary_assignments WHERE secretary = $1`, secretary.String())
	if err != nil {
		return fmt.Errorf("unassign secretary: %w", err)
	}
	return nil
}

func (s *Store) SecretaryGroup(ctx context.Context, secretary id.AccountID) (models.SecretaryAssignment, error) {
	var assignment models.SecretaryAssignment
	var sec, groupID string
	err := s.db.QueryRowContext(ctx, `
		SELECT secretary, group_id, created_at
		FROM secretary_assignments WHERE secretary = $1`, secretary.String(),
	).Scan(&sec, &groupID, &assignment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SecretaryAssignment{}, dErrors.New(dErrors.CodeNotFound, "secretary has no group")
	}
	if err != nil {
		return models.SecretaryAssignment{}, fmt.Errorf("select secretary assignment: %w", err)
	}
	assignment.Secretary = id.AccountID(sec)
	parsed, err := id.ParseGroupID(groupID)
	if err != nil {
		return models.SecretaryAssignment{}, fmt.Errorf("parse assigned group id: %w", err)
	}
	assignment.GroupID = parsed
	return assignment, nil
}
