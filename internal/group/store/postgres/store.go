// Package postgres persists group aggregates in PostgreSQL. The whole
// aggregate is written as one JSONB document so saves stay atomic: a group
// is always read, mutated, and written back as a unit.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// Schema is applied by integration tests and deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS groups (
    id         UUID PRIMARY KEY,
    state      JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects and applies the schema.
func Open(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("apply group schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, group *models.Group) error {
	state, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("marshal group: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO groups (id, state, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		group.ID.String(), state, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM groups WHERE id = $1`, groupID.String(),
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("select group: %w", err)
	}
	var group models.Group
	if err := json.Unmarshal(state, &group); err != nil {
		return nil, fmt.Errorf("unmarshal group: %w", err)
	}
	return &group, nil
}

func (s *Store) Save(ctx context.Context, group *models.Group) error {
	state, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("marshal group: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE groups SET state = $2, updated_at = $3 WHERE id = $1`,
		group.ID.String(), state, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "group not found")
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state FROM groups ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []*models.Group
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		var group models.Group
		if err := json.Unmarshal(state, &group); err != nil {
			return nil, fmt.Errorf("unmarshal group: %w", err)
		}
		out = append(out, &group)
	}
	return out, rows.Err()
}
