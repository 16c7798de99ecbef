// Package models holds the registry's records: administrator credentials
// and the one-group-per-secretary assignment index.
package models

import (
	"time"

	id "tandapool/pkg/domain"
)

// Administrator is a registry operator. Administrators gate group creation,
// remittance, loans, and secretary replacement.
type Administrator struct {
	Account    id.AccountID `json:"account"`
	SecretHash string       `json:"-"` // never serialize, contains bcrypt hash
	AddedBy    id.AccountID `json:"added_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SecretaryAssignment records which group a secretary founded. A secretary
// runs at most one group.
type SecretaryAssignment struct {
	Secretary id.AccountID `json:"secretary"`
	GroupID   id.GroupID   `json:"group_id"`
	CreatedAt time.Time    `json:"created_at"`
}
