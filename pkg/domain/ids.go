package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountID identifies a party on the asset ledger: a policyholder, a
// secretary, the registry, or a group's own pool account. It is a domain
// primitive so services never pass raw strings around.
type AccountID string

// ParseAccountID validates and returns an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", fmt.Errorf("account id cannot be empty")
	}
	return AccountID(s), nil
}

// String returns the string representation.
func (a AccountID) String() string {
	return string(a)
}

// IsNil returns true when the account id is empty.
func (a AccountID) IsNil() bool {
	return a == ""
}

// GroupID identifies one tanda group.
type GroupID uuid.UUID

// NewGroupID returns a fresh random group id.
func NewGroupID() GroupID {
	return GroupID(uuid.New())
}

// ParseGroupID validates and returns a GroupID.
func ParseGroupID(s string) (GroupID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GroupID{}, fmt.Errorf("invalid group id: %w", err)
	}
	return GroupID(u), nil
}

func (g GroupID) String() string {
	return uuid.UUID(g).String()
}

func (g GroupID) IsNil() bool {
	return uuid.UUID(g) == uuid.Nil
}

// MarshalText keeps group ids as canonical uuid strings in JSON and logs.
func (g GroupID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GroupID) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupID(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// SubgroupID partitions a group's policyholders. Subgroup zero is reserved
// for "not a member", so valid assignments start at one.
type SubgroupID uint

// IsValid reports whether the subgroup id may be assigned to a member.
func (s SubgroupID) IsValid() bool {
	return s > 0
}

// PeriodIndex is the monotonically increasing per-group period counter.
// Zero means no period has been started yet (the group sits in LOBBY).
type PeriodIndex uint

// IsZero reports whether the index refers to "no period".
func (p PeriodIndex) IsZero() bool {
	return p == 0
}

// Next returns the following period index.
func (p PeriodIndex) Next() PeriodIndex {
	return p + 1
}
