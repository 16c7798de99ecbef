// Package ports declares the interfaces the group service consumes. The
// service owns the pool rules; everything it touches comes in through here
// so tests can swap fakes and mocks.
package ports

import (
	"context"
	"log/slog"

	"tandapool/internal/asset"
	"tandapool/internal/audit"
	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
)

// Ledger is the external value-transfer collaborator.
type Ledger = asset.Ledger

// GroupStore persists group aggregates. Get returns a private copy the
// caller may mutate; Save replaces the stored aggregate. The service
// serializes mutations per group, so stores need no compare-and-swap.
type GroupStore interface {
	Create(ctx context.Context, group *models.Group) error
	Get(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	Save(ctx context.Context, group *models.Group) error
	List(ctx context.Context) ([]*models.Group, error)
}

// Authorizer is the registry-owned predicate gating remitter and lender
// operations. The registry's access-control rules stay out of the core.
type Authorizer interface {
	IsAdministrator(ctx context.Context, account id.AccountID) (bool, error)
}

// AuditPublisher emits structured audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit emits an audit event without failing the enclosing operation.
// The domain action already happened; a broken audit sink is logged, not
// propagated.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"group_id", event.GroupID.String(),
			"error", err,
		)
	}
}
