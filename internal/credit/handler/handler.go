// Package handler exposes the escrow endpoints of the credit facility.
// Loans are issued through the registry routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/platform/httputil"
	"tandapool/pkg/requestcontext"
)

// Service defines the escrow operations the transport exposes.
type Service interface {
	Deposit(ctx context.Context, groupID id.GroupID, amount int64) error
	Withdraw(ctx context.Context, groupID id.GroupID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/groups/{groupID}/escrow/deposits", h.HandleDeposit)
	r.Post("/groups/{groupID}/escrow/withdraw", h.HandleWithdraw)
}

// DepositRequest is the body for POST .../escrow/deposits.
type DepositRequest struct {
	Amount int64 `json:"amount"`
}

func (r *DepositRequest) Validate() error {
	if r.Amount < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	gid, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DepositRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.Deposit(r.Context(), gid, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	gid, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	if err := h.service.Withdraw(r.Context(), gid); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
