// Package handler exposes the registry's operator endpoints: credentials,
// tokens, group creation, remittance, and loans.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	groupmodels "tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/platform/httputil"
	"tandapool/pkg/requestcontext"
)

// Service defines the registry operations the transport exposes.
type Service interface {
	AddAdmin(ctx context.Context, account id.AccountID, secret string) error
	RemoveAdmin(ctx context.Context, account id.AccountID) error
	IssueToken(ctx context.Context, account id.AccountID, secret string) (string, error)
	MintToken(ctx context.Context, account id.AccountID) (string, error)
	CreateGroup(ctx context.Context, secretary id.AccountID, claimVolume int, payoutAmount int64) (*groupmodels.Group, error)
	SecretaryGroup(ctx context.Context, secretary id.AccountID) (id.GroupID, error)
	RemitGroup(ctx context.Context, groupID id.GroupID) error
	Loan(ctx context.Context, groupID id.GroupID, months int) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated token endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.HandleIssueToken)
}

// Register mounts the authenticated registry endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registry", func(r chi.Router) {
		r.Post("/admins", h.HandleAddAdmin)
		r.Delete("/admins/{account}", h.HandleRemoveAdmin)
		r.Post("/tokens", h.HandleMintToken)
		r.Post("/groups", h.HandleCreateGroup)
		r.Get("/secretaries/{account}/group", h.HandleSecretaryGroup)
		r.Post("/groups/{groupID}/remit", h.HandleRemitGroup)
		r.Post("/groups/{groupID}/loan", h.HandleLoan)
	})
}

// CredentialsRequest carries an account and its secret.
type CredentialsRequest struct {
	Account string `json:"account"`
	Secret  string `json:"secret"`

	parsedAccount id.AccountID
}

func (r *CredentialsRequest) Validate() error {
	account, err := id.ParseAccountID(strings.TrimSpace(r.Account))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "secret is required")
	}
	r.parsedAccount = account
	return nil
}

// AccountRequest carries a bare account reference.
type AccountRequest struct {
	Account string `json:"account"`

	parsedAccount id.AccountID
}

func (r *AccountRequest) Validate() error {
	account, err := id.ParseAccountID(strings.TrimSpace(r.Account))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	r.parsedAccount = account
	return nil
}

// CreateGroupRequest is the body for POST /registry/groups.
type CreateGroupRequest struct {
	Secretary    string `json:"secretary"`
	ClaimVolume  int    `json:"claim_volume"`
	PayoutAmount int64  `json:"payout_amount"`

	parsedSecretary id.AccountID
}

func (r *CreateGroupRequest) Validate() error {
	secretary, err := id.ParseAccountID(strings.TrimSpace(r.Secretary))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "secretary is required")
	}
	if r.ClaimVolume < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "claim_volume must be at least one")
	}
	if r.PayoutAmount < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "payout_amount must be at least one")
	}
	r.parsedSecretary = secretary
	return nil
}

// LoanRequest is the body for POST /registry/groups/{groupID}/loan.
type LoanRequest struct {
	Months int `json:"months"`
}

func (r *LoanRequest) Validate() error {
	if r.Months < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "months must be at least one")
	}
	return nil
}

func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CredentialsRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	token, err := h.service.IssueToken(r.Context(), req.parsedAccount, req.Secret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

func (h *Handler) HandleAddAdmin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CredentialsRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.AddAdmin(r.Context(), req.parsedAccount, req.Secret); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid account"))
		return
	}
	if err := h.service.RemoveAdmin(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMintToken(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[AccountRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	token, err := h.service.MintToken(r.Context(), req.parsedAccount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := httputil.DecodeAndPrepare[CreateGroupRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), req.parsedSecretary, req.ClaimVolume, req.PayoutAmount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.logger != nil {
		h.logger.InfoContext(r.Context(), "group created",
			"group_id", group.ID.String(),
			"secretary", req.Secretary,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": group.ID.String()})
}

func (h *Handler) HandleSecretaryGroup(w http.ResponseWriter, r *http.Request) {
	secretary, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid account"))
		return
	}
	groupID, err := h.service.SecretaryGroup(r.Context(), secretary)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"group_id": groupID.String()})
}

func (h *Handler) HandleRemitGroup(w http.ResponseWriter, r *http.Request) {
	gid, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	if err := h.service.RemitGroup(r.Context(), gid); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleLoan(w http.ResponseWriter, r *http.Request) {
	gid, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[LoanRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.Loan(r.Context(), gid, req.Months); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
