// Package handler wires the pool endpoints to the group service. It stays
// thin: decode, delegate, translate errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/platform/httputil"
	"tandapool/pkg/requestcontext"
)

// Service defines the group operations the transport exposes.
type Service interface {
	Get(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	AddPolicyholder(ctx context.Context, groupID id.GroupID, account id.AccountID, subgroup id.SubgroupID) error
	RemovePolicyholder(ctx context.Context, groupID id.GroupID, account id.AccountID) error
	ChangeSubgroup(ctx context.Context, groupID id.GroupID, account id.AccountID, subgroup id.SubgroupID) error
	StartGroup(ctx context.Context, groupID id.GroupID) error
	StopGroup(ctx context.Context, groupID id.GroupID) error
	ResumeGroup(ctx context.Context, groupID id.GroupID) error
	RemoveSecretary(ctx context.Context, groupID id.GroupID) error
	InstallSecretary(ctx context.Context, groupID id.GroupID, secretary id.AccountID) error
	MakePayment(ctx context.Context, groupID id.GroupID, period id.PeriodIndex) error
	CalculatePayment(ctx context.Context, groupID id.GroupID, account id.AccountID) (int64, error)
	SubmitClaim(ctx context.Context, groupID id.GroupID, period id.PeriodIndex, claimant id.AccountID) error
	ApproveClaim(ctx context.Context, groupID id.GroupID, claimant id.AccountID) error
	RejectClaim(ctx context.Context, groupID id.GroupID, claimant id.AccountID) error
	Defect(ctx context.Context, groupID id.GroupID, period id.PeriodIndex) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the pool endpoints on the router. All routes assume the
// auth middleware already bound the caller's account.
func (h *Handler) Register(r chi.Router) {
	r.Route("/groups/{groupID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/policyholders", h.HandleAddPolicyholder)
		r.Delete("/policyholders/{account}", h.HandleRemovePolicyholder)
		r.Put("/policyholders/{account}/subgroup", h.HandleChangeSubgroup)
		r.Post("/start", h.HandleStart)
		r.Post("/stop", h.HandleStop)
		r.Post("/resume", h.HandleResume)
		r.Delete("/secretary", h.HandleRemoveSecretary)
		r.Put("/secretary", h.HandleInstallSecretary)
		r.Post("/payments", h.HandleMakePayment)
		r.Get("/payments/quote", h.HandlePaymentQuote)
		r.Post("/claims", h.HandleSubmitClaim)
		r.Post("/claims/{claimant}/approve", h.HandleApproveClaim)
		r.Post("/claims/{claimant}/reject", h.HandleRejectClaim)
		r.Post("/defections", h.HandleDefect)
	})
}

func groupID(r *http.Request) (id.GroupID, error) {
	return id.ParseGroupID(chi.URLParam(r, "groupID"))
}

func accountParam(r *http.Request, name string) (id.AccountID, error) {
	return id.ParseAccountID(chi.URLParam(r, name))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	group, err := h.service.Get(r.Context(), gid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGroup(group, requestcontext.Now(r.Context())))
}

func (h *Handler) HandleAddPolicyholder(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[PolicyholderRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.AddPolicyholder(r.Context(), gid, req.ParsedAccount(), req.ParsedSubgroup()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleRemovePolicyholder(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account"))
		return
	}
	if err := h.service.RemovePolicyholder(r.Context(), gid, account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleChangeSubgroup(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubgroupRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.ChangeSubgroup(r.Context(), gid, account, req.ParsedSubgroup()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lifecycle(op func(context.Context, id.GroupID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gid, err := groupID(r)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
			return
		}
		if err := op(r.Context(), gid); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.service.StartGroup)(w, r)
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.service.StopGroup)(w, r)
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.service.ResumeGroup)(w, r)
}

func (h *Handler) HandleRemoveSecretary(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.service.RemoveSecretary)(w, r)
}

func (h *Handler) HandleInstallSecretary(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SecretaryRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.InstallSecretary(r.Context(), gid, req.ParsedAccount()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMakePayment(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[PeriodRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.MakePayment(r.Context(), gid, req.ParsedPeriod()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandlePaymentQuote quotes what the caller would owe right now.
func (h *Handler) HandlePaymentQuote(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	actor := requestcontext.Actor(r.Context())
	total, err := h.service.CalculatePayment(r.Context(), gid, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PaymentQuoteResponse{Account: actor.String(), Amount: total})
}

func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.SubmitClaim(r.Context(), gid, req.ParsedPeriod(), req.ParsedClaimant()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) adjudication(op func(context.Context, id.GroupID, id.AccountID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gid, err := groupID(r)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
			return
		}
		claimant, err := accountParam(r, "claimant")
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid claimant"))
			return
		}
		if err := op(r.Context(), gid, claimant); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) HandleApproveClaim(w http.ResponseWriter, r *http.Request) {
	h.adjudication(h.service.ApproveClaim)(w, r)
}

func (h *Handler) HandleRejectClaim(w http.ResponseWriter, r *http.Request) {
	h.adjudication(h.service.RejectClaim)(w, r)
}

func (h *Handler) HandleDefect(w http.ResponseWriter, r *http.Request) {
	gid, err := groupID(r)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[PeriodRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.service.Defect(r.Context(), gid, req.ParsedPeriod()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
