package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tandapool/internal/credit/handler/mocks"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

type EscrowHandlerSuite struct {
	suite.Suite
}

func TestEscrowHandlerSuite(t *testing.T) {
	suite.Run(t, new(EscrowHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *EscrowHandlerSuite) TestHandleDeposit() {
	router, mockService := newTestRouter(s.T())
	gid := id.NewGroupID()
	mockService.EXPECT().Deposit(gomock.Any(), gid, int64(750)).Return(nil)

	body, err := json.Marshal(DepositRequest{Amount: 750})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/groups/"+gid.String()+"/escrow/deposits", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
}

func (s *EscrowHandlerSuite) TestHandleDepositRejectsBadInput() {
	router, _ := newTestRouter(s.T())
	gid := id.NewGroupID()

	s.Run("non-positive amount", func() {
		body, err := json.Marshal(DepositRequest{Amount: 0})
		require.NoError(s.T(), err)

		req := httptest.NewRequest(http.MethodPost, "/groups/"+gid.String()+"/escrow/deposits", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("malformed group id", func() {
		body, err := json.Marshal(DepositRequest{Amount: 10})
		require.NoError(s.T(), err)

		req := httptest.NewRequest(http.MethodPost, "/groups/not-a-uuid/escrow/deposits", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *EscrowHandlerSuite) TestHandleDepositMapsInsufficientFunds() {
	router, mockService := newTestRouter(s.T())
	gid := id.NewGroupID()
	mockService.EXPECT().Deposit(gomock.Any(), gid, int64(5000)).
		Return(dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds"))

	body, err := json.Marshal(DepositRequest{Amount: 5000})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/groups/"+gid.String()+"/escrow/deposits", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeInsufficientFunds), resp["error"])
}

func (s *EscrowHandlerSuite) TestHandleWithdraw() {
	router, mockService := newTestRouter(s.T())
	gid := id.NewGroupID()
	mockService.EXPECT().Withdraw(gomock.Any(), gid).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/groups/"+gid.String()+"/escrow/withdraw", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *EscrowHandlerSuite) TestHandleWithdrawRequiresLiquidity() {
	router, mockService := newTestRouter(s.T())
	gid := id.NewGroupID()
	mockService.EXPECT().Withdraw(gomock.Any(), gid).
		Return(dErrors.New(dErrors.CodeStateViolation, "escrow is not armed"))

	req := httptest.NewRequest(http.MethodPost, "/groups/"+gid.String()+"/escrow/withdraw", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}
