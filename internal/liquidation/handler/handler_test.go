package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablevault/internal/domain"
	"stablevault/internal/identity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLiquidationService struct{ mock.Mock }

func (m *MockLiquidationService) Liquidate(ctx context.Context, caller string, positionID uint64, debtToCover *big.Int) (domain.LiquidationEvent, error) {
	args := m.Called(ctx, caller, positionID, debtToCover)
	e, _ := args.Get(0).(domain.LiquidationEvent)
	return e, args.Error(1)
}

func (m *MockLiquidationService) ListLiquidatable(ctx context.Context) ([]uint64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]uint64)
	return ids, args.Error(1)
}

func (m *MockLiquidationService) Config() domain.LiquidationConfig {
	args := m.Called()
	cfg, _ := args.Get(0).(domain.LiquidationConfig)
	return cfg
}

func (m *MockLiquidationService) UpdateConfig(caller string, cfg domain.LiquidationConfig) error {
	args := m.Called(caller, cfg)
	return args.Error(0)
}

func (m *MockLiquidationService) AddLiquidator(caller, account string) error {
	args := m.Called(caller, account)
	return args.Error(0)
}

func (m *MockLiquidationService) Events(ctx context.Context) ([]domain.LiquidationEvent, error) {
	args := m.Called(ctx)
	es, _ := args.Get(0).([]domain.LiquidationEvent)
	return es, args.Error(1)
}

type errorJSON struct {
	Error string `json:"error"`
}

func asCaller(req *http.Request, account string) *http.Request {
	return req.WithContext(identity.WithCaller(req.Context(), account))
}

// --- Liquidate ---

func TestHandler_Liquidate_Success(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	event := domain.LiquidationEvent{
		ID:               uuid.New(),
		PositionID:       1,
		DebtRepaid:       big.NewInt(50_000_000),
		CollateralSeized: big.NewInt(55_000_000),
		Liquidator:       "acct-liq",
		Timestamp:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Asset:            domain.AssetICP,
	}
	mockService.On("Liquidate", mock.Anything, "acct-liq", uint64(1), big.NewInt(50_000_000)).
		Return(event, nil).Once()

	body := bytes.NewBufferString(`{"position_id": 1, "debt_to_cover": "50000000"}`)
	req := asCaller(httptest.NewRequest(http.MethodPost, "/liquidations", body), "acct-liq")
	rr := httptest.NewRecorder()

	h.Liquidate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res LiquidationEventResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, event.ID.String(), res.ID)
	require.Equal(t, "50000000", res.DebtRepaid)
	require.Equal(t, "55000000", res.CollateralSeized)
	mockService.AssertExpectations(t)
}

func TestHandler_Liquidate_NoIdentity(t *testing.T) {
	h := NewLiquidationHandler(new(MockLiquidationService))

	body := bytes.NewBufferString(`{"position_id": 1, "debt_to_cover": "50000000"}`)
	req := httptest.NewRequest(http.MethodPost, "/liquidations", body)
	rr := httptest.NewRecorder()

	h.Liquidate(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Liquidate_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "not whitelisted", err: domain.ErrUnauthorizedLiquidator, wantCode: http.StatusForbidden},
		{name: "position not found", err: domain.ErrPositionNotFound, wantCode: http.StatusNotFound},
		{name: "not liquidatable", err: domain.ErrNotLiquidatable, wantCode: http.StatusConflict},
		{name: "amount out of bounds", err: domain.ErrInvalidLiquidationAmount, wantCode: http.StatusUnprocessableEntity},
		{name: "transfer failed", err: domain.ErrTransferFailed, wantCode: http.StatusBadGateway},
		{name: "inconsistent settlement", err: domain.ErrInconsistentSettlement, wantCode: http.StatusBadGateway},
		{name: "oracle degraded", err: domain.ErrInsufficientSources, wantCode: http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockLiquidationService)
			h := NewLiquidationHandler(mockService)

			mockService.On("Liquidate", mock.Anything, "acct-liq", uint64(1), mock.Anything).
				Return(domain.LiquidationEvent{}, tc.err).Once()

			body := bytes.NewBufferString(`{"position_id": 1, "debt_to_cover": "50000000"}`)
			req := asCaller(httptest.NewRequest(http.MethodPost, "/liquidations", body), "acct-liq")
			rr := httptest.NewRecorder()

			h.Liquidate(rr, req)

			require.Equal(t, tc.wantCode, rr.Code)
		})
	}
}

func TestHandler_Liquidate_InvalidAmount(t *testing.T) {
	h := NewLiquidationHandler(new(MockLiquidationService))

	body := bytes.NewBufferString(`{"position_id": 1, "debt_to_cover": "-1"}`)
	req := asCaller(httptest.NewRequest(http.MethodPost, "/liquidations", body), "acct-liq")
	rr := httptest.NewRecorder()

	h.Liquidate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- ListLiquidatable ---

func TestHandler_ListLiquidatable(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("ListLiquidatable", mock.Anything).Return([]uint64{1, 7}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/liquidations/positions", nil)
	rr := httptest.NewRecorder()

	h.ListLiquidatable(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res ListLiquidatableResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, []uint64{1, 7}, res.PositionIDs)
}

func TestHandler_ListLiquidatable_EmptyIsArray(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("ListLiquidatable", mock.Anything).Return([]uint64(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/liquidations/positions", nil)
	rr := httptest.NewRecorder()

	h.ListLiquidatable(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"position_ids": []}`, rr.Body.String())
}

func TestHandler_ListLiquidatable_OracleFailure(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("ListLiquidatable", mock.Anything).
		Return([]uint64(nil), domain.ErrPriceDeviationTooHigh).Once()

	req := httptest.NewRequest(http.MethodGet, "/liquidations/positions", nil)
	rr := httptest.NewRecorder()

	h.ListLiquidatable(rr, req)

	require.Equal(t, http.StatusBadGateway, rr.Code)
}

// --- Config ---

func TestHandler_GetConfig(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("Config").Return(domain.LiquidationConfig{
		BonusBps:    1000,
		MinAmount:   big.NewInt(100_000_000),
		MaxAmount:   big.NewInt(1_000_000_000_000),
		Liquidators: []string{"acct-liq"},
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/liquidations/config", nil)
	rr := httptest.NewRecorder()

	h.GetConfig(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res ConfigResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, uint32(1000), res.BonusBps)
	require.Equal(t, "100000000", res.MinAmount)
	require.Equal(t, []string{"acct-liq"}, res.Liquidators)
}

func TestHandler_UpdateConfig_Success(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("UpdateConfig", "acct-admin", mock.MatchedBy(func(cfg domain.LiquidationConfig) bool {
		return cfg.BonusBps == 800 && cfg.MinAmount.Cmp(big.NewInt(1_000)) == 0
	})).Return(nil).Once()

	body := bytes.NewBufferString(`{"bonus_bps": 800, "min_amount": "1000", "max_amount": "2000", "liquidators": ["acct-liq"]}`)
	req := asCaller(httptest.NewRequest(http.MethodPut, "/liquidations/config", body), "acct-admin")
	rr := httptest.NewRecorder()

	h.UpdateConfig(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_UpdateConfig_MinAboveMax(t *testing.T) {
	h := NewLiquidationHandler(new(MockLiquidationService))

	body := bytes.NewBufferString(`{"bonus_bps": 800, "min_amount": "2000", "max_amount": "1000"}`)
	req := asCaller(httptest.NewRequest(http.MethodPut, "/liquidations/config", body), "acct-admin")
	rr := httptest.NewRecorder()

	h.UpdateConfig(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var res errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "min_amount exceeds max_amount", res.Error)
}

func TestHandler_UpdateConfig_NotAdmin(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("UpdateConfig", "acct-mallory", mock.Anything).
		Return(domain.ErrUnauthorizedAdmin).Once()

	body := bytes.NewBufferString(`{"bonus_bps": 800, "min_amount": "1000", "max_amount": "2000"}`)
	req := asCaller(httptest.NewRequest(http.MethodPut, "/liquidations/config", body), "acct-mallory")
	rr := httptest.NewRecorder()

	h.UpdateConfig(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

// --- AddLiquidator ---

func TestHandler_AddLiquidator_Success(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	mockService.On("AddLiquidator", "acct-admin", "acct-new").Return(nil).Once()

	body := bytes.NewBufferString(`{"account": "acct-new"}`)
	req := asCaller(httptest.NewRequest(http.MethodPost, "/liquidations/liquidators", body), "acct-admin")
	rr := httptest.NewRecorder()

	h.AddLiquidator(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_AddLiquidator_MissingAccount(t *testing.T) {
	h := NewLiquidationHandler(new(MockLiquidationService))

	body := bytes.NewBufferString(`{"account": "  "}`)
	req := asCaller(httptest.NewRequest(http.MethodPost, "/liquidations/liquidators", body), "acct-admin")
	rr := httptest.NewRecorder()

	h.AddLiquidator(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Events ---

func TestHandler_ListEvents(t *testing.T) {
	mockService := new(MockLiquidationService)
	h := NewLiquidationHandler(mockService)

	events := []domain.LiquidationEvent{
		{
			ID:               uuid.New(),
			PositionID:       1,
			DebtRepaid:       big.NewInt(50_000_000),
			CollateralSeized: big.NewInt(55_000_000),
			Liquidator:       "acct-liq",
			Asset:            domain.AssetICP,
		},
	}
	mockService.On("Events", mock.Anything).Return(events, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/liquidations/events", nil)
	rr := httptest.NewRecorder()

	h.ListEvents(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res []LiquidationEventResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res, 1)
	require.Equal(t, uint64(1), res[0].PositionID)
}
