package liquidation

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"stablevault/internal/domain"
	"stablevault/internal/platform/locks"
	"stablevault/internal/risk"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Testify mocks ---

type MockPositionStore struct{ mock.Mock }

func (m *MockPositionStore) Create(ctx context.Context, p domain.Position) (uint64, error) {
	args := m.Called(ctx, p)
	id, _ := args.Get(0).(uint64)
	return id, args.Error(1)
}

func (m *MockPositionStore) Get(ctx context.Context, id uint64) (domain.Position, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(domain.Position)
	return p, args.Error(1)
}

func (m *MockPositionStore) Update(ctx context.Context, p domain.Position) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPositionStore) List(ctx context.Context) ([]domain.Position, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]domain.Position)
	return ps, args.Error(1)
}

type MockEventStore struct{ mock.Mock }

func (m *MockEventStore) Append(ctx context.Context, e domain.LiquidationEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventStore) List(ctx context.Context) ([]domain.LiquidationEvent, error) {
	args := m.Called(ctx)
	es, _ := args.Get(0).([]domain.LiquidationEvent)
	return es, args.Error(1)
}

type MockSettlementJournal struct{ mock.Mock }

func (m *MockSettlementJournal) Begin(ctx context.Context, positionID uint64, liquidator string, debtToCover, collateralToSeize *big.Int, at time.Time) (uuid.UUID, error) {
	args := m.Called(ctx, positionID, liquidator, debtToCover, collateralToSeize, at)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *MockSettlementJournal) SetState(ctx context.Context, id uuid.UUID, state domain.SettlementState, at time.Time) error {
	args := m.Called(ctx, id, state, at)
	return args.Error(0)
}

type MockLedgerClient struct{ mock.Mock }

func (m *MockLedgerClient) Mint(ctx context.Context, account string, amount *big.Int) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}

func (m *MockLedgerClient) Burn(ctx context.Context, account string, amount *big.Int) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}

func (m *MockLedgerClient) Transfer(ctx context.Context, asset string, from, to string, amount *big.Int) error {
	args := m.Called(ctx, asset, from, to, amount)
	return args.Error(0)
}

type MockPriceProvider struct{ mock.Mock }

func (m *MockPriceProvider) GetPrice(ctx context.Context, asset domain.CollateralAsset) (domain.AggregatedPrice, error) {
	args := m.Called(ctx, asset)
	p, _ := args.Get(0).(domain.AggregatedPrice)
	return p, args.Error(1)
}

// --- Fixtures ---

const (
	testLiquidator = "liq-bot"
	testProtocol   = "protocol-treasury"
	testAdmin      = "protocol-admin"
)

type engineFixture struct {
	engine    *Engine
	positions *MockPositionStore
	events    *MockEventStore
	journal   *MockSettlementJournal
	ledger    *MockLedgerClient
}

func newFixture(price float64) *engineFixture {
	prices := new(MockPriceProvider)
	prices.On("GetPrice", mock.Anything, mock.Anything).Return(domain.AggregatedPrice{Price: price, SourcesUsed: 3}, nil)
	riskEngine := risk.NewEngine(prices, map[domain.CollateralAsset]domain.AssetParams{
		domain.AssetICP: {
			Decimals:   8,
			MinDeposit: big.NewInt(100_000_000),
			LTVBps:     7500,
		},
	})

	cfg := domain.LiquidationConfig{
		BonusBps:    500,
		MinAmount:   big.NewInt(100_000_000),
		MaxAmount:   big.NewInt(1_000_000_000_000),
		Liquidators: []string{testLiquidator},
	}
	f := &engineFixture{
		positions: new(MockPositionStore),
		events:    new(MockEventStore),
		journal:   new(MockSettlementJournal),
		ledger:    new(MockLedgerClient),
	}
	f.engine = NewEngine(
		NewConfigStore(cfg, []string{testAdmin}),
		f.positions, f.events, f.journal, f.ledger,
		riskEngine, locks.New(), testProtocol,
	)
	return f
}

// underwater is eligible at $10: value 1e9, threshold 712500000 < debt
func underwaterPosition() domain.Position {
	return domain.Position{
		ID:         1,
		Owner:      "alice",
		Asset:      domain.AssetICP,
		Collateral: big.NewInt(100_000_000),
		Debt:       big.NewInt(750_000_000),
	}
}

func (f *engineFixture) expectJournal(id uuid.UUID, states ...domain.SettlementState) {
	f.journal.On("Begin", mock.Anything, uint64(1), testLiquidator, mock.Anything, mock.Anything, mock.Anything).Return(id, nil).Once()
	for _, st := range states {
		f.journal.On("SetState", mock.Anything, id, st, mock.Anything).Return(nil).Once()
	}
}

// --- Liquidate ---

func TestEngine_Liquidate_Success(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()

	debtToCover := big.NewInt(200_000_000) // $2
	seizedUnits := big.NewInt(21_000_000)  // $2.10 at $10, 0.21 ICP

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementDebtSettled, domain.SettlementCommitted)
	f.ledger.On("Transfer", mock.Anything, StableAsset, testLiquidator, testProtocol, debtToCover).Return(nil).Once()
	f.ledger.On("Transfer", mock.Anything, "ICP", testProtocol, testLiquidator, seizedUnits).Return(nil).Once()
	f.positions.On("Update", mock.Anything, mock.MatchedBy(func(p domain.Position) bool {
		return p.Collateral.Cmp(big.NewInt(79_000_000)) == 0 &&
			p.Debt.Cmp(big.NewInt(550_000_000)) == 0
	})).Return(nil).Once()
	f.events.On("Append", mock.Anything, mock.MatchedBy(func(e domain.LiquidationEvent) bool {
		return e.PositionID == 1 && e.Liquidator == testLiquidator &&
			e.DebtRepaid.Cmp(debtToCover) == 0 &&
			e.CollateralSeized.Cmp(seizedUnits) == 0
	})).Return(nil).Once()

	event, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, debtToCover)

	require.NoError(t, err)
	require.Equal(t, uint64(1), event.PositionID)
	require.Equal(t, seizedUnits, event.CollateralSeized)
	f.positions.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.journal.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestEngine_Liquidate_UnauthorizedCaller(t *testing.T) {
	f := newFixture(10.0)

	_, err := f.engine.Liquidate(context.Background(), "mallory", 1, big.NewInt(200_000_000))

	require.ErrorIs(t, err, domain.ErrUnauthorizedLiquidator)
	f.positions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestEngine_Liquidate_PositionNotFound(t *testing.T) {
	f := newFixture(10.0)

	f.positions.On("Get", mock.Anything, uint64(9)).Return(domain.Position{}, domain.ErrPositionNotFound).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 9, big.NewInt(200_000_000))

	require.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestEngine_Liquidate_HealthyPosition(t *testing.T) {
	f := newFixture(10.0)

	healthy := underwaterPosition()
	healthy.Debt = big.NewInt(500_000_000)
	f.positions.On("Get", mock.Anything, uint64(1)).Return(healthy, nil).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(200_000_000))

	require.ErrorIs(t, err, domain.ErrNotLiquidatable)
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Liquidate_NonPositiveAmount(t *testing.T) {
	f := newFixture(10.0)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil)

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(0))
	require.ErrorIs(t, err, domain.ErrInvalidLiquidationAmount)

	_, err = f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(-5))
	require.ErrorIs(t, err, domain.ErrInvalidLiquidationAmount)
}

func TestEngine_Liquidate_AmountExceedsDebt(t *testing.T) {
	f := newFixture(10.0)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(750_000_001))

	require.ErrorIs(t, err, domain.ErrInvalidLiquidationAmount)
}

func TestEngine_Liquidate_NotionalBelowMinimum(t *testing.T) {
	f := newFixture(10.0)

	// 0.5 USD covered, 0.525 USD notional, below the 1 USD floor
	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(50_000_000))

	require.ErrorIs(t, err, domain.ErrInvalidLiquidationAmount)
	f.journal.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Liquidate_SeizureExceedsCollateral(t *testing.T) {
	// At $5 the position is deeply underwater: covering the full 7.5 USD debt
	// would require 1.575 ICP but only 1 ICP is posted.
	f := newFixture(5.0)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(750_000_000))

	require.ErrorIs(t, err, domain.ErrInvalidLiquidationAmount)
}

func TestEngine_Liquidate_DebtLegFailureAborts(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementAborted)
	f.ledger.On("Transfer", mock.Anything, StableAsset, testLiquidator, testProtocol, mock.Anything).
		Return(errors.New("insufficient balance")).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(200_000_000))

	require.ErrorIs(t, err, domain.ErrTransferFailed)
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, "ICP", mock.Anything, mock.Anything, mock.Anything)
	f.positions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.journal.AssertExpectations(t)
}

func TestEngine_Liquidate_CollateralLegFailureCompensates(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()
	debtToCover := big.NewInt(200_000_000)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementDebtSettled, domain.SettlementCompensated)
	f.ledger.On("Transfer", mock.Anything, StableAsset, testLiquidator, testProtocol, debtToCover).Return(nil).Once()
	f.ledger.On("Transfer", mock.Anything, "ICP", testProtocol, testLiquidator, mock.Anything).
		Return(errors.New("collateral frozen")).Once()
	// the debt leg is reversed back to the liquidator
	f.ledger.On("Transfer", mock.Anything, StableAsset, testProtocol, testLiquidator, debtToCover).Return(nil).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, debtToCover)

	require.ErrorIs(t, err, domain.ErrTransferFailed)
	f.positions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.journal.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestEngine_Liquidate_CompensationFailureIsInconsistent(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()
	debtToCover := big.NewInt(200_000_000)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementDebtSettled, domain.SettlementInconsistent)
	f.ledger.On("Transfer", mock.Anything, StableAsset, testLiquidator, testProtocol, debtToCover).Return(nil).Once()
	f.ledger.On("Transfer", mock.Anything, "ICP", testProtocol, testLiquidator, mock.Anything).
		Return(errors.New("collateral frozen")).Once()
	f.ledger.On("Transfer", mock.Anything, StableAsset, testProtocol, testLiquidator, debtToCover).
		Return(errors.New("ledger down")).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, debtToCover)

	require.ErrorIs(t, err, domain.ErrInconsistentSettlement)
	f.journal.AssertExpectations(t)
}

func TestEngine_Liquidate_CommitFailureIsInconsistent(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementDebtSettled, domain.SettlementInconsistent)
	f.ledger.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.positions.On("Update", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(200_000_000))

	require.ErrorIs(t, err, domain.ErrInconsistentSettlement)
	f.journal.AssertExpectations(t)
}

func TestEngine_Liquidate_EventAppendFailureStillSucceeds(t *testing.T) {
	f := newFixture(10.0)
	settlementID := uuid.New()

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.expectJournal(settlementID, domain.SettlementDebtSettled, domain.SettlementCommitted)
	f.ledger.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.positions.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
	f.events.On("Append", mock.Anything, mock.Anything).Return(errors.New("event store down")).Once()

	event, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(200_000_000))

	require.NoError(t, err)
	require.Equal(t, uint64(1), event.PositionID)
}

func TestEngine_Liquidate_JournalBeginFailureStopsSettlement(t *testing.T) {
	f := newFixture(10.0)

	f.positions.On("Get", mock.Anything, uint64(1)).Return(underwaterPosition(), nil).Once()
	f.journal.On("Begin", mock.Anything, uint64(1), testLiquidator, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, errors.New("db down")).Once()

	_, err := f.engine.Liquidate(context.Background(), testLiquidator, 1, big.NewInt(200_000_000))

	require.Error(t, err)
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- ListLiquidatable ---

func TestEngine_ListLiquidatable(t *testing.T) {
	f := newFixture(10.0)

	healthy := domain.Position{
		ID: 2, Owner: "bob", Asset: domain.AssetICP,
		Collateral: big.NewInt(100_000_000), Debt: big.NewInt(100_000_000),
	}
	f.positions.On("List", mock.Anything).Return([]domain.Position{underwaterPosition(), healthy}, nil).Once()

	ids, err := f.engine.ListLiquidatable(context.Background())

	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)
}

func TestEngine_ListLiquidatable_Empty(t *testing.T) {
	f := newFixture(10.0)

	f.positions.On("List", mock.Anything).Return([]domain.Position{}, nil).Once()

	ids, err := f.engine.ListLiquidatable(context.Background())

	require.NoError(t, err)
	require.Empty(t, ids)
}

// --- Admin ---

func TestEngine_UpdateConfig_AdminOnly(t *testing.T) {
	f := newFixture(10.0)

	newCfg := domain.LiquidationConfig{
		BonusBps:  800,
		MinAmount: big.NewInt(1),
		MaxAmount: big.NewInt(100),
	}

	require.ErrorIs(t, f.engine.UpdateConfig("mallory", newCfg), domain.ErrUnauthorizedAdmin)
	require.NoError(t, f.engine.UpdateConfig(testAdmin, newCfg))
	require.Equal(t, uint32(800), f.engine.Config().BonusBps)
}

func TestEngine_AddLiquidator_AdminOnly(t *testing.T) {
	f := newFixture(10.0)

	require.ErrorIs(t, f.engine.AddLiquidator("mallory", "new-bot"), domain.ErrUnauthorizedAdmin)

	require.NoError(t, f.engine.AddLiquidator(testAdmin, "new-bot"))
	require.True(t, f.engine.Config().HasLiquidator("new-bot"))

	// duplicate add is a no-op
	require.NoError(t, f.engine.AddLiquidator(testAdmin, "new-bot"))
	count := 0
	for _, l := range f.engine.Config().Liquidators {
		if l == "new-bot" {
			count++
		}
	}
	require.Equal(t, 1, count)
}
