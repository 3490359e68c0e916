package vault

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"stablevault/internal/adapters"
	"stablevault/internal/domain"
	"stablevault/internal/platform/locks"
	"stablevault/internal/risk"

	"github.com/sirupsen/logrus"
)

// Service owns the position lifecycle. Each mutating operation takes the
// position's exclusive lease before reading state and releases it after the
// commit (or failure), so decisions made before an external call can never be
// applied over state another operation changed meanwhile.
type Service struct {
	store  adapters.PositionStore
	ledger adapters.LedgerClient
	risk   *risk.Engine
	locks  *locks.PositionLocks
	now    func() time.Time
}

func NewService(store adapters.PositionStore, ledger adapters.LedgerClient, riskEngine *risk.Engine, positionLocks *locks.PositionLocks) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		risk:   riskEngine,
		locks:  positionLocks,
		now:    time.Now,
	}
}

// SetNow overrides the clock for tests.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// Open creates an empty position for the owner and returns its id.
func (s *Service) Open(ctx context.Context, owner string, asset domain.CollateralAsset) (uint64, error) {
	if _, err := s.risk.Params(asset); err != nil {
		return 0, err
	}
	id, err := s.store.Create(ctx, domain.Position{
		Owner:       owner,
		Asset:       asset,
		Collateral:  big.NewInt(0),
		Debt:        big.NewInt(0),
		LastUpdated: s.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create position: %w", err)
	}
	logrus.WithFields(logrus.Fields{"position_id": id, "owner": owner, "asset": asset}).Info("position opened")
	return id, nil
}

// Get loads a position by id.
func (s *Service) Get(ctx context.Context, id uint64) (domain.Position, error) {
	return s.store.Get(ctx, id)
}

// Deposit increases collateral. The resulting total must reach the asset's
// configured minimum.
func (s *Service) Deposit(ctx context.Context, id uint64, amount *big.Int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	params, err := s.risk.Params(pos.Asset)
	if err != nil {
		return err
	}

	next := pos.Clone()
	next.Collateral.Add(next.Collateral, amount)
	if next.Collateral.Cmp(params.MinDeposit) < 0 {
		return domain.ErrBelowMinimumCollateral
	}

	next.LastUpdated = s.now()
	return s.store.Update(ctx, next)
}

// Withdraw reduces collateral, but only if the remaining collateral still
// covers the existing debt at the asset's LTV limit.
func (s *Service) Withdraw(ctx context.Context, id uint64, amount *big.Int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if pos.Collateral.Cmp(amount) < 0 {
		return domain.ErrInsufficientCollateral
	}

	remaining := new(big.Int).Sub(pos.Collateral, amount)
	value, err := s.risk.CollateralValue(ctx, pos.Asset, remaining)
	if err != nil {
		return err
	}
	maxDebt, err := s.risk.MaxDebt(pos.Asset, value)
	if err != nil {
		return err
	}
	if pos.Debt.Cmp(maxDebt) > 0 {
		return domain.ErrExceedsMaxLTV
	}

	next := pos.Clone()
	next.Collateral = remaining
	next.LastUpdated = s.now()
	return s.store.Update(ctx, next)
}

// Mint issues stable-asset debt against the position's collateral. The
// external ledger mint must succeed before the debt increment is committed.
func (s *Service) Mint(ctx context.Context, id uint64, amount *big.Int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	value, err := s.risk.CollateralValue(ctx, pos.Asset, pos.Collateral)
	if err != nil {
		return err
	}
	maxDebt, err := s.risk.MaxDebt(pos.Asset, value)
	if err != nil {
		return err
	}
	newDebt := new(big.Int).Add(pos.Debt, amount)
	if newDebt.Cmp(maxDebt) > 0 {
		return domain.ErrExceedsMaxLTV
	}

	if err := s.ledger.Mint(ctx, pos.Owner, amount); err != nil {
		return fmt.Errorf("%w: mint: %v", domain.ErrTransferFailed, err)
	}

	next := pos.Clone()
	next.Debt = newDebt
	next.LastUpdated = s.now()
	if err := s.store.Update(ctx, next); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"position_id": id, "amount": amount.String()}).Info("debt minted")
	return nil
}

// Repay burns stable asset from the owner and reduces debt on success.
func (s *Service) Repay(ctx context.Context, id uint64, amount *big.Int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if amount.Cmp(pos.Debt) > 0 {
		return domain.ErrRepaymentExceedsDebt
	}

	if err := s.ledger.Burn(ctx, pos.Owner, amount); err != nil {
		return fmt.Errorf("%w: burn: %v", domain.ErrTransferFailed, err)
	}

	next := pos.Clone()
	next.Debt.Sub(next.Debt, amount)
	next.LastUpdated = s.now()
	return s.store.Update(ctx, next)
}

// HealthFactor reports collateral value over debt for the position.
func (s *Service) HealthFactor(ctx context.Context, id uint64) (float64, error) {
	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.risk.HealthFactor(ctx, pos)
}

// IsLiquidatable re-evaluates eligibility at the current price.
func (s *Service) IsLiquidatable(ctx context.Context, id uint64) (bool, error) {
	pos, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return s.risk.IsLiquidatable(ctx, pos)
}
