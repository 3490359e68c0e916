package liquidation

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"stablevault/internal/adapters"
	"stablevault/internal/domain"
	"stablevault/internal/observability"
	"stablevault/internal/platform/locks"
	"stablevault/internal/risk"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StableAsset is the ledger asset code of the protocol's stable token.
const StableAsset = "IUSD"

var basisPoints = big.NewInt(10_000)

// Engine authorizes and executes seizure of under-collateralized positions.
// A liquidation settles across two independent ledger transfers; the engine
// journals the settlement before the first leg and reverses the debt leg with
// a compensating transfer if the collateral leg fails.
type Engine struct {
	config          *ConfigStore
	positions       adapters.PositionStore
	events          adapters.EventStore
	journal         adapters.SettlementJournal
	ledger          adapters.LedgerClient
	risk            *risk.Engine
	locks           *locks.PositionLocks
	protocolAccount string
	now             func() time.Time
}

func NewEngine(
	config *ConfigStore,
	positions adapters.PositionStore,
	events adapters.EventStore,
	journal adapters.SettlementJournal,
	ledger adapters.LedgerClient,
	riskEngine *risk.Engine,
	positionLocks *locks.PositionLocks,
	protocolAccount string,
) *Engine {
	return &Engine{
		config:          config,
		positions:       positions,
		events:          events,
		journal:         journal,
		ledger:          ledger,
		risk:            riskEngine,
		locks:           positionLocks,
		protocolAccount: protocolAccount,
		now:             time.Now,
	}
}

// SetNow overrides the clock for tests.
func (e *Engine) SetNow(now func() time.Time) { e.now = now }

// Config returns the current liquidation policy.
func (e *Engine) Config() domain.LiquidationConfig { return e.config.Config() }

// UpdateConfig replaces the policy. Admin only.
func (e *Engine) UpdateConfig(caller string, cfg domain.LiquidationConfig) error {
	return e.config.Update(caller, cfg)
}

// AddLiquidator whitelists a liquidator account. Admin only.
func (e *Engine) AddLiquidator(caller, account string) error {
	return e.config.AddLiquidator(caller, account)
}

// Events returns the append-only liquidation log.
func (e *Engine) Events(ctx context.Context) ([]domain.LiquidationEvent, error) {
	return e.events.List(ctx)
}

// ListLiquidatable scans every position and returns the ids eligible for
// liquidation at the current price.
func (e *Engine) ListLiquidatable(ctx context.Context) ([]uint64, error) {
	positions, err := e.positions.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for _, pos := range positions {
		eligible, err := e.risk.IsLiquidatable(ctx, pos)
		if err != nil {
			return nil, err
		}
		if eligible {
			ids = append(ids, pos.ID)
		}
	}
	return ids, nil
}

// Liquidate runs one liquidation attempt, terminal on the first failure.
// Eligibility is always re-evaluated at call time under the position's
// exclusive lease; a cached result from ListLiquidatable is never trusted.
func (e *Engine) Liquidate(ctx context.Context, caller string, positionID uint64, debtToCover *big.Int) (domain.LiquidationEvent, error) {
	cfg := e.config.Config()
	if !cfg.HasLiquidator(caller) {
		observability.Liquidations.WithLabelValues("unauthorized").Inc()
		return domain.LiquidationEvent{}, domain.ErrUnauthorizedLiquidator
	}

	unlock := e.locks.Lock(positionID)
	defer unlock()

	pos, err := e.positions.Get(ctx, positionID)
	if err != nil {
		observability.Liquidations.WithLabelValues("not_found").Inc()
		return domain.LiquidationEvent{}, err
	}

	eligible, err := e.risk.IsLiquidatable(ctx, pos)
	if err != nil {
		observability.Liquidations.WithLabelValues("oracle_error").Inc()
		return domain.LiquidationEvent{}, err
	}
	if !eligible {
		observability.Liquidations.WithLabelValues("not_liquidatable").Inc()
		return domain.LiquidationEvent{}, domain.ErrNotLiquidatable
	}

	seizeUnits, err := e.computeSeizure(ctx, cfg, pos, debtToCover)
	if err != nil {
		observability.Liquidations.WithLabelValues("invalid_amount").Inc()
		return domain.LiquidationEvent{}, err
	}

	event, err := e.settle(ctx, pos, caller, debtToCover, seizeUnits)
	if err != nil {
		return domain.LiquidationEvent{}, err
	}
	observability.Liquidations.WithLabelValues("ok").Inc()
	return event, nil
}

// computeSeizure sizes the collateral to seize: the covered debt plus the
// liquidator bonus, bounded by the configured notional window, then converted
// to collateral base units at the current price. Truncating division at every
// step.
func (e *Engine) computeSeizure(ctx context.Context, cfg domain.LiquidationConfig, pos domain.Position, debtToCover *big.Int) (*big.Int, error) {
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return nil, fmt.Errorf("%w: debt to cover must be positive", domain.ErrInvalidLiquidationAmount)
	}
	if debtToCover.Cmp(pos.Debt) > 0 {
		return nil, fmt.Errorf("%w: debt to cover exceeds outstanding debt", domain.ErrInvalidLiquidationAmount)
	}

	seizeValue := new(big.Int).Mul(debtToCover, big.NewInt(int64(10_000+cfg.BonusBps)))
	seizeValue.Quo(seizeValue, basisPoints)

	if seizeValue.Cmp(cfg.MinAmount) < 0 || seizeValue.Cmp(cfg.MaxAmount) > 0 {
		return nil, fmt.Errorf("%w: notional %s outside [%s, %s]",
			domain.ErrInvalidLiquidationAmount, seizeValue, cfg.MinAmount, cfg.MaxAmount)
	}

	seizeUnits, err := e.risk.CollateralUnits(ctx, pos.Asset, seizeValue)
	if err != nil {
		return nil, err
	}
	if seizeUnits.Cmp(pos.Collateral) > 0 {
		return nil, fmt.Errorf("%w: seizure exceeds position collateral", domain.ErrInvalidLiquidationAmount)
	}
	return seizeUnits, nil
}

// settle drives the two transfer legs around the journaled saga:
// pending -> debt_settled -> committed, or debt_settled -> compensated on a
// reversed collateral failure, or debt_settled -> inconsistent when the
// compensation itself failed.
func (e *Engine) settle(ctx context.Context, pos domain.Position, liquidator string, debtToCover, seizeUnits *big.Int) (domain.LiquidationEvent, error) {
	settlementID, err := e.journal.Begin(ctx, pos.ID, liquidator, debtToCover, seizeUnits, e.now())
	if err != nil {
		observability.Liquidations.WithLabelValues("journal_error").Inc()
		return domain.LiquidationEvent{}, fmt.Errorf("failed to journal settlement: %w", err)
	}
	log := logrus.WithFields(logrus.Fields{
		"settlement_id": settlementID,
		"position_id":   pos.ID,
		"liquidator":    liquidator,
	})

	// Debt leg: stable asset from the liquidator to the protocol. Failing
	// here is clean, no collateral has moved.
	if err := e.ledger.Transfer(ctx, StableAsset, liquidator, e.protocolAccount, debtToCover); err != nil {
		observability.Liquidations.WithLabelValues("debt_leg_failed").Inc()
		e.markState(ctx, settlementID, domain.SettlementAborted)
		return domain.LiquidationEvent{}, fmt.Errorf("%w: debt leg: %v", domain.ErrTransferFailed, err)
	}
	e.markState(ctx, settlementID, domain.SettlementDebtSettled)

	// Collateral leg: seized units from the protocol to the liquidator.
	if err := e.ledger.Transfer(ctx, string(pos.Asset), e.protocolAccount, liquidator, seizeUnits); err != nil {
		log.WithError(err).Error("collateral leg failed, compensating debt leg")
		if compErr := e.ledger.Transfer(ctx, StableAsset, e.protocolAccount, liquidator, debtToCover); compErr != nil {
			observability.InconsistentSettlements.Inc()
			observability.Liquidations.WithLabelValues("inconsistent").Inc()
			e.markState(ctx, settlementID, domain.SettlementInconsistent)
			log.WithError(compErr).Error("compensating transfer failed, settlement inconsistent")
			return domain.LiquidationEvent{}, fmt.Errorf("%w: settlement %s", domain.ErrInconsistentSettlement, settlementID)
		}
		observability.Liquidations.WithLabelValues("collateral_leg_failed").Inc()
		e.markState(ctx, settlementID, domain.SettlementCompensated)
		return domain.LiquidationEvent{}, fmt.Errorf("%w: collateral leg: %v", domain.ErrTransferFailed, err)
	}

	// Commit: both legs done, apply the deltas and append the event.
	next := pos.Clone()
	next.Collateral.Sub(next.Collateral, seizeUnits)
	next.Debt.Sub(next.Debt, debtToCover)
	next.LastUpdated = e.now()
	if err := e.positions.Update(ctx, next); err != nil {
		// Transfers are done; surface the commit failure for reconciliation
		// rather than pretending the attempt never happened.
		observability.Liquidations.WithLabelValues("commit_failed").Inc()
		e.markState(ctx, settlementID, domain.SettlementInconsistent)
		return domain.LiquidationEvent{}, fmt.Errorf("%w: position commit failed after settlement %s: %v",
			domain.ErrInconsistentSettlement, settlementID, err)
	}

	event := domain.LiquidationEvent{
		ID:               uuid.New(),
		PositionID:       pos.ID,
		DebtRepaid:       new(big.Int).Set(debtToCover),
		CollateralSeized: new(big.Int).Set(seizeUnits),
		Liquidator:       liquidator,
		Timestamp:        e.now(),
		Asset:            pos.Asset,
	}
	if err := e.events.Append(ctx, event); err != nil {
		log.WithError(err).Error("failed to append liquidation event")
	}
	e.markState(ctx, settlementID, domain.SettlementCommitted)

	log.WithFields(logrus.Fields{
		"debt_repaid":       debtToCover.String(),
		"collateral_seized": seizeUnits.String(),
	}).Info("position liquidated")
	return event, nil
}

// markState advances the journal; a journal write failure after a transfer
// has already happened is logged, not returned, since the external effect is
// committed either way.
func (e *Engine) markState(ctx context.Context, id uuid.UUID, state domain.SettlementState) {
	if err := e.journal.SetState(ctx, id, state, e.now()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"settlement_id": id, "state": state}).Error("failed to update settlement journal")
	}
}
