package domain

import "errors"

var (
	// Not found.
	ErrPositionNotFound = errors.New("position not found")
	ErrUnsupportedAsset = errors.New("collateral asset not supported")

	// Authorization.
	ErrUnauthorizedLiquidator = errors.New("caller is not a whitelisted liquidator")
	ErrUnauthorizedAdmin      = errors.New("caller is not a protocol admin")

	// Invariant violations.
	ErrBelowMinimumCollateral   = errors.New("amount below minimum collateral requirement")
	ErrInsufficientCollateral   = errors.New("insufficient collateral balance")
	ErrExceedsMaxLTV            = errors.New("operation would exceed maximum LTV")
	ErrRepaymentExceedsDebt     = errors.New("repayment amount exceeds debt")
	ErrNotLiquidatable          = errors.New("position is not liquidatable")
	ErrInvalidLiquidationAmount = errors.New("liquidation amount outside allowed bounds")

	// Oracle failures.
	ErrInsufficientSources   = errors.New("insufficient valid price sources")
	ErrPriceDeviationTooHigh = errors.New("price deviation too high between sources")

	// External ledger failures. ErrInconsistentSettlement is returned only
	// when the collateral leg failed after the debt leg succeeded and the
	// compensating transfer failed too; operators must reconcile from the
	// settlement journal.
	ErrTransferFailed         = errors.New("ledger transfer failed")
	ErrInconsistentSettlement = errors.New("inconsistent settlement: debt collected without collateral seized")
)
