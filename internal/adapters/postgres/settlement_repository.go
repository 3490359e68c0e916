package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"stablevault/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettlementRepository is the liquidation settlement journal. A row is
// written before the first transfer leg runs, so after a crash an operator
// can tell exactly which settlements were left between legs.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

func (r *SettlementRepository) Begin(ctx context.Context, positionID uint64, liquidator string, debtToCover, collateralToSeize *big.Int, at time.Time) (uuid.UUID, error) {
	const q = `
		insert into liquidation_settlements (id, position_id, liquidator, debt_to_cover, collateral_to_seize, state, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $7)
		returning id;
	`

	id := uuid.New()
	err := r.pool.QueryRow(ctx, q, id, positionID, liquidator,
		debtToCover.String(), collateralToSeize.String(), string(domain.SettlementPending), at).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin settlement for position %d: %w", positionID, err)
	}
	return id, nil
}

func (r *SettlementRepository) SetState(ctx context.Context, id uuid.UUID, state domain.SettlementState, at time.Time) error {
	const q = `
		update liquidation_settlements
		set state = $2, updated_at = $3
		where id = $1;
	`

	tag, err := r.pool.Exec(ctx, q, id, string(state), at)
	if err != nil {
		return fmt.Errorf("failed to set settlement %s state to %s: %w", id, state, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settlement %s not found", id)
	}
	return nil
}

// ListByState returns settlements in a given state, oldest first. Used by
// operators to reconcile after a crash or an inconsistent settlement.
func (r *SettlementRepository) ListByState(ctx context.Context, state domain.SettlementState) ([]uuid.UUID, error) {
	const q = `
		select id from liquidation_settlements where state = $1 order by created_at;
	`

	rows, err := r.pool.Query(ctx, q, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements in state %s: %w", state, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan settlement id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}
	return ids, nil
}
