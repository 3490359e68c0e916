package postgres

import (
	"context"
	"fmt"

	"stablevault/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository persists the append-only liquidation log. There is no
// update or delete path on purpose.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Append(ctx context.Context, e domain.LiquidationEvent) error {
	const q = `
		insert into liquidation_events (id, position_id, debt_repaid, collateral_seized, liquidator, asset, created_at)
		values ($1, $2, $3, $4, $5, $6, $7);
	`

	_, err := r.pool.Exec(ctx, q,
		e.ID, e.PositionID, e.DebtRepaid.String(), e.CollateralSeized.String(),
		e.Liquidator, string(e.Asset), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append liquidation event for position %d: %w", e.PositionID, err)
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context) ([]domain.LiquidationEvent, error) {
	const q = `
		select id, position_id, debt_repaid::text, collateral_seized::text, liquidator, asset, created_at
		from liquidation_events order by created_at;
	`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query liquidation events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.LiquidationEvent, 0, 64)
	for rows.Next() {
		var (
			e                domain.LiquidationEvent
			debt, collateral string
			asset            string
		)
		if err = rows.Scan(&e.ID, &e.PositionID, &debt, &collateral, &e.Liquidator, &asset, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan liquidation event: %w", err)
		}
		if e.DebtRepaid, err = parseAmount(debt); err != nil {
			return nil, fmt.Errorf("corrupt debt_repaid in event %s: %w", e.ID, err)
		}
		if e.CollateralSeized, err = parseAmount(collateral); err != nil {
			return nil, fmt.Errorf("corrupt collateral_seized in event %s: %w", e.ID, err)
		}
		e.Asset = domain.CollateralAsset(asset)
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating liquidation events: %w", err)
	}
	return events, nil
}
