package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"stablevault/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PositionRepository struct {
	pool *pgxpool.Pool
}

func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

func (r *PositionRepository) Create(ctx context.Context, p domain.Position) (uint64, error) {
	const q = `
		insert into positions (owner_account, asset, collateral, debt, last_updated)
		values ($1, $2, $3, $4, $5)
		returning id;
	`

	var id uint64
	err := r.pool.QueryRow(ctx, q, p.Owner, string(p.Asset), p.Collateral.String(), p.Debt.String(), p.LastUpdated).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position for owner %q: %w", p.Owner, err)
	}
	return id, nil
}

func (r *PositionRepository) Get(ctx context.Context, id uint64) (domain.Position, error) {
	const q = `
		select id, owner_account, asset, collateral::text, debt::text, last_updated
		from positions where id = $1;
	`

	var (
		pos              domain.Position
		asset            string
		collateral, debt string
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&pos.ID, &pos.Owner, &asset, &collateral, &debt, &pos.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrPositionNotFound
		}
		return domain.Position{}, fmt.Errorf("failed to select position %d: %w", id, err)
	}

	pos.Asset = domain.CollateralAsset(asset)
	if pos.Collateral, err = parseAmount(collateral); err != nil {
		return domain.Position{}, fmt.Errorf("corrupt collateral for position %d: %w", id, err)
	}
	if pos.Debt, err = parseAmount(debt); err != nil {
		return domain.Position{}, fmt.Errorf("corrupt debt for position %d: %w", id, err)
	}
	return pos, nil
}

func (r *PositionRepository) Update(ctx context.Context, p domain.Position) error {
	const q = `
		update positions
		set collateral = $2, debt = $3, last_updated = $4
		where id = $1;
	`

	tag, err := r.pool.Exec(ctx, q, p.ID, p.Collateral.String(), p.Debt.String(), p.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to update position %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func (r *PositionRepository) List(ctx context.Context) ([]domain.Position, error) {
	const q = `
		select id, owner_account, asset, collateral::text, debt::text, last_updated
		from positions order by id;
	`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0, 64)
	for rows.Next() {
		var (
			pos              domain.Position
			asset            string
			collateral, debt string
		)
		if err = rows.Scan(&pos.ID, &pos.Owner, &asset, &collateral, &debt, &pos.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.Asset = domain.CollateralAsset(asset)
		if pos.Collateral, err = parseAmount(collateral); err != nil {
			return nil, fmt.Errorf("corrupt collateral for position %d: %w", pos.ID, err)
		}
		if pos.Debt, err = parseAmount(debt); err != nil {
			return nil, fmt.Errorf("corrupt debt for position %d: %w", pos.ID, err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
