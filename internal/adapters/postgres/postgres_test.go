package postgres_test

import (
	"context"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"stablevault/internal/adapters/postgres"
	"stablevault/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const migrationsDir = "../../platform/db/migrations"

var (
	pgSetupOnce sync.Once

	pgContainer *tcpg.PostgresContainer
	pgConnStr   string
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pgSetupOnce.Do(func() {
		startPostgres(t)
	})

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, resetDatabase(ctx, pool))

	return pool
}

func startPostgres(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpg.Run(ctx,
		"postgres:16-alpine",
		tcpg.WithDatabase("postgres"),
		tcpg.WithUsername("postgres"),
		tcpg.WithPassword("postgres"),
	)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.Eventually(t, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return db.PingContext(pingCtx) == nil
	}, 15*time.Second, 500*time.Millisecond)

	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, migrationsDir))

	pgContainer = pg
	pgConnStr = dsn
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `truncate table liquidation_settlements, liquidation_events, positions restart identity cascade`)
	return err
}

func testPosition() domain.Position {
	return domain.Position{
		Owner:       "acct-1",
		Asset:       domain.AssetICP,
		Collateral:  big.NewInt(100_000_000),
		Debt:        big.NewInt(50_000_000),
		LastUpdated: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// ---------- PositionRepository ----------

func TestPositionRepository_CreateAndGet(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)
	ctx := context.Background()

	want := testPosition()
	id, err := repo.Create(ctx, want)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, want.Owner, got.Owner)
	require.Equal(t, want.Asset, got.Asset)
	require.Zero(t, want.Collateral.Cmp(got.Collateral))
	require.Zero(t, want.Debt.Cmp(got.Debt))
}

func TestPositionRepository_SequentialIDs(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)
	ctx := context.Background()

	first, err := repo.Create(ctx, testPosition())
	require.NoError(t, err)
	second, err := repo.Create(ctx, testPosition())
	require.NoError(t, err)
	require.Equal(t, first+1, second)
}

func TestPositionRepository_Get_NotFound(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)

	_, err := repo.Get(context.Background(), 12345)
	require.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestPositionRepository_Update(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)
	ctx := context.Background()

	id, err := repo.Create(ctx, testPosition())
	require.NoError(t, err)

	pos, err := repo.Get(ctx, id)
	require.NoError(t, err)
	pos.Collateral = big.NewInt(250_000_000)
	pos.Debt = big.NewInt(0)
	pos.LastUpdated = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, pos))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Zero(t, got.Collateral.Cmp(big.NewInt(250_000_000)))
	require.Zero(t, got.Debt.Sign())
}

func TestPositionRepository_Update_NotFound(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)

	missing := testPosition()
	missing.ID = 999
	err := repo.Update(context.Background(), missing)
	require.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestPositionRepository_List(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, testPosition())
		require.NoError(t, err)
	}

	positions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	require.Less(t, positions[0].ID, positions[1].ID)
}

func TestPositionRepository_BigAmountsSurviveRoundTrip(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPositionRepository(pool)
	ctx := context.Background()

	// amounts far beyond int64 range
	big1, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	pos := testPosition()
	pos.Collateral = big1
	id, err := repo.Create(ctx, pos)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Zero(t, got.Collateral.Cmp(big1))
}

// ---------- EventRepository ----------

func TestEventRepository_AppendAndList(t *testing.T) {
	pool := setupPostgres(t)
	positions := postgres.NewPositionRepository(pool)
	repo := postgres.NewEventRepository(pool)
	ctx := context.Background()

	posID, err := positions.Create(ctx, testPosition())
	require.NoError(t, err)

	first := domain.LiquidationEvent{
		ID:               uuid.New(),
		PositionID:       posID,
		DebtRepaid:       big.NewInt(50_000_000),
		CollateralSeized: big.NewInt(55_000_000),
		Liquidator:       "acct-liq",
		Timestamp:        time.Now().UTC().Add(-time.Minute),
		Asset:            domain.AssetICP,
	}
	second := first
	second.ID = uuid.New()
	second.Timestamp = time.Now().UTC()

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// oldest first
	require.Equal(t, first.ID, events[0].ID)
	require.Zero(t, events[0].DebtRepaid.Cmp(first.DebtRepaid))
	require.Equal(t, domain.AssetICP, events[0].Asset)
}

// ---------- SettlementRepository ----------

func TestSettlementRepository_BeginAndAdvance(t *testing.T) {
	pool := setupPostgres(t)
	positions := postgres.NewPositionRepository(pool)
	repo := postgres.NewSettlementRepository(pool)
	ctx := context.Background()

	posID, err := positions.Create(ctx, testPosition())
	require.NoError(t, err)

	id, err := repo.Begin(ctx, posID, "acct-liq", big.NewInt(50_000_000), big.NewInt(55_000_000), time.Now().UTC())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	pending, err := repo.ListByState(ctx, domain.SettlementPending)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, pending)

	require.NoError(t, repo.SetState(ctx, id, domain.SettlementDebtSettled, time.Now().UTC()))
	require.NoError(t, repo.SetState(ctx, id, domain.SettlementCommitted, time.Now().UTC()))

	pending, err = repo.ListByState(ctx, domain.SettlementPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	committed, err := repo.ListByState(ctx, domain.SettlementCommitted)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, committed)
}

func TestSettlementRepository_SetState_NotFound(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewSettlementRepository(pool)

	err := repo.SetState(context.Background(), uuid.New(), domain.SettlementCommitted, time.Now().UTC())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}
