//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/ogurasousui/guard-shifts/internal/adapters/repository/postgres"
	"github.com/ogurasousui/guard-shifts/internal/core/payroll"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
	"github.com/ogurasousui/guard-shifts/internal/platform/config"
	pg "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
)

const (
	migrationsDir = "assets/migrations"
	seedsDir      = "assets/seeds"

	seedShiftID    = "44444444-4444-4444-4444-444444444444"
	seedOperatorID = "22222222-2222-2222-2222-222222222222"
	seedOtherOpID  = "33333333-3333-3333-3333-333333333333"
)

func TestShiftAttendanceAndPayIntegration(t *testing.T) {
	cfgPath := configPathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := applySeeds(ctx, pool, seedsDir); err != nil {
		t.Fatalf("failed to apply seeds: %v", err)
	}

	txManager := pg.NewTransactionManager(pool)
	shiftRepo := repo.NewShiftRepository(pool)
	payItemRepo := repo.NewPayItemRepository(pool)

	shiftSvc := shift.NewService(shiftRepo, stubClock{now: time.Now().UTC()}, txManager, nil)

	resolver, err := payroll.NewRateResolver(cfg.Payroll.FallbackHourlyRateCents)
	if err != nil {
		t.Fatalf("NewRateResolver error: %v", err)
	}
	paySvc := payroll.NewService(shiftRepo, payItemRepo, resolver, nil, txManager, nil)

	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	checkIn := time.Date(2025, 6, 10, 9, 0, 0, 0, rome)
	checkOut := time.Date(2025, 6, 10, 17, 0, 0, 0, rome)

	if _, err := shiftSvc.RecordAttendance(ctx, shift.RecordAttendanceInput{
		ShiftID:    seedShiftID,
		OperatorID: seedOtherOpID,
		EventType:  shift.EventCheckIn,
		Source:     shift.SourceAPI,
		Timestamp:  checkIn,
	}); !errors.Is(err, shift.ErrUnassignedOperator) {
		t.Fatalf("expected ErrUnassignedOperator, got %v", err)
	}

	if _, err := shiftSvc.RecordAttendance(ctx, shift.RecordAttendanceInput{
		ShiftID:    seedShiftID,
		OperatorID: seedOperatorID,
		EventType:  shift.EventCheckIn,
		Source:     shift.SourceAPI,
		Timestamp:  checkIn,
	}); err != nil {
		t.Fatalf("RecordAttendance CHECK_IN error: %v", err)
	}

	got, err := shiftSvc.GetShift(ctx, seedShiftID)
	if err != nil {
		t.Fatalf("GetShift error: %v", err)
	}
	if got.Status != shift.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", got.Status)
	}

	if _, err := shiftSvc.RecordAttendance(ctx, shift.RecordAttendanceInput{
		ShiftID:    seedShiftID,
		OperatorID: seedOperatorID,
		EventType:  shift.EventCheckOut,
		Source:     shift.SourceAPI,
		Timestamp:  checkOut,
	}); err != nil {
		t.Fatalf("RecordAttendance CHECK_OUT error: %v", err)
	}

	item, err := paySvc.CalculatePay(ctx, seedShiftID)
	if err != nil {
		t.Fatalf("CalculatePay error: %v", err)
	}
	if item == nil {
		t.Fatal("expected pay item, got nil")
	}
	// 480 分 - 休憩 30 分 = 450 分、時給 1500 セント
	if item.PayableMinutes != 450 || item.TotalCents != 11250 {
		t.Fatalf("unexpected pay item: %+v", item)
	}
	if item.PeriodKey != "2025-06" {
		t.Fatalf("expected period 2025-06, got %s", item.PeriodKey)
	}

	summary, err := paySvc.PaySummary(ctx, seedOperatorID, "2025-06")
	if err != nil {
		t.Fatalf("PaySummary error: %v", err)
	}
	if summary.TotalCents != 11250 {
		t.Fatalf("expected summary total 11250, got %d", summary.TotalCents)
	}

	if _, err := shiftSvc.CompleteShift(ctx, seedShiftID); err != nil {
		t.Fatalf("CompleteShift error: %v", err)
	}
	if _, err := shiftSvc.CancelShift(ctx, seedShiftID); !errors.Is(err, shift.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func applySeeds(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
