package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestConfirmationSweepRepository_ClaimSweep(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewConfirmationSweepRepository(mock)

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	firedAt := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO confirmation_sweeps`).
		WithArgs(day, firedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT \(sweep_day\) DO NOTHING`).
		WithArgs(day, firedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	claimed, err := repo.ClaimSweep(context.Background(), day, firedAt)
	if err != nil {
		t.Fatalf("ClaimSweep error: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = repo.ClaimSweep(context.Background(), day, firedAt)
	if err != nil {
		t.Fatalf("ClaimSweep error: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to be rejected")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
