package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
	pgdb "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
)

const (
	testShiftID    = "44444444-4444-4444-4444-444444444444"
	testShopID     = "11111111-1111-1111-1111-111111111111"
	testOperatorID = "22222222-2222-2222-2222-222222222222"
	testAssignID   = "55555555-5555-5555-5555-555555555555"
)

var (
	shiftCols      = []string{"id", "shop_id", "shift_date", "start_at", "end_at", "unpaid_break_minutes", "status", "created_at", "updated_at", "name", "latitude", "longitude", "default_hourly_rate_cents", "rules_text"}
	assignmentCols = []string{"id", "shift_id", "operator_id", "confirmation", "created_at", "full_name", "phone", "telegram_chat_id", "hourly_rate_cents", "is_active"}
	eventCols      = []string{"id", "shift_id", "operator_id", "event_type", "source", "occurred_at", "latitude", "longitude", "created_at"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func shiftRow(status shift.Status) *pgxmock.Rows {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 10, 7, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(shiftCols).
		AddRow(testShiftID, testShopID, date, start, start.Add(8*time.Hour), 30, string(status), start, start,
			"Negozio Centro", 45.46, 9.19, int64(1400), "")
}

func TestShiftRepository_FindShift(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	checkIn := time.Date(2025, 6, 10, 7, 2, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(findShiftQuery)).
		WithArgs(testShiftID).
		WillReturnRows(shiftRow(shift.StatusInProgress))
	mock.ExpectQuery(regexp.QuoteMeta(assignmentsQuery)).
		WithArgs([]string{testShiftID}).
		WillReturnRows(pgxmock.NewRows(assignmentCols).
			AddRow(testAssignID, testShiftID, testOperatorID, "CONFIRMED", checkIn, "Mario Rossi", "+39333", int64(99), nil, true))
	mock.ExpectQuery(regexp.QuoteMeta(eventsQuery)).
		WithArgs([]string{testShiftID}).
		WillReturnRows(pgxmock.NewRows(eventCols).
			AddRow("66666666-6666-6666-6666-666666666666", testShiftID, testOperatorID, "CHECK_IN", "API", checkIn, 45.46, 9.19, checkIn).
			AddRow("77777777-7777-7777-7777-777777777777", testShiftID, testOperatorID, "BREAK_START", "MESSAGING", checkIn.Add(3*time.Hour), nil, nil, checkIn))

	found, err := repo.FindShift(context.Background(), testShiftID)
	if err != nil {
		t.Fatalf("FindShift returned error: %v", err)
	}

	if found.Status != shift.StatusInProgress || found.UnpaidBreakMinutes != 30 {
		t.Fatalf("unexpected shift: %+v", found)
	}
	if found.Shop == nil || found.Shop.DefaultHourlyRateCents == nil || *found.Shop.DefaultHourlyRateCents != 1400 {
		t.Fatalf("unexpected shop: %+v", found.Shop)
	}
	if len(found.Assignments) != 1 || found.Assignments[0].Operator.TelegramChatID != 99 || found.Assignments[0].Operator.HourlyRateCents != nil {
		t.Fatalf("unexpected assignments: %+v", found.Assignments)
	}
	if len(found.Events) != 2 || found.Events[0].Coordinates == nil || found.Events[1].Coordinates != nil {
		t.Fatalf("unexpected events: %+v", found.Events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_FindShift_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	if _, err := repo.FindShift(context.Background(), "not-a-uuid"); !errors.Is(err, shift.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound for malformed id, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(findShiftQuery)).
		WithArgs(testShiftID).
		WillReturnRows(pgxmock.NewRows(shiftCols))

	if _, err := repo.FindShift(context.Background(), testShiftID); !errors.Is(err, shift.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_FindOperatorByPhone(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	mock.ExpectQuery(`FROM operators\s+WHERE phone = \$1`).
		WithArgs("+39333").
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "phone", "telegram_chat_id", "hourly_rate_cents", "is_active"}).
			AddRow(testOperatorID, "Mario Rossi", "+39333", nil, int64(1500), true))

	op, err := repo.FindOperatorByPhone(context.Background(), "+39333")
	if err != nil {
		t.Fatalf("FindOperatorByPhone returned error: %v", err)
	}
	if op.ID != testOperatorID || op.TelegramChatID != 0 || op.HourlyRateCents == nil || *op.HourlyRateCents != 1500 {
		t.Fatalf("unexpected operator: %+v", op)
	}

	mock.ExpectQuery(`FROM operators\s+WHERE phone = \$1`).
		WithArgs("+39000").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindOperatorByPhone(context.Background(), "+39000"); !errors.Is(err, shift.ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
}

func TestShiftRepository_ListShifts_BuildsFilter(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.shift_date >= $1 AND s.shift_date <= $2 AND s.status = ANY($3) AND EXISTS (SELECT 1 FROM shift_assignments fa WHERE fa.shift_id = s.id AND fa.operator_id = $4)`)).
		WithArgs(from, to, []string{"PLANNED", "IN_PROGRESS"}, testOperatorID).
		WillReturnRows(shiftRow(shift.StatusPlanned))
	mock.ExpectQuery(regexp.QuoteMeta(assignmentsQuery)).
		WithArgs([]string{testShiftID}).
		WillReturnRows(pgxmock.NewRows(assignmentCols).
			AddRow(testAssignID, testShiftID, testOperatorID, "PENDING", from, "Mario Rossi", "+39333", nil, nil, true))

	shifts, err := repo.ListShifts(context.Background(), shift.ListShiftsFilter{
		From:       from,
		To:         to,
		OperatorID: testOperatorID,
		Statuses:   []shift.Status{shift.StatusPlanned, shift.StatusInProgress},
	})
	if err != nil {
		t.Fatalf("ListShifts returned error: %v", err)
	}
	if len(shifts) != 1 || len(shifts[0].Assignments) != 1 {
		t.Fatalf("unexpected shifts: %+v", shifts)
	}
	if shifts[0].Assignments[0].Confirmation != shift.ConfirmationPending {
		t.Fatalf("unexpected confirmation: %s", shifts[0].Assignments[0].Confirmation)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_ListShifts_EmptySkipsAssignments(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	mock.ExpectQuery(`ORDER BY s\.start_at, s\.id`).
		WillReturnRows(pgxmock.NewRows(shiftCols))

	shifts, err := repo.ListShifts(context.Background(), shift.ListShiftsFilter{})
	if err != nil {
		t.Fatalf("ListShifts returned error: %v", err)
	}
	if len(shifts) != 0 {
		t.Fatalf("expected no shifts, got %d", len(shifts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_AppendAttendanceEvent(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	ts := time.Date(2025, 6, 10, 7, 2, 0, 0, time.UTC)
	event := &shift.AttendanceEvent{
		ID:          "66666666-6666-6666-6666-666666666666",
		ShiftID:     testShiftID,
		OperatorID:  testOperatorID,
		EventType:   shift.EventCheckIn,
		Source:      shift.SourceMessaging,
		Timestamp:   ts,
		Coordinates: &shift.Coordinates{Latitude: 45.46, Longitude: 9.19},
		CreatedAt:   ts,
	}

	mock.ExpectQuery(regexp.QuoteMeta(insertEventQuery)).
		WithArgs(event.ID, testShiftID, testOperatorID, "CHECK_IN", "MESSAGING", ts, 45.46, 9.19, ts).
		WillReturnRows(pgxmock.NewRows(eventCols).
			AddRow(event.ID, testShiftID, testOperatorID, "CHECK_IN", "MESSAGING", ts, 45.46, 9.19, ts))

	created, err := repo.AppendAttendanceEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("AppendAttendanceEvent returned error: %v", err)
	}
	if created.Source != shift.SourceMessaging || created.Coordinates == nil {
		t.Fatalf("unexpected event: %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_UpdatesReportMissingRows(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shifts SET status = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("CANCELLED", now, testShiftID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shift_assignments SET confirmation = $1 WHERE id = $2`)).
		WithArgs("DECLINED", testAssignID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateShiftStatus(context.Background(), testShiftID, shift.StatusCancelled, now); !errors.Is(err, shift.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}
	if err := repo.SetAssignmentConfirmation(context.Background(), testAssignID, shift.ConfirmationDeclined); !errors.Is(err, shift.ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_LockShiftWithinTransaction(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)
	tm := pgdb.NewTransactionManager(mock)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("shift:" + testShiftID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		return repo.LockShift(ctx, testShiftID)
	})
	if err != nil {
		t.Fatalf("LockShift returned error: %v", err)
	}

	if err := repo.LockShift(context.Background(), testShiftID); !errors.Is(err, pgdb.ErrNoTransaction) {
		t.Fatalf("expected ErrNoTransaction outside a transaction, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranslateShiftPgError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "operator fk", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "attendance_events_operator_id_fkey"}, want: shift.ErrOperatorNotFound},
		{name: "shift fk", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "attendance_events_shift_id_fkey"}, want: shift.ErrShiftNotFound},
		{name: "coordinates check", err: &pgconn.PgError{Code: checkViolationCode, ConstraintName: "attendance_events_coordinates_pair"}, want: shift.ErrInvalidCoordinates},
		{name: "malformed uuid", err: &pgconn.PgError{Code: invalidTextCode, Message: "invalid input syntax for type uuid"}, want: shift.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := translateShiftPgError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	otherErr := errors.New("random")
	if translateShiftPgError(otherErr) != otherErr {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestShiftRepository_OperatorChatLink(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := NewShiftRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE operators SET telegram_chat_id = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs(int64(9001), testOperatorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`FROM operators\s+WHERE telegram_chat_id = \$1`).
		WithArgs(int64(9001)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "phone", "telegram_chat_id", "hourly_rate_cents", "is_active"}).
			AddRow(testOperatorID, "Mario Rossi", "+39333", int64(9001), nil, true))

	if err := repo.SetOperatorChatID(context.Background(), testOperatorID, 9001); err != nil {
		t.Fatalf("SetOperatorChatID returned error: %v", err)
	}

	op, err := repo.FindOperatorByChatID(context.Background(), 9001)
	if err != nil {
		t.Fatalf("FindOperatorByChatID returned error: %v", err)
	}
	if op.TelegramChatID != 9001 {
		t.Fatalf("unexpected chat id: %d", op.TelegramChatID)
	}

	if _, err := repo.FindOperatorByChatID(context.Background(), 0); !errors.Is(err, shift.ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound for zero chat, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
