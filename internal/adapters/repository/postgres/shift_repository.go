package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
	pgdb "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
)

const shiftSelect = `
        SELECT s.id, s.shop_id, s.shift_date, s.start_at, s.end_at, s.unpaid_break_minutes, s.status, s.created_at, s.updated_at,
               sh.name, sh.latitude, sh.longitude, sh.default_hourly_rate_cents, sh.rules_text
          FROM shifts s
          JOIN shops sh ON sh.id = s.shop_id`

const findShiftQuery = shiftSelect + `
         WHERE s.id = $1
         LIMIT 1
    `

const assignmentsQuery = `
        SELECT a.id, a.shift_id, a.operator_id, a.confirmation, a.created_at,
               o.full_name, o.phone, o.telegram_chat_id, o.hourly_rate_cents, o.is_active
          FROM shift_assignments a
          JOIN operators o ON o.id = a.operator_id
         WHERE a.shift_id = ANY($1)
         ORDER BY a.created_at, a.id
    `

const eventsQuery = `
        SELECT id, shift_id, operator_id, event_type, source, occurred_at, latitude, longitude, created_at
          FROM attendance_events
         WHERE shift_id = ANY($1)
         ORDER BY occurred_at, created_at, id
    `

const operatorSelect = `
        SELECT id, full_name, phone, telegram_chat_id, hourly_rate_cents, is_active
          FROM operators`

const insertEventQuery = `
        INSERT INTO attendance_events (id, shift_id, operator_id, event_type, source, occurred_at, latitude, longitude, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, shift_id, operator_id, event_type, source, occurred_at, latitude, longitude, created_at
    `

// ShiftRepository は PostgreSQL を利用したシフト・勤怠の永続化の実装です。
type ShiftRepository struct {
	pool pgdb.Queryer
}

var _ shift.Repository = (*ShiftRepository)(nil)

// NewShiftRepository は ShiftRepository を生成します。
func NewShiftRepository(pool pgdb.Queryer) *ShiftRepository {
	return &ShiftRepository{pool: pool}
}

// FindShift は店舗・アサイン・勤怠ログを含むシフトを取得します。
func (r *ShiftRepository) FindShift(ctx context.Context, id string) (*shift.Shift, error) {
	if !isUUID(id) {
		return nil, shift.ErrShiftNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanShift(exec.QueryRow(ctx, findShiftQuery, id))
	if err != nil {
		return nil, translateShiftPgError(err)
	}

	shifts := []*shift.Shift{found}
	if err := attachAssignments(ctx, exec, shifts); err != nil {
		return nil, err
	}
	if err := attachEvents(ctx, exec, shifts); err != nil {
		return nil, err
	}
	return found, nil
}

// FindOperator は ID で警備員を取得します。
func (r *ShiftRepository) FindOperator(ctx context.Context, id string) (*shift.Operator, error) {
	if !isUUID(id) {
		return nil, shift.ErrOperatorNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	op, err := scanOperator(exec.QueryRow(ctx, operatorSelect+`
         WHERE id = $1
         LIMIT 1
    `, id))
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return op, nil
}

// FindOperatorByPhone は電話番号で警備員を取得します。
func (r *ShiftRepository) FindOperatorByPhone(ctx context.Context, phone string) (*shift.Operator, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	op, err := scanOperator(exec.QueryRow(ctx, operatorSelect+`
         WHERE phone = $1
         LIMIT 1
    `, phone))
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return op, nil
}

// FindOperatorByChatID はメッセージチャネルのチャット ID で警備員を取得します。
func (r *ShiftRepository) FindOperatorByChatID(ctx context.Context, chatID int64) (*shift.Operator, error) {
	if chatID == 0 {
		return nil, shift.ErrOperatorNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	op, err := scanOperator(exec.QueryRow(ctx, operatorSelect+`
         WHERE telegram_chat_id = $1
         LIMIT 1
    `, chatID))
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return op, nil
}

// SetOperatorChatID は警備員にチャット ID を紐付けます。
func (r *ShiftRepository) SetOperatorChatID(ctx context.Context, operatorID string, chatID int64) error {
	if !isUUID(operatorID) {
		return shift.ErrOperatorNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE operators SET telegram_chat_id = $1, updated_at = NOW() WHERE id = $2`, chatID, operatorID)
	if err != nil {
		return translateShiftPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrOperatorNotFound
	}
	return nil
}

// FindShop は ID で店舗を取得します。
func (r *ShiftRepository) FindShop(ctx context.Context, id string) (*shift.Shop, error) {
	if !isUUID(id) {
		return nil, shift.ErrShopNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, latitude, longitude, default_hourly_rate_cents, rules_text
          FROM shops
         WHERE id = $1
         LIMIT 1
    `, id)

	var (
		shop     shift.Shop
		lat, lon sql.NullFloat64
		rate     sql.NullInt64
	)
	if err := row.Scan(&shop.ID, &shop.Name, &lat, &lon, &rate, &shop.RulesText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shift.ErrShopNotFound
		}
		return nil, translateShiftPgError(err)
	}
	shop.Latitude = nullableFloat(lat)
	shop.Longitude = nullableFloat(lon)
	shop.DefaultHourlyRateCents = nullableInt(rate)
	return &shop, nil
}

// AppendAttendanceEvent は勤怠イベントを追記します。
func (r *ShiftRepository) AppendAttendanceEvent(ctx context.Context, e *shift.AttendanceEvent) (*shift.AttendanceEvent, error) {
	var lat, lon any
	if e.Coordinates != nil {
		lat, lon = e.Coordinates.Latitude, e.Coordinates.Longitude
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	created, err := scanEvent(exec.QueryRow(ctx, insertEventQuery,
		e.ID, e.ShiftID, e.OperatorID, string(e.EventType), string(e.Source), e.Timestamp, lat, lon, e.CreatedAt))
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return created, nil
}

// UpdateShiftStatus はシフトの状態を更新します。
func (r *ShiftRepository) UpdateShiftStatus(ctx context.Context, id string, status shift.Status, updatedAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE shifts SET status = $1, updated_at = $2 WHERE id = $3`, string(status), updatedAt, id)
	if err != nil {
		return translateShiftPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrShiftNotFound
	}
	return nil
}

// SetAssignmentConfirmation はアサインの出勤確認状態を更新します。
func (r *ShiftRepository) SetAssignmentConfirmation(ctx context.Context, assignmentID string, status shift.ConfirmationStatus) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE shift_assignments SET confirmation = $1 WHERE id = $2`, string(status), assignmentID)
	if err != nil {
		return translateShiftPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrAssignmentNotFound
	}
	return nil
}

// ListShifts は条件に合うシフトをアサイン付きで開始時刻順に返します。勤怠ログは含みません。
func (r *ShiftRepository) ListShifts(ctx context.Context, filter shift.ListShiftsFilter) ([]*shift.Shift, error) {
	if filter.OperatorID != "" && !isUUID(filter.OperatorID) {
		return nil, nil
	}

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 4)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !filter.From.IsZero() {
		conditions = append(conditions, "s.shift_date >= "+next(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "s.shift_date <= "+next(filter.To))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		conditions = append(conditions, "s.status = ANY("+next(statuses)+")")
	}
	if filter.OperatorID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM shift_assignments fa WHERE fa.shift_id = s.id AND fa.operator_id = "+next(filter.OperatorID)+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = `
         WHERE ` + strings.Join(conditions, " AND ")
	}

	query := shiftSelect + whereClause + `
         ORDER BY s.start_at, s.id
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	defer rows.Close()

	var shifts []*shift.Shift
	for rows.Next() {
		found, err := scanShift(rows)
		if err != nil {
			return nil, translateShiftPgError(err)
		}
		shifts = append(shifts, found)
	}
	if err := rows.Err(); err != nil {
		return nil, translateShiftPgError(err)
	}

	if err := attachAssignments(ctx, exec, shifts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// LockShift は現在のトランザクションでシフト単位の advisory lock を取得します。
func (r *ShiftRepository) LockShift(ctx context.Context, id string) error {
	return pgdb.AdvisoryXactLock(ctx, "shift:"+id)
}

func attachAssignments(ctx context.Context, exec pgdb.Queryer, shifts []*shift.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	byID, ids := indexShifts(shifts)

	rows, err := exec.Query(ctx, assignmentsQuery, ids)
	if err != nil {
		return translateShiftPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a      shift.Assignment
			op     shift.Operator
			conf   string
			chatID sql.NullInt64
			rate   sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.ShiftID, &a.OperatorID, &conf, &a.CreatedAt,
			&op.FullName, &op.Phone, &chatID, &rate, &op.IsActive); err != nil {
			return translateShiftPgError(err)
		}
		op.ID = a.OperatorID
		op.TelegramChatID = chatID.Int64
		op.HourlyRateCents = nullableInt(rate)
		a.Confirmation = shift.ConfirmationStatus(conf)
		a.Operator = &op

		if sh, ok := byID[a.ShiftID]; ok {
			sh.Assignments = append(sh.Assignments, &a)
		}
	}
	if err := rows.Err(); err != nil {
		return translateShiftPgError(err)
	}
	return nil
}

func attachEvents(ctx context.Context, exec pgdb.Queryer, shifts []*shift.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	byID, ids := indexShifts(shifts)

	rows, err := exec.Query(ctx, eventsQuery, ids)
	if err != nil {
		return translateShiftPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return translateShiftPgError(err)
		}
		if sh, ok := byID[e.ShiftID]; ok {
			sh.Events = append(sh.Events, e)
		}
	}
	if err := rows.Err(); err != nil {
		return translateShiftPgError(err)
	}
	return nil
}

func indexShifts(shifts []*shift.Shift) (map[string]*shift.Shift, []string) {
	byID := make(map[string]*shift.Shift, len(shifts))
	ids := make([]string, 0, len(shifts))
	for _, sh := range shifts {
		byID[sh.ID] = sh
		ids = append(ids, sh.ID)
	}
	return byID, ids
}

func scanShift(row pgx.Row) (*shift.Shift, error) {
	var (
		sh       shift.Shift
		shop     shift.Shop
		status   string
		lat, lon sql.NullFloat64
		rate     sql.NullInt64
	)

	if err := row.Scan(&sh.ID, &sh.ShopID, &sh.Date, &sh.StartAt, &sh.EndAt, &sh.UnpaidBreakMinutes, &status, &sh.CreatedAt, &sh.UpdatedAt,
		&shop.Name, &lat, &lon, &rate, &shop.RulesText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shift.ErrShiftNotFound
		}
		return nil, err
	}

	shop.ID = sh.ShopID
	shop.Latitude = nullableFloat(lat)
	shop.Longitude = nullableFloat(lon)
	shop.DefaultHourlyRateCents = nullableInt(rate)
	sh.Shop = &shop
	sh.Status = shift.Status(status)
	return &sh, nil
}

func scanOperator(row pgx.Row) (*shift.Operator, error) {
	var (
		op     shift.Operator
		chatID sql.NullInt64
		rate   sql.NullInt64
	)
	if err := row.Scan(&op.ID, &op.FullName, &op.Phone, &chatID, &rate, &op.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shift.ErrOperatorNotFound
		}
		return nil, err
	}
	op.TelegramChatID = chatID.Int64
	op.HourlyRateCents = nullableInt(rate)
	return &op, nil
}

func scanEvent(row pgx.Row) (*shift.AttendanceEvent, error) {
	var (
		e                 shift.AttendanceEvent
		eventType, source string
		lat, lon          sql.NullFloat64
	)
	if err := row.Scan(&e.ID, &e.ShiftID, &e.OperatorID, &eventType, &source, &e.Timestamp, &lat, &lon, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.EventType = shift.EventType(eventType)
	e.Source = shift.Source(source)
	if lat.Valid && lon.Valid {
		e.Coordinates = &shift.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &e, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
