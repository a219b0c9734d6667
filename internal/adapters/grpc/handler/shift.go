package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/guard-shifts/internal/core/confirmation"
	"github.com/ogurasousui/guard-shifts/internal/core/message"
	"github.com/ogurasousui/guard-shifts/internal/core/payroll"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

// MessageNormalizer は返信テキストを分類します。
type MessageNormalizer interface {
	Normalize(text, senderPhone string) message.Intent
}

// ConfirmationSweeper は出勤確認の対象を抽出し、必要に応じて配信します。
type ConfirmationSweeper interface {
	Sweep(ctx context.Context, asOf time.Time) ([]confirmation.Request, error)
	Fire(ctx context.Context, firedAt time.Time) (*confirmation.Report, error)
}

// ShiftGrpcHandler は ShiftService の gRPC 実装です。
type ShiftGrpcHandler struct {
	shifts     shift.UseCase
	payroll    payroll.UseCase
	normalizer MessageNormalizer
	sweeper    ConfirmationSweeper
	now        func() time.Time
}

var _ ShiftServiceServer = (*ShiftGrpcHandler)(nil)

// NewShiftGrpcHandler は ShiftGrpcHandler を生成します。
func NewShiftGrpcHandler(shifts shift.UseCase, pay payroll.UseCase, normalizer MessageNormalizer, sweeper ConfirmationSweeper) *ShiftGrpcHandler {
	return &ShiftGrpcHandler{
		shifts:     shifts,
		payroll:    pay,
		normalizer: normalizer,
		sweeper:    sweeper,
		now:        time.Now,
	}
}

// RecordAttendance は勤怠イベントを記録します。
func (h *ShiftGrpcHandler) RecordAttendance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in, err := toRecordAttendanceInput(req)
	if err != nil {
		return nil, toStatusError(err)
	}

	event, err := h.shifts.RecordAttendance(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{"event": eventFields(event)})
}

// CalculatePay は給与明細を算出します。勤怠が揃っていない場合 calculated=false を返します。
func (h *ShiftGrpcHandler) CalculatePay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	shiftID, err := stringField(req, "shift_id")
	if err != nil {
		return nil, toStatusError(err)
	}

	item, err := h.payroll.CalculatePay(ctx, shiftID)
	if err != nil {
		return nil, toStatusError(err)
	}
	if item == nil {
		return newStruct(map[string]any{"calculated": false})
	}

	return newStruct(map[string]any{
		"calculated": true,
		"pay_item":   payItemFields(item),
	})
}

// CancelShift はシフトを取り消します。
func (h *ShiftGrpcHandler) CancelShift(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.applyShiftAction(ctx, req, h.shifts.CancelShift)
}

// CompleteShift はシフトを完了にします。
func (h *ShiftGrpcHandler) CompleteShift(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.applyShiftAction(ctx, req, h.shifts.CompleteShift)
}

func (h *ShiftGrpcHandler) applyShiftAction(ctx context.Context, req *structpb.Struct, action func(context.Context, string) (*shift.Shift, error)) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	shiftID, err := stringField(req, "shift_id")
	if err != nil {
		return nil, toStatusError(err)
	}

	updated, err := action(ctx, shiftID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{"shift": shiftFields(updated)})
}

// NormalizeMessage は返信テキストを分類します。
func (h *ShiftGrpcHandler) NormalizeMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	text, err := stringField(req, "text")
	if err != nil {
		return nil, toStatusError(err)
	}
	sender, err := stringField(req, "sender_phone")
	if err != nil {
		return nil, toStatusError(err)
	}

	intent := h.normalizer.Normalize(text, sender)
	fields := map[string]any{
		"kind":       intent.Kind.String(),
		"normalized": intent.Normalized,
	}
	if intent.Kind == message.KindAttendance {
		fields["event_type"] = string(intent.EventType)
		if c := intent.Coordinates; c != nil {
			fields["latitude"] = c.Latitude
			fields["longitude"] = c.Longitude
		}
	}
	return newStruct(fields)
}

// RunConfirmationSweep は出勤確認を手動で実行します。dry_run の場合は対象の抽出のみ行います。
func (h *ShiftGrpcHandler) RunConfirmationSweep(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if h.sweeper == nil {
		return nil, status.Error(codes.Unavailable, "confirmation sweep is disabled")
	}

	asOf, err := timeField(req, "as_of")
	if err != nil {
		return nil, toStatusError(err)
	}
	if asOf.IsZero() {
		asOf = h.now()
	}
	dryRun, err := boolField(req, "dry_run")
	if err != nil {
		return nil, toStatusError(err)
	}

	if dryRun {
		requests, err := h.sweeper.Sweep(ctx, asOf)
		if err != nil {
			return nil, toStatusError(err)
		}
		items := make([]any, 0, len(requests))
		for _, r := range requests {
			items = append(items, map[string]any{
				"shift_id":      r.ShiftID,
				"assignment_id": r.AssignmentID,
				"operator_id":   r.OperatorID,
				"start_at":      formatTime(r.StartAt),
				"text":          r.Text,
			})
		}
		return newStruct(map[string]any{"requests": items})
	}

	report, err := h.sweeper.Fire(ctx, asOf)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{
		"day":       report.Day.Format("2006-01-02"),
		"claimed":   report.Claimed,
		"requested": report.Requested,
		"delivered": report.Delivered,
		"failed":    report.Failed,
	})
}

// PaySummary は警備員の期間別支給合計を返します。
func (h *ShiftGrpcHandler) PaySummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	operatorID, err := stringField(req, "operator_id")
	if err != nil {
		return nil, toStatusError(err)
	}
	periodKey, err := stringField(req, "period_key")
	if err != nil {
		return nil, toStatusError(err)
	}

	summary, err := h.payroll.PaySummary(ctx, operatorID, periodKey)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(summary.Items))
	for _, item := range summary.Items {
		items = append(items, payItemFields(item))
	}
	return newStruct(map[string]any{
		"operator_id": summary.OperatorID,
		"period_key":  summary.PeriodKey,
		"total_cents": summary.TotalCents,
		"items":       items,
	})
}

func toRecordAttendanceInput(req *structpb.Struct) (shift.RecordAttendanceInput, error) {
	var in shift.RecordAttendanceInput
	var err error

	if in.ShiftID, err = stringField(req, "shift_id"); err != nil {
		return in, err
	}
	if in.OperatorID, err = stringField(req, "operator_id"); err != nil {
		return in, err
	}
	eventType, err := stringField(req, "event_type")
	if err != nil {
		return in, err
	}
	in.EventType = shift.EventType(eventType)

	source, err := stringField(req, "source")
	if err != nil {
		return in, err
	}
	in.Source = shift.Source(source)
	if in.Source == "" {
		in.Source = shift.SourceAPI
	}

	if in.Timestamp, err = timeField(req, "timestamp"); err != nil {
		return in, err
	}

	lat, hasLat, err := numberField(req, "latitude")
	if err != nil {
		return in, err
	}
	lon, hasLon, err := numberField(req, "longitude")
	if err != nil {
		return in, err
	}
	switch {
	case hasLat && hasLon:
		in.Coordinates = &shift.Coordinates{Latitude: lat, Longitude: lon}
	case hasLat || hasLon:
		return in, shift.ErrInvalidCoordinates
	}

	return in, nil
}

func eventFields(e *shift.AttendanceEvent) map[string]any {
	fields := map[string]any{
		"id":          e.ID,
		"shift_id":    e.ShiftID,
		"operator_id": e.OperatorID,
		"event_type":  string(e.EventType),
		"source":      string(e.Source),
		"timestamp":   formatTime(e.Timestamp),
	}
	if c := e.Coordinates; c != nil {
		fields["latitude"] = c.Latitude
		fields["longitude"] = c.Longitude
	}
	return fields
}

func shiftFields(s *shift.Shift) map[string]any {
	return map[string]any{
		"id":                   s.ID,
		"shop_id":              s.ShopID,
		"date":                 s.Date.Format("2006-01-02"),
		"start_at":             formatTime(s.StartAt),
		"end_at":               formatTime(s.EndAt),
		"unpaid_break_minutes": s.UnpaidBreakMinutes,
		"status":               string(s.Status),
		"updated_at":           formatTime(s.UpdatedAt),
	}
}

func payItemFields(p *payroll.PayItem) map[string]any {
	snap := p.Snapshot
	return map[string]any{
		"id":              p.ID,
		"shift_id":        p.ShiftID,
		"operator_id":     p.OperatorID,
		"payable_minutes": p.PayableMinutes,
		"rate_cents":      p.RateCents,
		"total_cents":     p.TotalCents,
		"period_key":      p.PeriodKey,
		"created_at":      formatTime(p.CreatedAt),
		"snapshot": map[string]any{
			"method":               snap.Method,
			"gross_minutes":        snap.GrossMinutes,
			"unpaid_break_minutes": snap.UnpaidBreakMinutes,
			"payable_minutes":      snap.PayableMinutes,
			"period_key":           snap.PeriodKey,
			"shift_date":           snap.ShiftDate,
			"check_in_at":          formatTime(snap.CheckInAt),
			"check_out_at":         formatTime(snap.CheckOutAt),
			"rate_cents":           snap.RateCents,
			"rate_source":          string(snap.RateSource),
			"total_cents":          snap.TotalCents,
		},
	}
}
