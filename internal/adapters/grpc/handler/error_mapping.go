package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/guard-shifts/internal/core/confirmation"
	"github.com/ogurasousui/guard-shifts/internal/core/inbox"
	"github.com/ogurasousui/guard-shifts/internal/core/payroll"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errInvalidPayload),
		errors.Is(err, shift.ErrInvalidID),
		errors.Is(err, shift.ErrInvalidEventType),
		errors.Is(err, shift.ErrInvalidSource),
		errors.Is(err, shift.ErrInvalidTimestamp),
		errors.Is(err, shift.ErrInvalidCoordinates),
		errors.Is(err, shift.ErrInvalidConfirmationStatus),
		errors.Is(err, shift.ErrInvalidDate),
		errors.Is(err, payroll.ErrInvalidShiftID),
		errors.Is(err, payroll.ErrInvalidOperatorID),
		errors.Is(err, payroll.ErrInvalidPeriodKey),
		errors.Is(err, confirmation.ErrInvalidAsOf),
		errors.Is(err, inbox.ErrInvalidSender):
		return status.Error(codes.InvalidArgument, err.Error())
	case shift.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, shift.ErrInvalidState),
		errors.Is(err, shift.ErrUnassignedOperator),
		errors.Is(err, payroll.ErrNoPayee),
		errors.Is(err, inbox.ErrNoActiveShift):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
