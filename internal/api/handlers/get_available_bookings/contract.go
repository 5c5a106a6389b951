package get_available_bookings

import (
	"context"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

type AllocationEngine interface {
	OpenBookings(ctx context.Context, tutorUserID int64) ([]*domain.Booking, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
