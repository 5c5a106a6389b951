package reassign_booking

import (
	"context"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

type AllocationEngine interface {
	Reassign(ctx context.Context, bookingID, tutorID int64) (*domain.Booking, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
