package claim_booking

import (
	"context"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

type AllocationEngine interface {
	Claim(ctx context.Context, bookingID, tutorUserID int64) (*domain.Booking, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
