package create_booking

import (
	"context"

	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
)

type AllocationEngine interface {
	Allocate(ctx context.Context, draft *allocation.Draft) (*allocation.Result, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
