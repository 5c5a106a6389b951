package bookings

import (
	"context"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByFilter(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error)
	Cancel(ctx context.Context, id int64, noteLine string) (*domain.Booking, error)
	ArchivePast(ctx context.Context, now time.Time) (int64, error)
}

// StudentRepository интерфейс репозитория учеников
type StudentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Student, error)
	GetByParentUserID(ctx context.Context, parentUserID int64) ([]*domain.Student, error)
}

// TutorRepository интерфейс репозитория преподавателей
type TutorRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Tutor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Tutor, error)
}

// SessionRepository интерфейс репозитория занятий
type SessionRepository interface {
	SetStatusByBooking(ctx context.Context, bookingID int64, status domain.SessionStatus) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчик архивации
type Metrics interface {
	AddArchived(n int64)
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now() }
