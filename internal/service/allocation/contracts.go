package allocation

import (
	"context"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/integrations/catalogservice"
)

// AllocationEngine операции движка распределения бронирований
type AllocationEngine interface {
	Allocate(ctx context.Context, draft *Draft) (*Result, error)
	Claim(ctx context.Context, bookingID, tutorUserID int64) (*domain.Booking, error)
	Reassign(ctx context.Context, bookingID, tutorID int64) (*domain.Booking, error)
	OpenBookings(ctx context.Context, tutorUserID int64) ([]*domain.Booking, error)
}

// CommitmentReader bulk-запрос занятости преподавателей
type CommitmentReader interface {
	GetCommitmentsForTutors(ctx context.Context, filter domain.CommitmentFilter) ([]domain.Commitment, error)
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	CommitmentReader
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	Assign(ctx context.Context, params domain.AssignParams) (*domain.Booking, error)
	AppendNote(ctx context.Context, id int64, line string) error
	GetOpen(ctx context.Context, filter domain.OpenBookingsFilter) ([]*domain.Booking, error)
}

// LoadCounter считает будущую нагрузку преподавателей (для LoadSelector)
type LoadCounter interface {
	CountUpcomingByTutors(ctx context.Context, tutorIDs []int64, from time.Time) (map[int64]int, error)
}

// TutorRepository интерфейс репозитория преподавателей
type TutorRepository interface {
	GetEligible(ctx context.Context, subjectID int64) ([]*domain.Tutor, error)
	GetByID(ctx context.Context, id int64) (*domain.Tutor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Tutor, error)
	LockByID(ctx context.Context, id int64) (*domain.Tutor, error)
}

// StudentRepository интерфейс репозитория учеников
type StudentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Student, error)
}

// SessionRepository интерфейс репозитория занятий
type SessionRepository interface {
	Upsert(ctx context.Context, session *domain.Session) (*domain.Session, error)
}

// CatalogReader проверка существования сущностей каталога
type CatalogReader interface {
	GetSubject(ctx context.Context, subjectID int64) (*catalogservice.Subject, error)
	GetPackage(ctx context.Context, packageID int64) (*catalogservice.Package, error)
	GetCurriculum(ctx context.Context, curriculumID int64) (*catalogservice.Curriculum, error)
}

// Notifier доставка уведомлений, best-effort; ошибки доставки не возвращаются.
// Возвращает получателей, которых не удалось поставить в доставку
type Notifier interface {
	Notify(ctx context.Context, recipients []domain.Recipient, event domain.EventType, payload map[string]any) []domain.Recipient
}

// BroadcastGuard отметки "приглашение уже отправлено" по паре (бронирование, преподаватель)
type BroadcastGuard interface {
	MarkNotified(ctx context.Context, bookingID, tutorID int64) (bool, error)
	Forget(ctx context.Context, bookingID, tutorID int64) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчики исходов распределения
type Metrics interface {
	IncAllocationOutcome(reason string)
	IncCommit(mode, result string)
	IncClaim(result string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
