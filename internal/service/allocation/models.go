package allocation

import (
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Draft входные данные для создания бронирования
type Draft struct {
	Caller       domain.Caller
	StudentID    int64
	SubjectID    int64
	PackageID    int64
	CurriculumID int64
	Start        time.Time
	End          time.Time
	Note         *string
}

// Result итог распределения: бронирование и объяснение, почему оно в этом статусе
type Result struct {
	Booking  *domain.Booking
	Assigned bool
	Reason   string // domain.ReasonAssigned | ReasonNoEligibleTutor | ReasonAllBusy | ReasonConflictsExhausted
}

// CommitMode путь, по которому пришёл коммит
type CommitMode string

const (
	ModeAllocate CommitMode = "allocate"
	ModeClaim    CommitMode = "claim"
	ModeReassign CommitMode = "reassign"
)

// expectedStatuses статусы, из которых разрешено назначение в этом режиме
func (m CommitMode) expectedStatuses() []domain.BookingStatus {
	if m == ModeReassign {
		return []domain.BookingStatus{domain.StatusRequested, domain.StatusConfirmed}
	}
	return []domain.BookingStatus{domain.StatusRequested}
}

// Options настройки движка
type Options struct {
	MaxCommitAttempts int
	// RequestedBlocks: requested-бронирования учитываются при проверке занятости
	RequestedBlocks bool
	// OpenBookingsLimit ограничение выдачи открытых заявок (0 - без ограничения)
	OpenBookingsLimit uint64
}

// DefaultOptions настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		MaxCommitAttempts: domain.DefaultMaxCommitAttempts,
		RequestedBlocks:   true,
		OpenBookingsLimit: 200,
	}
}

// Результаты коммита для метрик
const (
	resultCommitted = "committed"
	resultConflict  = "conflict"
	resultClosed    = "closed"
	resultError     = "error"
)
