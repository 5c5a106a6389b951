package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusRequested BookingStatus = "requested"
	StatusConfirmed BookingStatus = "confirmed"
	StatusArchived  BookingStatus = "archived"
	StatusCancelled BookingStatus = "cancelled"
)

var (
	// ErrInvariantViolated возвращается, когда бронирование нарушает инвариант назначения
	ErrInvariantViolated = errors.New("domain: booking assignment invariant violated")
)

// Booking represents one request for a tutoring slot for one (student, subject) pair
type Booking struct {
	ID             int64
	StudentID      int64
	SubjectID      int64
	PackageID      int64 // opaque to the allocation engine
	CurriculumID   int64 // opaque to the allocation engine
	RequestedStart time.Time
	RequestedEnd   time.Time

	// AssignedTutorID is written only by the committer
	AssignedTutorID *int64
	Status          BookingStatus

	// Note is an append-only audit trail of allocation decisions
	Note *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the requested [start, end) interval
func (b *Booking) Window() TimeWindow {
	return TimeWindow{Start: b.RequestedStart, End: b.RequestedEnd}
}

// IsOpen returns true if the booking is waiting for a tutor
func (b *Booking) IsOpen() bool {
	return b.Status == StatusRequested && b.AssignedTutorID == nil
}

// IsClosed returns true if the booking reached a terminal state for the engine
func (b *Booking) IsClosed() bool {
	return b.Status == StatusArchived || b.Status == StatusCancelled
}

// IsConfirmed returns true if the booking has an assigned tutor
func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

// IsAssignedTo returns true if the booking is assigned to the given tutor
func (b *Booking) IsAssignedTo(tutorID int64) bool {
	return b.AssignedTutorID != nil && *b.AssignedTutorID == tutorID
}

// Validate checks the assignment invariant for live bookings:
// assigned tutor set <=> status confirmed, confirmed requires a valid window.
// Closed bookings keep the tutor they had as history.
func (b *Booking) Validate() error {
	if b.AssignedTutorID != nil && b.Status == StatusRequested {
		return fmt.Errorf("%w: tutor assigned but status is %s", ErrInvariantViolated, b.Status)
	}
	if b.Status == StatusConfirmed {
		if b.AssignedTutorID == nil {
			return fmt.Errorf("%w: confirmed without tutor", ErrInvariantViolated)
		}
		if b.RequestedStart.IsZero() || b.RequestedEnd.IsZero() {
			return fmt.Errorf("%w: confirmed without time window", ErrInvariantViolated)
		}
	}
	return nil
}

// NoteLines returns the audit trail split into entries
func (b *Booking) NoteLines() []string {
	if b.Note == nil || *b.Note == "" {
		return nil
	}
	return strings.Split(*b.Note, "\n")
}

// AppendNote appends a line to an append-only note
func AppendNote(note *string, line string) *string {
	if note == nil || *note == "" {
		result := line
		return &result
	}
	result := *note + "\n" + line
	return &result
}

// CommitmentStatuses statuses that block a tutor's time for overlap purposes
// requested is included by default: a requested booking may be committed concurrently
var CommitmentStatuses = []BookingStatus{
	StatusConfirmed,
	StatusRequested,
}

// ConfirmedOnlyStatuses statuses used when requested bookings do not block
var ConfirmedOnlyStatuses = []BookingStatus{
	StatusConfirmed,
}

// FinalStatuses statuses that are never changed by the archival sweep
var FinalStatuses = []BookingStatus{
	StatusArchived,
	StatusCancelled,
}

// Commitment is a tutor's time-blocking obligation derived from a booking
type Commitment struct {
	BookingID int64
	TutorID   int64
	Window    TimeWindow
	Status    BookingStatus
}

// CommitmentFilter фильтр для bulk-запроса занятости преподавателей
type CommitmentFilter struct {
	TutorIDs         []int64         // Обязательный параметр
	Window           TimeWindow      // Проверяемый интервал [start, end)
	Statuses         []BookingStatus // Статусы, блокирующие время
	ExcludeBookingID *int64          // Исключить бронирование (при переназначении)
}

// AssignParams параметры назначения преподавателя на бронирование
type AssignParams struct {
	BookingID        int64
	TutorID          int64
	ExpectedStatuses []BookingStatus // Назначение выполняется только из этих статусов
	NoteLine         string
}

// OpenBookingsFilter фильтр открытых (не назначенных) бронирований
type OpenBookingsFilter struct {
	SubjectIDs []int64   // nil - все предметы
	From       time.Time // Только бронирования, начинающиеся после этого момента
	Limit      uint64    // 0 - без ограничения
}

// BookingsFilter фильтр для read-only выборок бронирований
type BookingsFilter struct {
	StudentIDs []int64
	TutorID    *int64
	Status     *BookingStatus
}
