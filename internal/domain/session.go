package domain

import "time"

// SessionStatus represents the status of a tutoring session
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is the finalized session record of a confirmed booking
type Session struct {
	ID        int64
	BookingID int64
	StartTime time.Time
	EndTime   time.Time
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewScheduledSession builds a scheduled session for the booking window
func NewScheduledSession(b *Booking) *Session {
	return &Session{
		BookingID: b.ID,
		StartTime: b.RequestedStart,
		EndTime:   b.RequestedEnd,
		Status:    SessionScheduled,
	}
}
