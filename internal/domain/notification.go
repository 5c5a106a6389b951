package domain

import "time"

// EventType type of a notification event
type EventType string

const (
	EventBookingAssigned   EventType = "booking_assigned"   // преподавателю: за ним закреплено занятие
	EventBookingConfirmed  EventType = "booking_confirmed"  // ученику и родителю: занятие подтверждено
	EventBookingOpen       EventType = "booking_open"       // рассылка преподавателям: бронирование ждёт преподавателя
	EventBookingReassigned EventType = "booking_reassigned" // прежнему преподавателю: занятие передано другому
)

// Recipient адресат уведомления
type Recipient struct {
	UserID int64
}

// Notification in-app notification stored for a user
type Notification struct {
	ID        int64
	UserID    int64
	Type      EventType
	Payload   map[string]any
	IsRead    bool
	CreatedAt time.Time
}

// Contact channels known for a user account
type Contact struct {
	UserID         int64
	TelegramChatID *int64
}

// HasTelegram returns true if messages can be delivered via Telegram
func (c *Contact) HasTelegram() bool {
	return c != nil && c.TelegramChatID != nil && *c.TelegramChatID != 0
}
