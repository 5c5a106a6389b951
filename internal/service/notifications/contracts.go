package notifications

import (
	"context"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// NotificationRepository хранилище in-app уведомлений
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

// ContactRepository каналы связи пользователей
type ContactRepository interface {
	GetContact(ctx context.Context, userID int64) (*domain.Contact, error)
}

// TelegramSender отправка сообщений в Telegram
type TelegramSender interface {
	Send(ctx context.Context, chatID int64, event domain.EventType, payload map[string]any) error
}

// EventPublisher публикация доменных событий в шину
type EventPublisher interface {
	Publish(ctx context.Context, userID int64, event domain.EventType, payload map[string]any) error
}

// Metrics счётчики доставки по каналам
type Metrics interface {
	IncNotification(channel, result string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
