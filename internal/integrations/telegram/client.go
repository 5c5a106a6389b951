package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// ErrSend возвращается, если Telegram не принял сообщение
var ErrSend = errors.New("telegram client: failed to send message")

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Client отправляет уведомления о бронированиях в Telegram
type Client struct {
	sender messageSender
}

// NewClient создаёт клиента бота; getMe при старте не вызывается
func NewClient(token string) (*Client, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Client{sender: b}, nil
}

// Send отправляет текст события в чат пользователя
func (c *Client) Send(ctx context.Context, chatID int64, event domain.EventType, payload map[string]any) error {
	_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      FormatMessage(event, payload),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("%w: chat_id=%d: %v", ErrSend, chatID, err)
	}
	return nil
}

// FormatMessage текст уведомления для события
func FormatMessage(event domain.EventType, payload map[string]any) string {
	bookingID := payload["booking_id"]
	start := html.EscapeString(fmt.Sprint(payload["start"]))

	switch event {
	case domain.EventBookingAssigned:
		return fmt.Sprintf("📚 <b>Вам назначено занятие</b>\nБронирование #%v\nНачало: %s", bookingID, start)
	case domain.EventBookingConfirmed:
		return fmt.Sprintf("✅ <b>Занятие подтверждено</b>\nБронирование #%v\nНачало: %s", bookingID, start)
	case domain.EventBookingOpen:
		return fmt.Sprintf("🔔 <b>Новая заявка ждёт преподавателя</b>\nБронирование #%v\nНачало: %s\nЗаберите её в списке доступных заявок", bookingID, start)
	case domain.EventBookingReassigned:
		return fmt.Sprintf("↪️ <b>Занятие передано другому преподавателю</b>\nБронирование #%v", bookingID)
	default:
		return fmt.Sprintf("Обновление по бронированию #%v", bookingID)
	}
}
