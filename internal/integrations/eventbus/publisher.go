package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// RoutingKeyPrefix префикс ключей маршрутизации, например tutoring.booking_assigned
const RoutingKeyPrefix = "tutoring."

// ErrPublish возвращается, если событие не удалось опубликовать
var ErrPublish = errors.New("eventbus: failed to publish event")

// Event конверт доменного события
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     int64          `json:"user_id"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует события бронирований в topic exchange RabbitMQ
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

// Publish отправляет событие для получателя; ключ маршрутизации tutoring.<event>
func (p *Publisher) Publish(ctx context.Context, userID int64, event domain.EventType, payload map[string]any) error {
	envelope := Event{
		ID:         uuid.NewString(),
		Type:       string(event),
		UserID:     userID,
		Payload:    payload,
		OccurredAt: p.now().UTC(),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPublish, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyPrefix+string(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.ID,
		Timestamp:    envelope.OccurredAt,
		Type:         envelope.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, event, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
