package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Каналы доставки
const (
	ChannelInApp    = "in_app"
	ChannelTelegram = "telegram"
	ChannelEventBus = "eventbus"
)

// Результаты доставки
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultDropped = "dropped"
)

// Options параметры пула доставки
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Channels каналы доставки; nil канал пропускается
type Channels struct {
	InApp    NotificationRepository
	Contacts ContactRepository
	Telegram TelegramSender
	EventBus EventPublisher
}

type job struct {
	ctx     context.Context
	userID  int64
	event   domain.EventType
	payload map[string]any
}

// Dispatcher асинхронно доставляет уведомления по всем каналам.
// Ошибки каналов считаются в метриках и логируются, наружу не возвращаются.
type Dispatcher struct {
	channels Channels
	opts     Options
	metrics  Metrics
	logger   Logger

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(channels Channels, opts Options, metrics Metrics, logger Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Dispatcher{
		channels: channels,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan job, opts.QueueSize),
	}
}

// Start запускает воркеры доставки
func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.queue {
				d.deliver(j)
			}
		}()
	}
}

// Close перестаёт принимать уведомления и дожидается доставки очереди
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

// Notify ставит уведомление каждому получателю в очередь и сразу возвращает управление.
// Переполненная или закрытая очередь отбрасывает уведомление; такие получатели возвращаются
func (d *Dispatcher) Notify(ctx context.Context, recipients []domain.Recipient, event domain.EventType, payload map[string]any) []domain.Recipient {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("Notify: dispatcher closed, %s dropped for %d recipients", event, len(recipients))
		return recipients
	}

	var dropped []domain.Recipient
	detached := context.WithoutCancel(ctx)
	for _, r := range recipients {
		select {
		case d.queue <- job{ctx: detached, userID: r.UserID, event: event, payload: payload}:
		default:
			d.metrics.IncNotification("queue", ResultDropped)
			d.logger.Error("Notify: queue full, %s dropped for user=%d", event, r.UserID)
			dropped = append(dropped, r)
		}
	}
	return dropped
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.Timeout)
	defer cancel()

	// 1. In-app уведомление
	if d.channels.InApp != nil {
		_, err := d.channels.InApp.Create(ctx, &domain.Notification{
			UserID:  j.userID,
			Type:    j.event,
			Payload: j.payload,
		})
		d.record(ChannelInApp, j, err)
	}

	// 2. Telegram, если у аккаунта есть чат
	if d.channels.Telegram != nil && d.channels.Contacts != nil {
		d.sendTelegram(ctx, j)
	}

	// 3. Событие в шину
	if d.channels.EventBus != nil {
		err := d.channels.EventBus.Publish(ctx, j.userID, j.event, j.payload)
		d.record(ChannelEventBus, j, err)
	}
}

func (d *Dispatcher) sendTelegram(ctx context.Context, j job) {
	contact, err := d.channels.Contacts.GetContact(ctx, j.userID)
	if err != nil {
		d.record(ChannelTelegram, j, err)
		return
	}
	if !contact.HasTelegram() {
		d.metrics.IncNotification(ChannelTelegram, ResultSkipped)
		return
	}

	err = d.channels.Telegram.Send(ctx, *contact.TelegramChatID, j.event, j.payload)
	d.record(ChannelTelegram, j, err)
}

func (d *Dispatcher) record(channel string, j job, err error) {
	if err != nil {
		d.metrics.IncNotification(channel, ResultFailed)
		d.logger.Error("deliver: %s %s for user=%d failed: %v", channel, j.event, j.userID, err)
		return
	}
	d.metrics.IncNotification(channel, ResultSent)
}
