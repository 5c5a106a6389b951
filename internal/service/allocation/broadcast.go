package allocation

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Broadcaster рассылает приглашение забрать бронирование всем подходящим преподавателям
type Broadcaster struct {
	bookings     BookingRepository
	guard        BroadcastGuard
	notifier     Notifier
	timeProvider TimeProvider
	logger       Logger
}

// NewBroadcaster создает новый экземпляр рассыльщика
func NewBroadcaster(bookings BookingRepository, guard BroadcastGuard, notifier Notifier, logger Logger) *Broadcaster {
	return &Broadcaster{
		bookings:     bookings,
		guard:        guard,
		notifier:     notifier,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Broadcast уведомляет каждого преподавателя из tutors не более одного раза на бронирование
// и дописывает итог в заметку. Возвращает число поставленных в доставку приглашений и строку заметки.
// Приглашения, не принятые в доставку, снимаются с отметки и уйдут при следующей рассылке
func (b *Broadcaster) Broadcast(ctx context.Context, booking *domain.Booking, tutors []*domain.Tutor, reason string) (int, string) {
	recipients := make([]domain.Recipient, 0, len(tutors))
	tutorByUser := make(map[int64]int64, len(tutors))
	for _, t := range tutors {
		first, err := b.guard.MarkNotified(ctx, booking.ID, t.ID)
		if err != nil {
			// Повтор лучше, чем потерянное приглашение
			b.logger.Warn("Broadcast: guard failed for booking=%d, tutor=%d: %v", booking.ID, t.ID, err)
			first = true
		}
		if first {
			recipients = append(recipients, domain.Recipient{UserID: t.UserID})
			tutorByUser[t.UserID] = t.ID
		}
	}

	var dropped []domain.Recipient
	if len(recipients) > 0 {
		dropped = b.notifier.Notify(ctx, recipients, domain.EventBookingOpen, bookingPayload(booking))
	}
	for _, r := range dropped {
		tutorID := tutorByUser[r.UserID]
		if err := b.guard.Forget(ctx, booking.ID, tutorID); err != nil {
			b.logger.Warn("Broadcast: failed to release mark for booking=%d, tutor=%d: %v", booking.ID, tutorID, err)
		}
	}
	notified := len(recipients) - len(dropped)

	// Все уже получали приглашение: заметку не засоряем
	if len(tutors) > 0 && len(recipients) == 0 {
		return 0, ""
	}

	line := fmt.Sprintf("%s broadcast: %s, %d tutor(s) notified",
		b.timeProvider.Now().UTC().Format(domain.NoteTimeFormat), reason, notified)
	if len(dropped) > 0 {
		line += fmt.Sprintf(", %d deferred", len(dropped))
	}
	if err := b.bookings.AppendNote(ctx, booking.ID, line); err != nil {
		b.logger.Warn("Broadcast: failed to append note to booking=%d: %v", booking.ID, err)
	}

	b.logger.Info("Broadcast: booking=%d, reason=%s, eligible=%d, notified=%d, deferred=%d",
		booking.ID, reason, len(tutors), notified, len(dropped))

	return notified, line
}
