package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/booking"
	tutorRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/tutor"
	"github.com/m04kA/SMC-TutoringService/pkg/txmanager"
)

// Committer атомарно назначает преподавателя на бронирование.
// Единственное место, где пишется AssignedTutorID и статус confirmed
type Committer struct {
	bookings     BookingRepository
	tutors       TutorRepository
	students     StudentRepository
	sessions     SessionRepository
	availability *Availability
	txManager    TransactionManager
	notifier     Notifier
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

// NewCommitter создает новый экземпляр коммиттера
func NewCommitter(
	bookings BookingRepository,
	tutors TutorRepository,
	students StudentRepository,
	sessions SessionRepository,
	availability *Availability,
	txManager TransactionManager,
	notifier Notifier,
	metrics Metrics,
	logger Logger,
) *Committer {
	return &Committer{
		bookings:     bookings,
		tutors:       tutors,
		students:     students,
		sessions:     sessions,
		availability: availability,
		txManager:    txManager,
		notifier:     notifier,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// commitOutcome данные, нужные после фиксации транзакции
type commitOutcome struct {
	booking       *domain.Booking
	tutor         *domain.Tutor
	previousTutor *int64
	unchanged     bool
}

// Commit назначает tutorID на bookingID.
// Возвращает ErrConflict, если бронирование уже назначено или у преподавателя пересечение,
// ErrBookingClosed для закрытых бронирований
func (c *Committer) Commit(ctx context.Context, bookingID, tutorID int64, mode CommitMode) (*domain.Booking, error) {
	var outcome commitOutcome

	// 1. Проверка и запись в одной сериализуемой транзакции
	err := c.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		outcome = commitOutcome{}

		// 1.1. Блокируем строку бронирования
		booking, err := c.bookings.GetByIDForUpdate(txCtx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: failed to lock booking: %w", ErrInternal, err)
		}

		// 1.2. Проверяем статус
		if booking.IsClosed() {
			return fmt.Errorf("%w: booking id=%d is %s", ErrBookingClosed, booking.ID, booking.Status)
		}
		if mode != ModeReassign && !booking.IsOpen() {
			return fmt.Errorf("%w: booking id=%d is already %s", ErrConflict, booking.ID, booking.Status)
		}
		if mode == ModeReassign && booking.IsAssignedTo(tutorID) {
			outcome.booking = booking
			outcome.unchanged = true
			return nil
		}

		// 1.3. Блокируем преподавателя: параллельные коммиты на одного преподавателя идут по очереди
		tutor, err := c.tutors.LockByID(txCtx, tutorID)
		if err != nil {
			if errors.Is(err, tutorRepo.ErrTutorNotFound) {
				return ErrTutorNotFound
			}
			return fmt.Errorf("%w: failed to lock tutor: %w", ErrInternal, err)
		}
		if mode != ModeReassign && !tutor.IsEligibleFor(booking.SubjectID) {
			return fmt.Errorf("%w: tutor id=%d, subject id=%d", ErrNotEligible, tutor.ID, booking.SubjectID)
		}

		// 1.4. Повторная проверка занятости внутри транзакции
		busy, err := c.availability.IsBusy(txCtx, tutor.ID, booking.Window(), &booking.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}
		if busy {
			return fmt.Errorf("%w: tutor id=%d is busy at [%s, %s)", ErrConflict, tutor.ID,
				booking.RequestedStart.Format(domain.NoteTimeFormat), booking.RequestedEnd.Format(domain.NoteTimeFormat))
		}

		// 1.5. Назначаем с проверкой ожидаемого статуса
		updated, err := c.bookings.Assign(txCtx, domain.AssignParams{
			BookingID:        booking.ID,
			TutorID:          tutor.ID,
			ExpectedStatuses: mode.expectedStatuses(),
			NoteLine:         c.noteLine(mode, tutor.ID),
		})
		if err != nil {
			if errors.Is(err, bookingRepo.ErrStatusMismatch) {
				return fmt.Errorf("%w: booking id=%d changed concurrently", ErrConflict, booking.ID)
			}
			return fmt.Errorf("%w: failed to assign tutor: %w", ErrInternal, err)
		}

		// 1.6. Занятие для подтверждённого бронирования
		if _, err := c.sessions.Upsert(txCtx, domain.NewScheduledSession(updated)); err != nil {
			return fmt.Errorf("%w: failed to upsert session: %w", ErrInternal, err)
		}

		outcome.booking = updated
		outcome.tutor = tutor
		outcome.previousTutor = booking.AssignedTutorID
		return nil
	})

	// 2. Маппинг ошибок
	if err != nil {
		switch {
		case errors.Is(err, txmanager.ErrSerialization), txmanager.IsSerializationFailure(err):
			c.metrics.IncCommit(string(mode), resultConflict)
			c.logger.Warn("Commit: serialization conflict, booking=%d, tutor=%d, mode=%s", bookingID, tutorID, mode)
			return nil, fmt.Errorf("%w: concurrent commit on booking id=%d", ErrConflict, bookingID)
		case errors.Is(err, ErrConflict), errors.Is(err, ErrNotEligible):
			c.metrics.IncCommit(string(mode), resultConflict)
			c.logger.Info("Commit: booking=%d, tutor=%d, mode=%s rejected: %v", bookingID, tutorID, mode, err)
			return nil, err
		case errors.Is(err, ErrBookingClosed):
			c.metrics.IncCommit(string(mode), resultClosed)
			return nil, err
		case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrTutorNotFound):
			c.metrics.IncCommit(string(mode), resultError)
			return nil, err
		default:
			c.metrics.IncCommit(string(mode), resultError)
			c.logger.Error("Commit: booking=%d, tutor=%d, mode=%s failed: %v", bookingID, tutorID, mode, err)
			if errors.Is(err, ErrInternal) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	if outcome.unchanged {
		c.logger.Info("Commit: booking=%d already assigned to tutor=%d", bookingID, tutorID)
		return outcome.booking, nil
	}

	c.metrics.IncCommit(string(mode), resultCommitted)
	c.logger.Info("Commit: booking=%d assigned to tutor=%d, mode=%s", bookingID, tutorID, mode)

	// 3. Уведомления после фиксации, ошибки доставки не влияют на результат
	c.notifyCommitted(ctx, outcome, mode)

	return outcome.booking, nil
}

func (c *Committer) noteLine(mode CommitMode, tutorID int64) string {
	return fmt.Sprintf("%s %s: tutor %d assigned", c.timeProvider.Now().UTC().Format(domain.NoteTimeFormat), mode, tutorID)
}

func (c *Committer) notifyCommitted(ctx context.Context, outcome commitOutcome, mode CommitMode) {
	booking := outcome.booking
	payload := bookingPayload(booking)

	// Преподавателю
	c.notifier.Notify(ctx, []domain.Recipient{{UserID: outcome.tutor.UserID}}, domain.EventBookingAssigned, payload)

	// Ученику и родителю
	student, err := c.students.GetByID(ctx, booking.StudentID)
	if err != nil {
		c.logger.Warn("Commit: failed to load student id=%d for notification: %v", booking.StudentID, err)
	} else {
		recipients := make([]domain.Recipient, 0, 2)
		for _, userID := range student.StakeholderUserIDs() {
			recipients = append(recipients, domain.Recipient{UserID: userID})
		}
		c.notifier.Notify(ctx, recipients, domain.EventBookingConfirmed, payload)
	}

	// Прежнему преподавателю при переназначении
	if mode == ModeReassign && outcome.previousTutor != nil && *outcome.previousTutor != outcome.tutor.ID {
		previous, err := c.tutors.GetByID(ctx, *outcome.previousTutor)
		if err != nil {
			c.logger.Warn("Commit: failed to load previous tutor id=%d: %v", *outcome.previousTutor, err)
			return
		}
		c.notifier.Notify(ctx, []domain.Recipient{{UserID: previous.UserID}}, domain.EventBookingReassigned, payload)
	}
}

// bookingPayload данные бронирования для уведомлений
func bookingPayload(b *domain.Booking) map[string]any {
	payload := map[string]any{
		"booking_id":    b.ID,
		"student_id":    b.StudentID,
		"subject_id":    b.SubjectID,
		"package_id":    b.PackageID,
		"curriculum_id": b.CurriculumID,
		"start":         b.RequestedStart.UTC().Format(domain.NoteTimeFormat),
		"end":           b.RequestedEnd.UTC().Format(domain.NoteTimeFormat),
		"status":        string(b.Status),
	}
	if b.AssignedTutorID != nil {
		payload["tutor_id"] = *b.AssignedTutorID
	}
	return payload
}
