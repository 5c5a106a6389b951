package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/booking"
	studentRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/student"
	tutorRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/tutor"
	catalogClient "github.com/m04kA/SMC-TutoringService/internal/integrations/catalogservice"
)

// ReasonRebroadcast причина в заметке при повторной рассылке открытых бронирований
const ReasonRebroadcast = "rebroadcast"

// Engine движок распределения: создание с автоматическим назначением, claim, переназначение
type Engine struct {
	bookings     BookingRepository
	tutors       TutorRepository
	students     StudentRepository
	catalog      CatalogReader
	eligibility  *Eligibility
	availability *Availability
	selector     Selector
	committer    *Committer
	broadcaster  *Broadcaster
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
	opts         Options
}

var _ AllocationEngine = (*Engine)(nil)

// NewEngine создает новый экземпляр движка
func NewEngine(
	bookings BookingRepository,
	tutors TutorRepository,
	students StudentRepository,
	catalog CatalogReader,
	eligibility *Eligibility,
	availability *Availability,
	selector Selector,
	committer *Committer,
	broadcaster *Broadcaster,
	metrics Metrics,
	logger Logger,
	opts Options,
) *Engine {
	if opts.MaxCommitAttempts <= 0 {
		opts.MaxCommitAttempts = domain.DefaultMaxCommitAttempts
	}
	return &Engine{
		bookings:     bookings,
		tutors:       tutors,
		students:     students,
		catalog:      catalog,
		eligibility:  eligibility,
		availability: availability,
		selector:     selector,
		committer:    committer,
		broadcaster:  broadcaster,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		opts:         opts,
	}
}

// Allocate создаёт бронирование и пытается сразу назначить свободного преподавателя.
// Если назначить не удалось, бронирование остаётся requested и рассылается преподавателям
func (e *Engine) Allocate(ctx context.Context, draft *Draft) (*Result, error) {
	// 1. Валидация входных данных
	now := e.timeProvider.Now()
	if err := validateDraft(draft, now); err != nil {
		e.logger.Warn("Allocate: validation failed: %v", err)
		return nil, err
	}

	e.logger.Info("Allocate: caller=%d(%s), student=%d, subject=%d, window=[%s, %s)",
		draft.Caller.UserID, draft.Caller.Role, draft.StudentID, draft.SubjectID,
		draft.Start.Format(domain.NoteTimeFormat), draft.End.Format(domain.NoteTimeFormat))

	// 2. Ученик и права вызывающего
	student, err := e.students.GetByID(ctx, draft.StudentID)
	if err != nil {
		if errors.Is(err, studentRepo.ErrStudentNotFound) {
			e.logger.Warn("Allocate: student id=%d not found", draft.StudentID)
			return nil, ErrStudentNotFound
		}
		e.logger.Error("Allocate: failed to get student id=%d: %v", draft.StudentID, err)
		return nil, fmt.Errorf("%w: failed to get student: %v", ErrInternal, err)
	}
	if err := checkAccess(draft.Caller, student); err != nil {
		e.logger.Warn("Allocate: %v", err)
		return nil, err
	}

	// 3. Проверяем сущности каталога
	if err := e.checkCatalog(ctx, draft); err != nil {
		return nil, err
	}

	// 4. Сохраняем бронирование в статусе requested
	booking, err := e.bookings.Create(ctx, &domain.Booking{
		StudentID:      draft.StudentID,
		SubjectID:      draft.SubjectID,
		PackageID:      draft.PackageID,
		CurriculumID:   draft.CurriculumID,
		RequestedStart: draft.Start,
		RequestedEnd:   draft.End,
		Status:         domain.StatusRequested,
		Note:           draft.Note,
	})
	if err != nil {
		e.logger.Error("Allocate: failed to create booking: %v", err)
		return nil, fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}

	// 5. Распределение
	result, err := e.allocate(ctx, booking)
	if err != nil {
		return nil, err
	}

	e.metrics.IncAllocationOutcome(result.Reason)
	e.logger.Info("Allocate: booking id=%d, status=%s, reason=%s", booking.ID, result.Booking.Status, result.Reason)

	return result, nil
}

// allocate eligibility -> availability -> selector -> committer, иначе broadcast
func (e *Engine) allocate(ctx context.Context, booking *domain.Booking) (*Result, error) {
	// 5.1. Подходящие преподаватели
	eligible, err := e.eligibility.Eligible(ctx, booking.SubjectID)
	if err != nil {
		e.logger.Error("Allocate: booking id=%d: %v", booking.ID, err)
		return nil, err
	}
	if len(eligible) == 0 {
		return e.leaveOpen(ctx, booking, nil, domain.ReasonNoEligibleTutor), nil
	}

	// 5.2. Свободные на интервале
	free, _, err := e.availability.Partition(ctx, eligible, booking.Window())
	if err != nil {
		e.logger.Error("Allocate: booking id=%d: %v", booking.ID, err)
		return nil, err
	}
	if len(free) == 0 {
		return e.leaveOpen(ctx, booking, eligible, domain.ReasonAllBusy), nil
	}

	// 5.3. Порядок кандидатов
	ordered, err := e.selector.Order(ctx, free)
	if err != nil {
		e.logger.Error("Allocate: booking id=%d: %v", booking.ID, err)
		return nil, err
	}

	// 5.4. Коммит с перебором кандидатов при конфликте
	attempts := min(len(ordered), e.opts.MaxCommitAttempts)
	for i := 0; i < attempts; i++ {
		candidate := ordered[i]
		committed, err := e.committer.Commit(ctx, booking.ID, candidate.ID, ModeAllocate)
		if err == nil {
			return &Result{Booking: committed, Assigned: true, Reason: domain.ReasonAssigned}, nil
		}
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotEligible) {
			e.logger.Info("Allocate: booking id=%d, candidate tutor=%d lost (%d/%d): %v",
				booking.ID, candidate.ID, i+1, attempts, err)
			continue
		}
		e.logger.Error("Allocate: booking id=%d, commit failed: %v", booking.ID, err)
		return nil, err
	}

	// 5.5. Все попытки исчерпаны, бронирование уходит в рассылку
	return e.leaveOpen(ctx, booking, eligible, domain.ReasonConflictsExhausted), nil
}

func (e *Engine) leaveOpen(ctx context.Context, booking *domain.Booking, tutors []*domain.Tutor, reason string) *Result {
	_, line := e.broadcaster.Broadcast(ctx, booking, tutors, reason)
	if line != "" {
		booking.Note = domain.AppendNote(booking.Note, line)
	}
	return &Result{Booking: booking, Assigned: false, Reason: reason}
}

func (e *Engine) checkCatalog(ctx context.Context, draft *Draft) error {
	if _, err := e.catalog.GetSubject(ctx, draft.SubjectID); err != nil {
		return e.mapCatalogError("subject", draft.SubjectID, err)
	}
	if _, err := e.catalog.GetPackage(ctx, draft.PackageID); err != nil {
		return e.mapCatalogError("package", draft.PackageID, err)
	}
	if _, err := e.catalog.GetCurriculum(ctx, draft.CurriculumID); err != nil {
		return e.mapCatalogError("curriculum", draft.CurriculumID, err)
	}
	return nil
}

func (e *Engine) mapCatalogError(entity string, id int64, err error) error {
	switch {
	case errors.Is(err, catalogClient.ErrSubjectNotFound):
		e.logger.Warn("Allocate: subject id=%d not found", id)
		return ErrSubjectNotFound
	case errors.Is(err, catalogClient.ErrPackageNotFound):
		e.logger.Warn("Allocate: package id=%d not found", id)
		return ErrPackageNotFound
	case errors.Is(err, catalogClient.ErrCurriculumNotFound):
		e.logger.Warn("Allocate: curriculum id=%d not found", id)
		return ErrCurriculumNotFound
	}
	e.logger.Error("Allocate: failed to get %s id=%d: %v", entity, id, err)
	return fmt.Errorf("%w: failed to get %s: %v", ErrInternal, entity, err)
}

// Claim преподаватель забирает открытое бронирование
func (e *Engine) Claim(ctx context.Context, bookingID, tutorUserID int64) (*domain.Booking, error) {
	e.logger.Info("Claim: booking=%d, user=%d", bookingID, tutorUserID)

	result, err := e.claim(ctx, bookingID, tutorUserID)
	switch {
	case err == nil:
		e.metrics.IncClaim(resultCommitted)
	case errors.Is(err, ErrConflict):
		e.metrics.IncClaim(resultConflict)
	case errors.Is(err, ErrBookingClosed):
		e.metrics.IncClaim(resultClosed)
	default:
		e.metrics.IncClaim(resultError)
	}
	return result, err
}

func (e *Engine) claim(ctx context.Context, bookingID, tutorUserID int64) (*domain.Booking, error) {
	// 1. Профиль преподавателя вызывающего
	tutor, err := e.tutors.GetByUserID(ctx, tutorUserID)
	if err != nil {
		if errors.Is(err, tutorRepo.ErrTutorNotFound) {
			e.logger.Warn("Claim: user id=%d has no tutor profile", tutorUserID)
			return nil, ErrTutorProfileNotFound
		}
		e.logger.Error("Claim: failed to get tutor by user id=%d: %v", tutorUserID, err)
		return nil, fmt.Errorf("%w: failed to get tutor: %v", ErrInternal, err)
	}

	// 2. Бронирование
	booking, err := e.getBooking(ctx, "Claim", bookingID)
	if err != nil {
		return nil, err
	}

	// 3. Статус: закрытое - 410, уже назначенное - 409
	if booking.IsClosed() {
		e.logger.Warn("Claim: booking id=%d is %s", booking.ID, booking.Status)
		return nil, fmt.Errorf("%w: booking id=%d is %s", ErrBookingClosed, booking.ID, booking.Status)
	}
	if !booking.IsOpen() {
		e.logger.Info("Claim: booking id=%d already %s", booking.ID, booking.Status)
		return nil, fmt.Errorf("%w: booking id=%d is already %s", ErrConflict, booking.ID, booking.Status)
	}
	if booking.Window().IsPast(e.timeProvider.Now()) {
		e.logger.Warn("Claim: booking id=%d window already ended", booking.ID)
		return nil, fmt.Errorf("%w: booking id=%d window ended", ErrBookingClosed, booking.ID)
	}

	// 4. Навык и активность
	if !tutor.IsEligibleFor(booking.SubjectID) {
		e.logger.Warn("Claim: tutor id=%d not eligible for subject id=%d", tutor.ID, booking.SubjectID)
		return nil, fmt.Errorf("%w: tutor id=%d, subject id=%d", ErrNotEligible, tutor.ID, booking.SubjectID)
	}

	// 5. Быстрая проверка занятости до транзакции
	busy, err := e.availability.IsBusy(ctx, tutor.ID, booking.Window(), &booking.ID)
	if err != nil {
		e.logger.Error("Claim: booking id=%d: %v", booking.ID, err)
		return nil, err
	}
	if busy {
		e.logger.Info("Claim: tutor id=%d busy for booking id=%d", tutor.ID, booking.ID)
		return nil, fmt.Errorf("%w: tutor id=%d is busy", ErrConflict, tutor.ID)
	}

	// 6. Коммит
	return e.committer.Commit(ctx, booking.ID, tutor.ID, ModeClaim)
}

// Reassign административная смена преподавателя без проверки навыков, с проверкой занятости нового
func (e *Engine) Reassign(ctx context.Context, bookingID, tutorID int64) (*domain.Booking, error) {
	e.logger.Info("Reassign: booking=%d, tutor=%d", bookingID, tutorID)

	// 1. Бронирование
	booking, err := e.getBooking(ctx, "Reassign", bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsClosed() {
		e.logger.Warn("Reassign: booking id=%d is %s", booking.ID, booking.Status)
		return nil, fmt.Errorf("%w: booking id=%d is %s", ErrBookingClosed, booking.ID, booking.Status)
	}
	if booking.Window().IsPast(e.timeProvider.Now()) {
		e.logger.Warn("Reassign: booking id=%d window already ended", booking.ID)
		return nil, fmt.Errorf("%w: booking id=%d window ended", ErrBookingClosed, booking.ID)
	}

	// 2. Новый преподаватель
	tutor, err := e.tutors.GetByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, tutorRepo.ErrTutorNotFound) {
			e.logger.Warn("Reassign: tutor id=%d not found", tutorID)
			return nil, ErrTutorNotFound
		}
		e.logger.Error("Reassign: failed to get tutor id=%d: %v", tutorID, err)
		return nil, fmt.Errorf("%w: failed to get tutor: %v", ErrInternal, err)
	}
	if !tutor.IsEligibleFor(booking.SubjectID) {
		// Администратор назначает в обход навыков и активности
		e.logger.Info("Reassign: tutor id=%d has no skill for subject id=%d, admin override", tutor.ID, booking.SubjectID)
	}

	// 3. Коммит: проверка занятости и запись внутри транзакции
	return e.committer.Commit(ctx, booking.ID, tutor.ID, ModeReassign)
}

// OpenBookings открытые будущие бронирования по предметам преподавателя
func (e *Engine) OpenBookings(ctx context.Context, tutorUserID int64) ([]*domain.Booking, error) {
	tutor, err := e.tutors.GetByUserID(ctx, tutorUserID)
	if err != nil {
		if errors.Is(err, tutorRepo.ErrTutorNotFound) {
			e.logger.Warn("OpenBookings: user id=%d has no tutor profile", tutorUserID)
			return nil, ErrTutorProfileNotFound
		}
		e.logger.Error("OpenBookings: failed to get tutor by user id=%d: %v", tutorUserID, err)
		return nil, fmt.Errorf("%w: failed to get tutor: %v", ErrInternal, err)
	}

	if !tutor.IsActive || len(tutor.Skills) == 0 {
		return []*domain.Booking{}, nil
	}

	bookings, err := e.bookings.GetOpen(ctx, domain.OpenBookingsFilter{
		SubjectIDs: tutor.Skills,
		From:       e.timeProvider.Now(),
		Limit:      e.opts.OpenBookingsLimit,
	})
	if err != nil {
		e.logger.Error("OpenBookings: failed to get open bookings: %v", err)
		return nil, fmt.Errorf("%w: failed to get open bookings: %v", ErrInternal, err)
	}

	return bookings, nil
}

// RebroadcastOpen повторно рассылает открытые будущие бронирования преподавателям,
// которые ещё не получали приглашение (например, новым или вернувшимся в активные)
func (e *Engine) RebroadcastOpen(ctx context.Context) (int, error) {
	open, err := e.bookings.GetOpen(ctx, domain.OpenBookingsFilter{
		From:  e.timeProvider.Now(),
		Limit: e.opts.OpenBookingsLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get open bookings: %v", ErrInternal, err)
	}

	// Кэш подходящих преподавателей по предмету на время прохода
	bySubject := make(map[int64][]*domain.Tutor)
	notified := 0
	for _, booking := range open {
		if err := ctx.Err(); err != nil {
			return notified, err
		}

		tutors, ok := bySubject[booking.SubjectID]
		if !ok {
			tutors, err = e.eligibility.Eligible(ctx, booking.SubjectID)
			if err != nil {
				return notified, err
			}
			bySubject[booking.SubjectID] = tutors
		}
		if len(tutors) == 0 {
			continue
		}

		n, _ := e.broadcaster.Broadcast(ctx, booking, tutors, ReasonRebroadcast)
		notified += n
	}

	return notified, nil
}

func (e *Engine) getBooking(ctx context.Context, op string, bookingID int64) (*domain.Booking, error) {
	booking, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			e.logger.Warn("%s: booking id=%d not found", op, bookingID)
			return nil, ErrBookingNotFound
		}
		e.logger.Error("%s: failed to get booking id=%d: %v", op, bookingID, err)
		return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}
	return booking, nil
}
