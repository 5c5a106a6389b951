package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/booking"
	studentRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/student"
	tutorRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/tutor"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

// Service сервис чтения, отмены и архивации бронирований
type Service struct {
	bookingRepo  BookingRepository
	studentRepo  StudentRepository
	tutorRepo    TutorRepository
	sessionRepo  SessionRepository
	txManager    TransactionManager
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	studentRepo StudentRepository,
	tutorRepo TutorRepository,
	sessionRepo SessionRepository,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepo,
		studentRepo:  studentRepo,
		tutorRepo:    tutorRepo,
		sessionRepo:  sessionRepo,
		txManager:    txManager,
		metrics:      metrics,
		timeProvider: realTimeProvider{},
		logger:       logger,
	}
}

// GetByID получает бронирование по ID
// Видят: ученик-владелец, его родитель, назначенный преподаватель, администратор
func (s *Service) GetByID(ctx context.Context, id int64, caller domain.Caller) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d(%s)", id, caller.UserID, caller.Role)

	booking, err := s.getBooking(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	// Проверяем права доступа
	if err := s.checkReadAccess(ctx, booking, caller); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", caller.UserID, id)
		return nil, err
	}

	s.logger.Info("GetByID: successfully fetched booking id=%d", id)
	return models.FromDomainBooking(booking), nil
}

// GetMine получает бронирования вызывающего в зависимости от роли:
// ученик - свои, родитель - всех детей, преподаватель - назначенные ему
func (s *Service) GetMine(ctx context.Context, req *models.GetMyBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetMine: fetching bookings for user=%d(%s), status=%v", req.Caller.UserID, req.Caller.Role, req.Status)

	// Конвертируем статус из строки в domain.BookingStatus
	filter := domain.BookingsFilter{}
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetMine: invalid status=%s for user=%d", *req.Status, req.Caller.UserID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		filter.Status = &status
	}

	// Профиль и бронирования читаются из одного снимка
	var bookings []*domain.Booking
	err := s.txManager.DoReadOnly(ctx, func(txCtx context.Context) error {
		if err := s.applyRoleFilter(txCtx, req.Caller, &filter); err != nil {
			return err
		}
		if filter.StudentIDs != nil && len(filter.StudentIDs) == 0 {
			return nil
		}

		var err error
		bookings, err = s.bookingRepo.GetByFilter(txCtx, filter)
		if err != nil {
			s.logger.Error("GetMine: repository error for user=%d: %v", req.Caller.UserID, err)
			return fmt.Errorf("%w: GetMine - repository error: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetMine: successfully fetched %d bookings for user=%d", len(bookings), req.Caller.UserID)
	return models.FromDomainBookingList(bookings), nil
}

// Cancel отменяет бронирование
// Отменить может ученик-владелец, его родитель или администратор; занятие помечается cancelled
func (s *Service) Cancel(ctx context.Context, bookingID int64, req *models.CancelBookingRequest) (*models.BookingResponse, error) {
	s.logger.Info("Cancel: cancelling booking id=%d by user=%d(%s)", bookingID, req.Caller.UserID, req.Caller.Role)

	booking, err := s.getBooking(ctx, "Cancel", bookingID)
	if err != nil {
		return nil, err
	}

	// Проверяем, можно ли отменить бронирование
	if booking.IsClosed() {
		s.logger.Warn("Cancel: booking id=%d cannot be cancelled, status=%s", bookingID, booking.Status)
		return nil, ErrCannotCancel
	}

	// Проверяем права: преподаватель отменять не может
	if !req.Caller.IsAdmin() {
		ok, err := s.isStudentSide(ctx, booking, req.Caller)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("Cancel: access denied for user=%d to booking id=%d", req.Caller.UserID, bookingID)
			return nil, ErrAccessDenied
		}
	}

	line := fmt.Sprintf("%s cancelled by user %d", s.timeProvider.Now().UTC().Format(domain.NoteTimeFormat), req.Caller.UserID)
	if req.Reason != "" {
		line += ": " + req.Reason
	}

	var cancelled *domain.Booking
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		updated, err := s.bookingRepo.Cancel(txCtx, bookingID, line)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrStatusMismatch) {
				return ErrCannotCancel
			}
			return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
		}

		if err := s.sessionRepo.SetStatusByBooking(txCtx, bookingID, domain.SessionCancelled); err != nil {
			return fmt.Errorf("%w: Cancel - session update: %v", ErrInternal, err)
		}

		cancelled = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCannotCancel) {
			s.logger.Warn("Cancel: booking id=%d changed concurrently", bookingID)
		} else {
			s.logger.Error("Cancel: booking id=%d: %v", bookingID, err)
		}
		return nil, err
	}

	s.logger.Info("Cancel: successfully cancelled booking id=%d", bookingID)
	return models.FromDomainBooking(cancelled), nil
}

// ArchiveExpired переводит в archived все нефинальные бронирования, окно которых закончилось
func (s *Service) ArchiveExpired(ctx context.Context) (int64, error) {
	now := s.timeProvider.Now()

	archived, err := s.bookingRepo.ArchivePast(ctx, now)
	if err != nil {
		s.logger.Error("ArchiveExpired: repository error: %v", err)
		return 0, fmt.Errorf("%w: ArchiveExpired - repository error: %v", ErrInternal, err)
	}

	s.metrics.AddArchived(archived)
	if archived > 0 {
		s.logger.Info("ArchiveExpired: archived %d bookings ended before %s", archived, now.Format(domain.NoteTimeFormat))
	}
	return archived, nil
}

// applyRoleFilter сужает фильтр до бронирований вызывающего:
// ученик - свои, родитель - всех детей (пустой список, если детей нет), преподаватель - назначенные ему
func (s *Service) applyRoleFilter(ctx context.Context, caller domain.Caller, filter *domain.BookingsFilter) error {
	switch caller.Role {
	case domain.RoleStudent:
		student, err := s.studentRepo.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return s.mapProfileError("GetMine", caller.UserID, err)
		}
		filter.StudentIDs = []int64{student.ID}

	case domain.RoleParent:
		children, err := s.studentRepo.GetByParentUserID(ctx, caller.UserID)
		if err != nil {
			s.logger.Error("GetMine: failed to get children of user=%d: %v", caller.UserID, err)
			return fmt.Errorf("%w: GetMine - repository error: %v", ErrInternal, err)
		}
		filter.StudentIDs = make([]int64, 0, len(children))
		for _, child := range children {
			filter.StudentIDs = append(filter.StudentIDs, child.ID)
		}

	case domain.RoleTutor:
		tutor, err := s.tutorRepo.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return s.mapProfileError("GetMine", caller.UserID, err)
		}
		filter.TutorID = &tutor.ID

	default:
		s.logger.Warn("GetMine: role %s has no own bookings", caller.Role)
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) getBooking(ctx context.Context, op string, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

// checkReadAccess проверяет права на просмотр бронирования
func (s *Service) checkReadAccess(ctx context.Context, booking *domain.Booking, caller domain.Caller) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil

	case domain.RoleTutor:
		if booking.AssignedTutorID == nil {
			return ErrAccessDenied
		}
		tutor, err := s.tutorRepo.GetByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, tutorRepo.ErrTutorNotFound) {
				return ErrAccessDenied
			}
			return fmt.Errorf("%w: checkReadAccess - tutor lookup: %v", ErrInternal, err)
		}
		if !booking.IsAssignedTo(tutor.ID) {
			return ErrAccessDenied
		}
		return nil

	default:
		ok, err := s.isStudentSide(ctx, booking, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAccessDenied
		}
		return nil
	}
}

// isStudentSide true для ученика-владельца и его родителя
func (s *Service) isStudentSide(ctx context.Context, booking *domain.Booking, caller domain.Caller) (bool, error) {
	if caller.Role != domain.RoleStudent && caller.Role != domain.RoleParent {
		return false, nil
	}

	student, err := s.studentRepo.GetByID(ctx, booking.StudentID)
	if err != nil {
		if errors.Is(err, studentRepo.ErrStudentNotFound) {
			return false, nil
		}
		s.logger.Error("isStudentSide: failed to get student id=%d: %v", booking.StudentID, err)
		return false, fmt.Errorf("%w: student lookup: %v", ErrInternal, err)
	}

	switch caller.Role {
	case domain.RoleStudent:
		return student.UserID == caller.UserID, nil
	default:
		return student.ParentUserID != nil && *student.ParentUserID == caller.UserID, nil
	}
}

func (s *Service) mapProfileError(op string, userID int64, err error) error {
	if errors.Is(err, studentRepo.ErrStudentNotFound) || errors.Is(err, tutorRepo.ErrTutorNotFound) {
		s.logger.Warn("%s: user=%d has no profile", op, userID)
		return ErrProfileNotFound
	}
	s.logger.Error("%s: profile lookup failed for user=%d: %v", op, userID, err)
	return fmt.Errorf("%w: %s - profile lookup: %v", ErrInternal, op, err)
}
