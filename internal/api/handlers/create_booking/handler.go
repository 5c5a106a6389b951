package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidTime        = "некорректный формат времени, ожидается RFC3339"
	msgInvalidInput       = "некорректные данные бронирования"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgForbidden          = "доступ запрещен"
	msgStudentNotFound    = "ученик не найден"
	msgSubjectNotFound    = "предмет не найден"
	msgPackageNotFound    = "пакет не найден"
	msgCurriculumNotFound = "программа не найдена"
)

type Handler struct {
	engine AllocationEngine
	logger Logger
}

func NewHandler(engine AllocationEngine, logger Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Handle POST /api/v1/bookings
// 201 - преподаватель назначен, 202 - бронирование ждёт преподавателя (рассылка)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	draft, err := req.ToDraft(caller)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}

	result, err := h.engine.Allocate(r.Context(), draft)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Invalid input: user_id=%d, error=%v", caller.UserID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, allocation.ErrAccessDenied):
			h.logger.Warn("POST /bookings - Access denied: user_id=%d, student_id=%d", caller.UserID, req.StudentID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, allocation.ErrStudentNotFound):
			h.logger.Warn("POST /bookings - Student not found: student_id=%d", req.StudentID)
			handlers.RespondNotFound(w, msgStudentNotFound)

		case errors.Is(err, allocation.ErrSubjectNotFound):
			h.logger.Warn("POST /bookings - Subject not found: subject_id=%d", req.SubjectID)
			handlers.RespondNotFound(w, msgSubjectNotFound)

		case errors.Is(err, allocation.ErrPackageNotFound):
			h.logger.Warn("POST /bookings - Package not found: package_id=%d", req.PackageID)
			handlers.RespondNotFound(w, msgPackageNotFound)

		case errors.Is(err, allocation.ErrCurriculumNotFound):
			h.logger.Warn("POST /bookings - Curriculum not found: curriculum_id=%d", req.CurriculumID)
			handlers.RespondNotFound(w, msgCurriculumNotFound)

		default:
			h.logger.Error("POST /bookings - Failed to allocate booking: user_id=%d, student_id=%d, error=%v",
				caller.UserID, req.StudentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	status := http.StatusCreated
	if !result.Assigned {
		status = http.StatusAccepted
	}

	h.logger.Info("POST /bookings - Booking allocated: booking_id=%d, assigned=%t, reason=%s",
		result.Booking.ID, result.Assigned, result.Reason)
	handlers.RespondJSON(w, status, FromResult(result))
}
