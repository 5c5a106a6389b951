package get_my_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

const (
	msgMissingUserID   = "отсутствует ID пользователя"
	msgInvalidStatus   = "некорректный статус бронирования"
	msgProfileNotFound = "профиль пользователя не найден"
	msgForbidden       = "доступ запрещен"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/mine
// Query params: status (optional)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings/mine - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	// Получаем status из query параметров (опционально)
	status := r.URL.Query().Get("status")
	var statusPtr *string
	if status != "" {
		statusPtr = &status
	}

	result, err := h.service.GetMine(r.Context(), &models.GetMyBookingsRequest{
		Caller: caller,
		Status: statusPtr,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /bookings/mine - Invalid status: %s", status)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, bookings.ErrProfileNotFound):
			h.logger.Warn("GET /bookings/mine - Profile not found: user_id=%d", caller.UserID)
			handlers.RespondNotFound(w, msgProfileNotFound)

		case errors.Is(err, bookings.ErrAccessDenied):
			h.logger.Warn("GET /bookings/mine - Access denied: user_id=%d, role=%s", caller.UserID, caller.Role)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /bookings/mine - Failed to get bookings: user_id=%d, error=%v", caller.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /bookings/mine - Bookings retrieved successfully: user_id=%d, count=%d",
		caller.UserID, len(result.Bookings))
	handlers.RespondJSON(w, http.StatusOK, result)
}
