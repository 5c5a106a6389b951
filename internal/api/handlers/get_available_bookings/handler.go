package get_available_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

const (
	msgMissingUserID  = "отсутствует ID пользователя"
	msgNoTutorProfile = "профиль преподавателя не найден"
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

// Handle GET /api/v1/bookings/available
// Открытые будущие бронирования по предметам преподавателя
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings/available - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	open, err := h.engine.OpenBookings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, allocation.ErrTutorProfileNotFound) {
			h.logger.Warn("GET /bookings/available - No tutor profile: user_id=%d", userID)
			handlers.RespondNotFound(w, msgNoTutorProfile)
			return
		}
		h.logger.Error("GET /bookings/available - Failed to get open bookings: user_id=%d, error=%v", userID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /bookings/available - Open bookings retrieved: user_id=%d, count=%d", userID, len(open))
	handlers.RespondJSON(w, http.StatusOK, models.FromDomainBookingList(open))
}
