package claim_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgMissingUserID    = "отсутствует ID пользователя"
	msgNotFound         = "бронирование не найдено"
	msgNoTutorProfile   = "профиль преподавателя не найден"
	msgNotEligible      = "преподаватель не может вести этот предмет"
	msgConflict         = "бронирование уже занято или время пересекается с другим занятием"
	msgClosed           = "бронирование закрыто"
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

// Handle POST /api/v1/bookings/{bookingId}/claim
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/claim - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings/{id}/claim - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	booking, err := h.engine.Claim(r.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/claim - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, allocation.ErrTutorProfileNotFound):
			h.logger.Warn("POST /bookings/{id}/claim - No tutor profile: user_id=%d", userID)
			handlers.RespondNotFound(w, msgNoTutorProfile)

		case errors.Is(err, allocation.ErrNotEligible):
			h.logger.Warn("POST /bookings/{id}/claim - Not eligible: booking_id=%d, user_id=%d", bookingID, userID)
			handlers.RespondForbidden(w, msgNotEligible)

		case errors.Is(err, allocation.ErrBookingClosed):
			h.logger.Warn("POST /bookings/{id}/claim - Booking closed: booking_id=%d", bookingID)
			handlers.RespondGone(w, msgClosed)

		case errors.Is(err, allocation.ErrConflict):
			h.logger.Warn("POST /bookings/{id}/claim - Conflict: booking_id=%d, user_id=%d", bookingID, userID)
			handlers.RespondConflict(w, msgConflict)

		default:
			h.logger.Error("POST /bookings/{id}/claim - Failed to claim: booking_id=%d, user_id=%d, error=%v",
				bookingID, userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/claim - Booking claimed: booking_id=%d, user_id=%d", bookingID, userID)
	handlers.RespondJSON(w, http.StatusOK, models.FromDomainBooking(booking))
}
