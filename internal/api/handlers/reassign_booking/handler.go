package reassign_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgInvalidTutorID   = "некорректный ID преподавателя"
	msgNotFound         = "бронирование не найдено"
	msgTutorNotFound    = "преподаватель не найден"
	msgConflict         = "время пересекается с другим занятием преподавателя"
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

// Handle PATCH /api/v1/bookings/{bookingId}/reassign/{tutorId}
// Роль проверяется middleware (только admin)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	bookingID, err := strconv.ParseInt(vars["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	tutorID, err := strconv.ParseInt(vars["tutorId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Invalid tutor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidTutorID)
		return
	}

	booking, err := h.engine.Reassign(r.Context(), bookingID, tutorID)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, allocation.ErrTutorNotFound):
			h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Tutor not found: tutor_id=%d", tutorID)
			handlers.RespondNotFound(w, msgTutorNotFound)

		case errors.Is(err, allocation.ErrBookingClosed):
			h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Booking closed: booking_id=%d", bookingID)
			handlers.RespondGone(w, msgClosed)

		case errors.Is(err, allocation.ErrConflict):
			h.logger.Warn("PATCH /bookings/{id}/reassign/{tutorId} - Conflict: booking_id=%d, tutor_id=%d", bookingID, tutorID)
			handlers.RespondConflict(w, msgConflict)

		default:
			h.logger.Error("PATCH /bookings/{id}/reassign/{tutorId} - Failed to reassign: booking_id=%d, tutor_id=%d, error=%v",
				bookingID, tutorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{id}/reassign/{tutorId} - Booking reassigned: booking_id=%d, tutor_id=%d", bookingID, tutorID)
	handlers.RespondJSON(w, http.StatusOK, models.FromDomainBooking(booking))
}
