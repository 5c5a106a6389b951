package get_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgNotFound         = "бронирование не найдено"
	msgUnauthenticated  = "вызывающий не определен"
	msgNotAssigned      = "бронирование не назначено этому преподавателю"
	msgOtherStudent     = "бронирование принадлежит другому ученику"
	msgForbidden        = "нет доступа к бронированию"
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

// Handle GET /api/v1/bookings/{bookingId}
// Бронирование видят ученик-владелец, его родитель, назначенный преподаватель и администратор
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /bookings/{id} - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings/{id} - No caller in context: booking_id=%d", bookingID)
		handlers.RespondUnauthorized(w, msgUnauthenticated)
		return
	}

	booking, err := h.service.GetByID(r.Context(), bookingID, caller)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("GET /bookings/{id} - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, bookings.ErrAccessDenied):
			h.logger.Warn("GET /bookings/{id} - %s user_id=%d is not a stakeholder of booking_id=%d",
				caller.Role, caller.UserID, bookingID)
			handlers.RespondForbidden(w, deniedMessage(caller.Role))

		default:
			h.logger.Error("GET /bookings/{id} - Failed to get booking: booking_id=%d, %s user_id=%d, error=%v",
				bookingID, caller.Role, caller.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /bookings/{id} - booking_id=%d (status=%s) shown to %s user_id=%d",
		bookingID, booking.Status, caller.Role, caller.UserID)
	handlers.RespondJSON(w, http.StatusOK, booking)
}

func deniedMessage(role domain.Role) string {
	switch role {
	case domain.RoleTutor:
		return msgNotAssigned
	case domain.RoleStudent, domain.RoleParent:
		return msgOtherStudent
	default:
		return msgForbidden
	}
}
