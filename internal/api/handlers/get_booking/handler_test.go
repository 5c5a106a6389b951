package get_booking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
)

type stubService struct {
	caller domain.Caller
	err    error
}

func (s *stubService) GetByID(_ context.Context, id int64, caller domain.Caller) (*models.BookingResponse, error) {
	s.caller = caller
	if s.err != nil {
		return nil, s.err
	}
	return &models.BookingResponse{ID: id, Status: "requested"}, nil
}

func serve(svc *stubService, id string) *httptest.ResponseRecorder {
	return serveAs(svc, id, domain.Caller{UserID: 11, Role: domain.RoleStudent})
}

func serveAs(svc *stubService, id string, caller domain.Caller) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/bookings/{bookingId}", NewHandler(svc, logger.NewNop()).Handle)

	r := httptest.NewRequest(http.MethodGet, "/bookings/"+id, nil)
	r = r.WithContext(middleware.WithCaller(r.Context(), caller))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandler_Handle(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &stubService{}
		w := serve(svc, "100")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(11), svc.caller.UserID)
		assert.Contains(t, w.Body.String(), `"id":100`)
	})

	tests := []struct {
		name string
		id   string
		err  error
		want int
	}{
		{name: "bad id", id: "x", want: http.StatusBadRequest},
		{name: "not found", id: "1", err: bookings.ErrBookingNotFound, want: http.StatusNotFound},
		{name: "denied", id: "1", err: bookings.ErrAccessDenied, want: http.StatusForbidden},
		{name: "internal", id: "1", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(&stubService{err: tt.err}, tt.id).Code)
		})
	}
}

func TestHandler_DeniedMessagePerRole(t *testing.T) {
	tests := []struct {
		role domain.Role
		want string
	}{
		{role: domain.RoleTutor, want: msgNotAssigned},
		{role: domain.RoleStudent, want: msgOtherStudent},
		{role: domain.RoleParent, want: msgOtherStudent},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			w := serveAs(&stubService{err: bookings.ErrAccessDenied}, "100", domain.Caller{UserID: 5, Role: tt.role})
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	t.Run("no caller", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/bookings/{bookingId}", NewHandler(&stubService{}, logger.NewNop()).Handle)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/100", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
