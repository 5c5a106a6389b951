package get_available_bookings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
)

type stubEngine struct {
	open []*domain.Booking
	err  error
}

func (s stubEngine) OpenBookings(context.Context, int64) ([]*domain.Booking, error) {
	return s.open, s.err
}

func serve(engine stubEngine) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/bookings/available", nil)
	r = r.WithContext(middleware.WithCaller(r.Context(), domain.Caller{UserID: 105, Role: domain.RoleTutor}))
	w := httptest.NewRecorder()
	NewHandler(engine, logger.NewNop()).Handle(w, r)
	return w
}

func TestHandler_Handle(t *testing.T) {
	t.Run("open bookings", func(t *testing.T) {
		w := serve(stubEngine{open: []*domain.Booking{{ID: 1, Status: domain.StatusRequested}}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":1`)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		w := serve(stubEngine{open: []*domain.Booking{}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"bookings":[]}`, w.Body.String())
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(stubEngine{err: allocation.ErrTutorProfileNotFound}).Code)
		assert.Equal(t, http.StatusInternalServerError, serve(stubEngine{err: errors.New("db down")}).Code)
	})
}
