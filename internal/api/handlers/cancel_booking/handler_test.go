package cancel_booking

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
)

type stubService struct {
	got *models.CancelBookingRequest
	err error
}

func (s *stubService) Cancel(_ context.Context, bookingID int64, req *models.CancelBookingRequest) (*models.BookingResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.BookingResponse{ID: bookingID, Status: "cancelled"}, nil
}

func serve(svc *stubService, id string, body io.Reader) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/bookings/{bookingId}/cancel", NewHandler(svc, logger.NewNop()).Handle)

	r := httptest.NewRequest(http.MethodPost, "/bookings/"+id+"/cancel", body)
	r = r.WithContext(middleware.WithCaller(r.Context(), domain.Caller{UserID: 12, Role: domain.RoleParent}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandler_Handle(t *testing.T) {
	t.Run("with reason", func(t *testing.T) {
		svc := &stubService{}
		w := serve(svc, "100", strings.NewReader(`{"cancellationReason":"sick"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.got)
		assert.Equal(t, "sick", svc.got.Reason)
		assert.Equal(t, domain.Caller{UserID: 12, Role: domain.RoleParent}, svc.got.Caller)
	})

	t.Run("empty body", func(t *testing.T) {
		svc := &stubService{}
		w := serve(svc, "100", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, svc.got.Reason)
	})

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(&stubService{}, "100", strings.NewReader(`{`)).Code)
	})

	tests := []struct {
		err  error
		want int
	}{
		{err: bookings.ErrBookingNotFound, want: http.StatusNotFound},
		{err: bookings.ErrAccessDenied, want: http.StatusForbidden},
		{err: bookings.ErrCannotCancel, want: http.StatusGone},
		{err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, serve(&stubService{err: tt.err}, "100", nil).Code)
		})
	}
}
