package create_booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
)

type stubEngine struct {
	got    *allocation.Draft
	result *allocation.Result
	err    error
}

func (s *stubEngine) Allocate(_ context.Context, draft *allocation.Draft) (*allocation.Result, error) {
	s.got = draft
	return s.result, s.err
}

const validBody = `{"studentId":1,"subjectId":7,"packageId":2,"curriculumId":3,
	"start":"2026-03-03T10:00:00Z","end":"2026-03-03T11:00:00Z"}`

func serve(h *Handler, body string, caller *domain.Caller) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	if caller != nil {
		r = r.WithContext(middleware.WithCaller(r.Context(), *caller))
	}
	w := httptest.NewRecorder()
	h.Handle(w, r)
	return w
}

func TestHandler_Handle(t *testing.T) {
	parent := &domain.Caller{UserID: 12, Role: domain.RoleParent}
	tutor := int64(5)

	t.Run("assigned", func(t *testing.T) {
		engine := &stubEngine{result: &allocation.Result{
			Booking:  &domain.Booking{ID: 100, AssignedTutorID: &tutor, Status: domain.StatusConfirmed},
			Assigned: true,
			Reason:   domain.ReasonAssigned,
		}}
		w := serve(NewHandler(engine, logger.NewNop()), validBody, parent)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, engine.got)
		assert.Equal(t, *parent, engine.got.Caller)
		assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), engine.got.Start.UTC())

		var resp AllocationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Assigned)
		assert.Equal(t, int64(100), resp.Booking.ID)
		assert.Equal(t, "confirmed", resp.Booking.Status)
	})

	t.Run("left open", func(t *testing.T) {
		engine := &stubEngine{result: &allocation.Result{
			Booking: &domain.Booking{ID: 101, Status: domain.StatusRequested},
			Reason:  domain.ReasonAllBusy,
		}}
		w := serve(NewHandler(engine, logger.NewNop()), validBody, parent)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"reason":"all_busy"`)
	})

	t.Run("request errors", func(t *testing.T) {
		h := NewHandler(&stubEngine{}, logger.NewNop())

		assert.Equal(t, http.StatusUnauthorized, serve(h, validBody, nil).Code)
		assert.Equal(t, http.StatusBadRequest, serve(h, `{"studentId":`, parent).Code)
		assert.Equal(t, http.StatusBadRequest, serve(h, `{"start":"tomorrow","end":"2026-03-03T11:00:00Z"}`, parent).Code)
	})

	t.Run("engine errors", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{err: allocation.ErrInvalidInput, want: http.StatusBadRequest},
			{err: allocation.ErrAccessDenied, want: http.StatusForbidden},
			{err: allocation.ErrStudentNotFound, want: http.StatusNotFound},
			{err: allocation.ErrSubjectNotFound, want: http.StatusNotFound},
			{err: allocation.ErrPackageNotFound, want: http.StatusNotFound},
			{err: allocation.ErrCurriculumNotFound, want: http.StatusNotFound},
			{err: allocation.ErrInternal, want: http.StatusInternalServerError},
			{err: errors.New("unexpected"), want: http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.err.Error(), func(t *testing.T) {
				h := NewHandler(&stubEngine{err: tt.err}, logger.NewNop())
				assert.Equal(t, tt.want, serve(h, validBody, parent).Code)
			})
		}
	})
}
