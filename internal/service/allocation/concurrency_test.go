package allocation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

func TestConcurrentClaims_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(nil, DefaultOptions())
	for id := int64(1); id <= 5; id++ {
		h.store.addTutor(id, true, subjectMath)
	}
	b := h.open(subjectMath, at(0), at(1))

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for id := int64(1); id <= 5; id++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			<-start
			_, err := h.engine.Claim(ctx, b.ID, userID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id + 100)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 4, conflicts)

	stored := h.store.get(b.ID)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.AssignedTutorID)
	assert.Len(t, h.notifier.byType(domain.EventBookingAssigned), 1)
}

// Любая последовательность конкурентных allocate/claim/reassign
// не даёт пересекающихся подтверждённых бронирований у одного преподавателя
func TestNoDoubleBooking_UnderConcurrency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(NewRandomSelector(rand.NewSource(42)), DefaultOptions())
	for id := int64(1); id <= 3; id++ {
		h.store.addTutor(id, true, subjectMath)
	}

	// Несколько пересекающихся окон на коротком отрезке
	windows := []domain.TimeWindow{
		{Start: at(0), End: at(1)},
		{Start: at(0).Add(30 * time.Minute), End: at(1).Add(30 * time.Minute)},
		{Start: at(1), End: at(2)},
		{Start: at(0).Add(15 * time.Minute), End: at(0).Add(45 * time.Minute)},
	}
	openIDs := make([]int64, 0, 8)
	for i := 0; i < 8; i++ {
		w := windows[i%len(windows)]
		openIDs = append(openIDs, h.open(subjectMath, w.Start, w.End).ID)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			w := windows[i%len(windows)]
			tutorID := int64(i%3 + 1)
			bookingID := openIDs[i%len(openIDs)]

			var err error
			switch i % 3 {
			case 0:
				_, err = h.engine.Allocate(ctx, h.draft(subjectMath, w.Start, w.End))
			case 1:
				_, err = h.engine.Claim(ctx, bookingID, tutorID+100)
			case 2:
				_, err = h.engine.Reassign(ctx, bookingID, tutorID)
			}
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("op %d: unexpected error: %v", i, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assertNoOverlaps(t, h.store.all())
}

func assertNoOverlaps(t *testing.T, bookings []*domain.Booking) {
	t.Helper()

	byTutor := make(map[int64][]*domain.Booking)
	for _, b := range bookings {
		require.NoError(t, b.Validate())
		if b.IsConfirmed() {
			byTutor[*b.AssignedTutorID] = append(byTutor[*b.AssignedTutorID], b)
		}
	}

	for tutorID, list := range byTutor {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				assert.False(t, list[i].Window().Overlaps(list[j].Window()),
					"tutor %d: bookings %d and %d overlap", tutorID, list[i].ID, list[j].ID)
			}
		}
	}
}
