package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
)

// boundedNotifier принимает не больше capacity получателей, остальные возвращает
type boundedNotifier struct {
	mu       sync.Mutex
	capacity int
	accepted []int64
}

func (n *boundedNotifier) Notify(_ context.Context, recipients []domain.Recipient, _ domain.EventType, _ map[string]any) []domain.Recipient {
	n.mu.Lock()
	defer n.mu.Unlock()

	var dropped []domain.Recipient
	for _, r := range recipients {
		if len(n.accepted) >= n.capacity {
			dropped = append(dropped, r)
			continue
		}
		n.accepted = append(n.accepted, r.UserID)
	}
	return dropped
}

func TestBroadcaster_DroppedInvitesRetried(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tutors := []*domain.Tutor{
		store.addTutor(1, true, subjectMath),
		store.addTutor(2, true, subjectMath),
		store.addTutor(3, true, subjectMath),
	}
	booking := store.put(&domain.Booking{
		StudentID:      1,
		SubjectID:      subjectMath,
		RequestedStart: at(0),
		RequestedEnd:   at(1),
		Status:         domain.StatusRequested,
	})

	notifier := &boundedNotifier{capacity: 1}
	b := NewBroadcaster(store, &memGuard{}, notifier, logger.NewNop())
	b.timeProvider = fixedClock{now: testNow}

	n, line := b.Broadcast(ctx, booking, tutors, domain.ReasonAllBusy)
	assert.Equal(t, 1, n)
	assert.Contains(t, line, "1 tutor(s) notified, 2 deferred")
	assert.Equal(t, []int64{101}, notifier.accepted)

	t.Run("next broadcast reaches the deferred tutors", func(t *testing.T) {
		notifier.capacity = 3

		n, line := b.Broadcast(ctx, booking, tutors, ReasonRebroadcast)
		assert.Equal(t, 2, n)
		assert.Contains(t, line, "2 tutor(s) notified")
		assert.NotContains(t, line, "deferred")
		assert.ElementsMatch(t, []int64{101, 102, 103}, notifier.accepted)
	})

	t.Run("everyone invited, nothing more to send", func(t *testing.T) {
		n, line := b.Broadcast(ctx, booking, tutors, ReasonRebroadcast)
		assert.Zero(t, n)
		assert.Empty(t, line)
	})

	notes := store.get(booking.ID).NoteLines()
	require.Len(t, notes, 2)
}
