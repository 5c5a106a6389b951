package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

func TestBuildCommitmentsQuery(t *testing.T) {
	window := domain.TimeWindow{
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}

	t.Run("half-open overlap in one bulk query", func(t *testing.T) {
		query, args, err := buildCommitmentsQuery(domain.CommitmentFilter{
			TutorIDs: []int64{1, 2, 3},
			Window:   window,
		}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "assigned_tutor_id IN ($1,$2,$3)")
		assert.Contains(t, query, "status IN ($4,$5)")
		assert.Contains(t, query, "requested_start < $6")
		assert.Contains(t, query, "requested_end > $7")
		assert.NotContains(t, query, "FOR UPDATE")
		assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), "confirmed", "requested", window.End, window.Start}, args)
	})

	t.Run("explicit statuses and excluded booking", func(t *testing.T) {
		exclude := int64(77)
		query, args, err := buildCommitmentsQuery(domain.CommitmentFilter{
			TutorIDs:         []int64{5},
			Window:           window,
			Statuses:         domain.ConfirmedOnlyStatuses,
			ExcludeBookingID: &exclude,
		}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "status IN ($2)")
		assert.Contains(t, query, "id <> $5")
		assert.Equal(t, int64(77), args[len(args)-1])
	})
}

func TestBuildAssignQuery(t *testing.T) {
	query, args, err := buildAssignQuery(domain.AssignParams{
		BookingID:        10,
		TutorID:          3,
		ExpectedStatuses: []domain.BookingStatus{domain.StatusRequested},
		NoteLine:         "assigned tutor 3",
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE bookings SET assigned_tutor_id = $1, status = $2, updated_at = NOW(), note = CONCAT_WS(E'\\n', note, $3::text)")
	assert.Contains(t, query, "WHERE id = $4 AND status IN ($5)")
	assert.Contains(t, query, "RETURNING id, student_id")
	assert.Equal(t, []interface{}{int64(3), domain.StatusConfirmed, "assigned tutor 3", int64(10), "requested"}, args)
}

func TestBuildGetByIDQuery(t *testing.T) {
	query, _, err := buildGetByIDQuery(1, true).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FOR UPDATE")

	query, _, err = buildGetByIDQuery(1, false).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "FOR UPDATE")
}

func TestBuildOpenQuery(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	query, args, err := buildOpenQuery(domain.OpenBookingsFilter{
		SubjectIDs: []int64{4, 9},
		From:       from,
		Limit:      50,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "assigned_tutor_id IS NULL")
	assert.Contains(t, query, "requested_start > $2")
	assert.Contains(t, query, "subject_id IN ($3,$4)")
	assert.Contains(t, query, "ORDER BY requested_start ASC")
	assert.Contains(t, query, "LIMIT 50")
	assert.Equal(t, domain.StatusRequested, args[0])
}

func TestBuildFilterQuery(t *testing.T) {
	tutorID := int64(8)

	query, args, err := buildFilterQuery(domain.BookingsFilter{TutorID: &tutorID}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "assigned_tutor_id = $1")
	assert.Contains(t, query, "ORDER BY requested_start DESC")
	assert.Equal(t, []interface{}{int64(8)}, args)

	query, _, err = buildFilterQuery(domain.BookingsFilter{StudentIDs: []int64{1, 2}}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "student_id IN ($1,$2)")
}

func TestBuildArchiveQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	query, args, err := buildArchiveQuery(now).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE bookings SET status = $1, updated_at = NOW() WHERE requested_end < $2 AND status NOT IN ($3,$4)", query)
	assert.Equal(t, []interface{}{domain.StatusArchived, now, "archived", "cancelled"}, args)
}

func TestEmptyInputsSkipQuery(t *testing.T) {
	// nil executor: любой запрос упал бы с паникой
	repo := NewRepository(nil)
	ctx := context.Background()

	commitments, err := repo.GetCommitmentsForTutors(ctx, domain.CommitmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, commitments)

	counts, err := repo.CountUpcomingByTutors(ctx, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, counts)

	bookings, err := repo.GetByFilter(ctx, domain.BookingsFilter{StudentIDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestBuildCancelQuery(t *testing.T) {
	query, args, err := buildCancelQuery(42, "cancelled by user 11").ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE bookings SET status = $1, updated_at = NOW(), note = CONCAT_WS(E'\\n', note, $2::text)")
	assert.Contains(t, query, "WHERE id = $3 AND status NOT IN ($4,$5)")
	assert.Contains(t, query, "RETURNING id, student_id")
	assert.Equal(t, []interface{}{domain.StatusCancelled, "cancelled by user 11", int64(42), "archived", "cancelled"}, args)

	query, _, err = buildCancelQuery(42, "").ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "CONCAT_WS")
}
