package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_Validate(t *testing.T) {
	tutor := int64(5)

	tests := []struct {
		name    string
		booking Booking
		wantErr bool
	}{
		{name: "open", booking: Booking{Status: StatusRequested}},
		{
			name:    "confirmed with tutor",
			booking: Booking{Status: StatusConfirmed, AssignedTutorID: &tutor, RequestedStart: hm(10, 0), RequestedEnd: hm(11, 0)},
		},
		{name: "requested with tutor", booking: Booking{Status: StatusRequested, AssignedTutorID: &tutor}, wantErr: true},
		{name: "confirmed without tutor", booking: Booking{Status: StatusConfirmed, RequestedStart: hm(10, 0), RequestedEnd: hm(11, 0)}, wantErr: true},
		{name: "confirmed without window", booking: Booking{Status: StatusConfirmed, AssignedTutorID: &tutor}, wantErr: true},
		{name: "archived keeps tutor", booking: Booking{Status: StatusArchived, AssignedTutorID: &tutor}},
		{name: "cancelled without tutor", booking: Booking{Status: StatusCancelled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.booking.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvariantViolated)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBooking_StatusPredicates(t *testing.T) {
	tutor := int64(5)

	open := Booking{Status: StatusRequested}
	assert.True(t, open.IsOpen())
	assert.False(t, open.IsClosed())

	confirmed := Booking{Status: StatusConfirmed, AssignedTutorID: &tutor}
	assert.False(t, confirmed.IsOpen())
	assert.True(t, confirmed.IsConfirmed())
	assert.True(t, confirmed.IsAssignedTo(5))
	assert.False(t, confirmed.IsAssignedTo(6))

	for _, s := range FinalStatuses {
		b := Booking{Status: s}
		assert.True(t, b.IsClosed(), s)
		assert.False(t, b.IsOpen(), s)
	}
}

func TestAppendNote(t *testing.T) {
	note := AppendNote(nil, "first")
	require.NotNil(t, note)
	assert.Equal(t, "first", *note)

	empty := ""
	assert.Equal(t, "first", *AppendNote(&empty, "first"))

	next := AppendNote(note, "second")
	assert.Equal(t, "first\nsecond", *next)
	assert.Equal(t, "first", *note, "original must not change")

	b := Booking{Note: next}
	assert.Equal(t, []string{"first", "second"}, b.NoteLines())
	assert.Nil(t, (&Booking{}).NoteLines())
}

func TestTutorAndStudent(t *testing.T) {
	tutor := Tutor{ID: 1, Skills: []int64{7, 8}, IsActive: true}
	assert.True(t, tutor.IsEligibleFor(7))
	assert.False(t, tutor.IsEligibleFor(9))

	tutor.IsActive = false
	assert.False(t, tutor.IsEligibleFor(7))

	assert.Equal(t, []int64{1, 2}, TutorIDs([]*Tutor{{ID: 1}, {ID: 2}}))

	parent := int64(30)
	assert.Equal(t, []int64{11, 30}, (&Student{UserID: 11, ParentUserID: &parent}).StakeholderUserIDs())
	assert.Equal(t, []int64{11}, (&Student{UserID: 11}).StakeholderUserIDs())
}
