package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) time.Time {
	return time.Date(2026, 3, 3, h, m, 0, 0, time.UTC)
}

func TestNewTimeWindow(t *testing.T) {
	w, err := NewTimeWindow(hm(10, 0), hm(11, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, w.Duration())
	assert.True(t, w.IsValid())

	_, err = NewTimeWindow(hm(10, 0), hm(10, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewTimeWindow(hm(11, 0), hm(10, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestTimeWindow_Overlaps(t *testing.T) {
	base := TimeWindow{Start: hm(10, 0), End: hm(11, 0)}

	tests := []struct {
		name  string
		other TimeWindow
		want  bool
	}{
		{name: "partial overlap at end", other: TimeWindow{Start: hm(10, 30), End: hm(11, 30)}, want: true},
		{name: "partial overlap at start", other: TimeWindow{Start: hm(9, 30), End: hm(10, 30)}, want: true},
		{name: "contained", other: TimeWindow{Start: hm(10, 15), End: hm(10, 45)}, want: true},
		{name: "containing", other: TimeWindow{Start: hm(9, 0), End: hm(12, 0)}, want: true},
		{name: "identical", other: base, want: true},
		{name: "touching before", other: TimeWindow{Start: hm(9, 0), End: hm(10, 0)}, want: false},
		{name: "touching after", other: TimeWindow{Start: hm(11, 0), End: hm(12, 0)}, want: false},
		{name: "disjoint", other: TimeWindow{Start: hm(13, 0), End: hm(14, 0)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestTimeWindow_IsPast(t *testing.T) {
	w := TimeWindow{Start: hm(10, 0), End: hm(11, 0)}

	assert.False(t, w.IsPast(hm(9, 0)))
	assert.False(t, w.IsPast(hm(10, 30)))
	assert.True(t, w.IsPast(hm(11, 0)))
	assert.True(t, w.IsPast(hm(12, 0)))
}
