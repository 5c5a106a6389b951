package domain

import (
	"errors"
	"time"
)

// ErrInvalidWindow возвращается, когда конец интервала не позже начала
var ErrInvalidWindow = errors.New("domain: window end must be after start")

// TimeWindow is a half-open interval [Start, End)
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow creates a window and rejects end <= start
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !end.After(start) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals intersect.
// Windows that only touch at a boundary do not overlap:
// [09:00,10:00) and [10:00,11:00) are disjoint.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns the window length
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// IsPast returns true if the window has ended by now
func (w TimeWindow) IsPast(now time.Time) bool {
	return !w.End.After(now)
}

// IsValid returns true if the window is non-empty
func (w TimeWindow) IsValid() bool {
	return w.End.After(w.Start)
}
