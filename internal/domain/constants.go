package domain

import "time"

// Default allocation values
const (
	DefaultMaxCommitAttempts = 3
	DefaultArchiveInterval   = time.Hour
	DefaultRebroadcastEvery  = 15 * time.Minute
)

// Business validation constants
const (
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 8 * time.Hour
	MaxNoteLength      = 500
)

// Time format constants
const (
	NoteTimeFormat = time.RFC3339
)

// Allocation outcome reasons
const (
	ReasonAssigned           = "assigned"
	ReasonNoEligibleTutor    = "no_eligible_tutor"
	ReasonAllBusy            = "all_busy"
	ReasonConflictsExhausted = "conflicts_exhausted"
)
