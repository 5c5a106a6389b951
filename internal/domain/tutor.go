package domain

import "time"

// Tutor represents a service provider with a fixed skill set
type Tutor struct {
	ID        int64
	UserID    int64   // linked account
	Skills    []int64 // subject ids
	IsActive  bool
	CreatedAt time.Time
}

// HasSkill returns true if the tutor teaches the subject
func (t *Tutor) HasSkill(subjectID int64) bool {
	for _, s := range t.Skills {
		if s == subjectID {
			return true
		}
	}
	return false
}

// IsEligibleFor returns true if the tutor is active and teaches the subject
func (t *Tutor) IsEligibleFor(subjectID int64) bool {
	return t.IsActive && t.HasSkill(subjectID)
}

// TutorIDs extracts identifiers preserving order
func TutorIDs(tutors []*Tutor) []int64 {
	ids := make([]int64, 0, len(tutors))
	for _, t := range tutors {
		ids = append(ids, t.ID)
	}
	return ids
}

// Student represents a learner profile; parent account is optional
type Student struct {
	ID           int64
	UserID       int64
	ParentUserID *int64
}

// StakeholderUserIDs returns accounts that must hear about the student's bookings
func (s *Student) StakeholderUserIDs() []int64 {
	ids := []int64{s.UserID}
	if s.ParentUserID != nil && *s.ParentUserID != s.UserID {
		ids = append(ids, *s.ParentUserID)
	}
	return ids
}
