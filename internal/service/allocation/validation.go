package allocation

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// validateDraft валидирует входные данные для создания бронирования
func validateDraft(draft *Draft, now time.Time) error {
	if draft == nil {
		return fmt.Errorf("%w: draft is required", ErrInvalidInput)
	}

	if draft.StudentID <= 0 {
		return fmt.Errorf("%w: student_id must be positive", ErrInvalidInput)
	}

	if draft.SubjectID <= 0 {
		return fmt.Errorf("%w: subject_id must be positive", ErrInvalidInput)
	}

	if draft.PackageID <= 0 {
		return fmt.Errorf("%w: package_id must be positive", ErrInvalidInput)
	}

	if draft.CurriculumID <= 0 {
		return fmt.Errorf("%w: curriculum_id must be positive", ErrInvalidInput)
	}

	if err := validateWindow(draft.Start, draft.End, now); err != nil {
		return err
	}

	if draft.Note != nil && len(*draft.Note) > domain.MaxNoteLength {
		return fmt.Errorf("%w: note must not exceed %d characters", ErrInvalidInput, domain.MaxNoteLength)
	}

	return nil
}

// validateWindow проверяет интервал занятия: start < end, в будущем, в допустимых пределах длительности
func validateWindow(start, end, now time.Time) error {
	window, err := domain.NewTimeWindow(start, end)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if !window.Start.After(now) {
		return fmt.Errorf("%w: session must start in the future", ErrInvalidInput)
	}

	duration := window.Duration()
	if duration < domain.MinSessionDuration {
		return fmt.Errorf("%w: session must be at least %s", ErrInvalidInput, domain.MinSessionDuration)
	}
	if duration > domain.MaxSessionDuration {
		return fmt.Errorf("%w: session must not exceed %s", ErrInvalidInput, domain.MaxSessionDuration)
	}

	return nil
}

// checkAccess проверяет, что вызывающий может создавать бронирования для ученика
func checkAccess(caller domain.Caller, student *domain.Student) error {
	switch {
	case caller.IsAdmin():
		return nil
	case caller.Role == domain.RoleStudent && caller.UserID == student.UserID:
		return nil
	case caller.Role == domain.RoleParent && student.ParentUserID != nil && *student.ParentUserID == caller.UserID:
		return nil
	}
	return fmt.Errorf("%w: user %d (%s) cannot book for student %d",
		ErrAccessDenied, caller.UserID, caller.Role, student.ID)
}
