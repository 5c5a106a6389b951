package allocation

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Eligibility отбор преподавателей, которые могут вести предмет
type Eligibility struct {
	tutors TutorRepository
}

// NewEligibility создает новый экземпляр фильтра
func NewEligibility(tutors TutorRepository) *Eligibility {
	return &Eligibility{tutors: tutors}
}

// Eligible возвращает активных преподавателей с навыком subjectID.
// Пустой список - нормальный результат, не ошибка
func (e *Eligibility) Eligible(ctx context.Context, subjectID int64) ([]*domain.Tutor, error) {
	tutors, err := e.tutors.GetEligible(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get eligible tutors: %v", ErrInternal, err)
	}
	// Хранилище уже фильтрует, повторная проверка закрывает неактивных и лишних
	return FilterEligible(tutors, subjectID), nil
}

// FilterEligible оставляет только активных преподавателей с нужным навыком, порядок сохраняется
func FilterEligible(tutors []*domain.Tutor, subjectID int64) []*domain.Tutor {
	result := make([]*domain.Tutor, 0, len(tutors))
	for _, t := range tutors {
		if t != nil && t.IsEligibleFor(subjectID) {
			result = append(result, t)
		}
	}
	return result
}
