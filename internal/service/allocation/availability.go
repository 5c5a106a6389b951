package allocation

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Availability проверка занятости преподавателей на интервале
type Availability struct {
	commitments CommitmentReader
	statuses    []domain.BookingStatus
}

// NewAvailability создает новый экземпляр проверки занятости.
// requestedBlocks: учитывать requested-бронирования как занятость
func NewAvailability(commitments CommitmentReader, requestedBlocks bool) *Availability {
	statuses := domain.ConfirmedOnlyStatuses
	if requestedBlocks {
		statuses = domain.CommitmentStatuses
	}
	return &Availability{
		commitments: commitments,
		statuses:    statuses,
	}
}

// Partition делит кандидатов на свободных и занятых одним запросом к хранилищу.
// Относительный порядок кандидатов сохраняется в обеих частях
func (a *Availability) Partition(ctx context.Context, candidates []*domain.Tutor, window domain.TimeWindow) (free, busy []*domain.Tutor, err error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	busyIDs, err := a.busySet(ctx, domain.TutorIDs(candidates), window, nil)
	if err != nil {
		return nil, nil, err
	}

	free = make([]*domain.Tutor, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := busyIDs[t.ID]; ok {
			busy = append(busy, t)
			continue
		}
		free = append(free, t)
	}
	return free, busy, nil
}

// IsBusy проверяет одного преподавателя; excludeBookingID исключает само переназначаемое бронирование
func (a *Availability) IsBusy(ctx context.Context, tutorID int64, window domain.TimeWindow, excludeBookingID *int64) (bool, error) {
	busyIDs, err := a.busySet(ctx, []int64{tutorID}, window, excludeBookingID)
	if err != nil {
		return false, err
	}
	_, ok := busyIDs[tutorID]
	return ok, nil
}

func (a *Availability) busySet(ctx context.Context, tutorIDs []int64, window domain.TimeWindow, exclude *int64) (map[int64]struct{}, error) {
	commitments, err := a.commitments.GetCommitmentsForTutors(ctx, domain.CommitmentFilter{
		TutorIDs:         tutorIDs,
		Window:           window,
		Statuses:         a.statuses,
		ExcludeBookingID: exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get commitments: %v", ErrInternal, err)
	}

	busy := make(map[int64]struct{}, len(commitments))
	for _, c := range commitments {
		// Хранилище отдаёт только пересечения, но полуинтервальная проверка здесь определяющая
		if exclude != nil && c.BookingID == *exclude {
			continue
		}
		if c.Window.Overlaps(window) {
			busy[c.TutorID] = struct{}{}
		}
	}
	return busy, nil
}
