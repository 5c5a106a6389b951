package allocation

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

// Selector упорядочивает свободных преподавателей по предпочтению.
// Первый элемент - основной кандидат, остальные - запасные при конфликте коммита
type Selector interface {
	Order(ctx context.Context, free []*domain.Tutor) ([]*domain.Tutor, error)
}

// RandomSelector равномерный случайный выбор
type RandomSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSelector создает селектор; src можно зафиксировать в тестах
func NewRandomSelector(src rand.Source) *RandomSelector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomSelector{rnd: rand.New(src)}
}

// Order возвращает случайную перестановку, входной срез не меняется
func (s *RandomSelector) Order(_ context.Context, free []*domain.Tutor) ([]*domain.Tutor, error) {
	ordered := slices.Clone(free)

	s.mu.Lock()
	s.rnd.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	s.mu.Unlock()

	return ordered, nil
}

// TutorLoad преподаватель и число его будущих подтверждённых занятий
type TutorLoad struct {
	Tutor    *domain.Tutor
	Upcoming int
}

// TutorComparator сравнение двух кандидатов: < 0 если a предпочтительнее b
type TutorComparator func(a, b TutorLoad) int

// ByLoadThenID меньше будущих занятий - выше; при равенстве меньший ID
func ByLoadThenID(a, b TutorLoad) int {
	if c := cmp.Compare(a.Upcoming, b.Upcoming); c != 0 {
		return c
	}
	return cmp.Compare(a.Tutor.ID, b.Tutor.ID)
}

// LoadSelector детерминированный выбор наименее загруженного преподавателя
type LoadSelector struct {
	loads        LoadCounter
	compare      TutorComparator
	timeProvider TimeProvider
}

// NewLoadSelector создает селектор; compare == nil означает ByLoadThenID
func NewLoadSelector(loads LoadCounter, compare TutorComparator) *LoadSelector {
	if compare == nil {
		compare = ByLoadThenID
	}
	return &LoadSelector{
		loads:        loads,
		compare:      compare,
		timeProvider: &RealTimeProvider{},
	}
}

// Order сортирует кандидатов по компаратору
func (s *LoadSelector) Order(ctx context.Context, free []*domain.Tutor) ([]*domain.Tutor, error) {
	if len(free) == 0 {
		return nil, nil
	}

	counts, err := s.loads.CountUpcomingByTutors(ctx, domain.TutorIDs(free), s.timeProvider.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count tutor load: %v", ErrInternal, err)
	}

	loads := make([]TutorLoad, 0, len(free))
	for _, t := range free {
		loads = append(loads, TutorLoad{Tutor: t, Upcoming: counts[t.ID]})
	}
	slices.SortStableFunc(loads, s.compare)

	ordered := make([]*domain.Tutor, 0, len(loads))
	for _, l := range loads {
		ordered = append(ordered, l.Tutor)
	}
	return ordered, nil
}
