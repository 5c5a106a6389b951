package allocation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/booking"
	studentRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/student"
	tutorRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/tutor"
	catalogClient "github.com/m04kA/SMC-TutoringService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
	"github.com/m04kA/SMC-TutoringService/pkg/txmanager"
)

var errSerializationForTest = fmt.Errorf("%w: DoSerializable - 3 attempts", txmanager.ErrSerialization)

// memStore хранилище в памяти: бронирования, преподаватели, ученики, занятия.
// Транзакции сериализуются txMu
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
	tutors   map[int64]*domain.Tutor
	students map[int64]*domain.Student
	sessions map[int64]*domain.Session

	commitmentQueries int
	failCommitments   error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1000,
		bookings: make(map[int64]*domain.Booking),
		tutors:   make(map[int64]*domain.Tutor),
		students: make(map[int64]*domain.Student),
		sessions: make(map[int64]*domain.Session),
	}
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.AssignedTutorID != nil {
		id := *b.AssignedTutorID
		c.AssignedTutorID = &id
	}
	if b.Note != nil {
		n := *b.Note
		c.Note = &n
	}
	return &c
}

func (s *memStore) addTutor(id int64, active bool, skills ...int64) *domain.Tutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &domain.Tutor{ID: id, UserID: id + 100, Skills: skills, IsActive: active}
	s.tutors[id] = t
	return t
}

func (s *memStore) addStudent(id, userID int64, parentUserID *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[id] = &domain.Student{ID: id, UserID: userID, ParentUserID: parentUserID}
}

func (s *memStore) put(b *domain.Booking) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	}
	s.bookings[b.ID] = cloneBooking(b)
	return cloneBooking(b)
}

func (s *memStore) get(id int64) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	return cloneBooking(b)
}

func (s *memStore) all() []*domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		result = append(result, cloneBooking(b))
	}
	return result
}

// BookingRepository

func (s *memStore) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	return s.put(cloneBooking(b)), nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	if b := s.get(id); b != nil {
		return b, nil
	}
	return nil, bookingRepo.ErrBookingNotFound
}

func (s *memStore) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s *memStore) GetCommitmentsForTutors(_ context.Context, filter domain.CommitmentFilter) ([]domain.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitmentQueries++
	if s.failCommitments != nil {
		return nil, s.failCommitments
	}

	var result []domain.Commitment
	for _, b := range s.bookings {
		if b.AssignedTutorID == nil || !slices.Contains(filter.TutorIDs, *b.AssignedTutorID) {
			continue
		}
		if !slices.Contains(filter.Statuses, b.Status) {
			continue
		}
		if filter.ExcludeBookingID != nil && b.ID == *filter.ExcludeBookingID {
			continue
		}
		if !b.Window().Overlaps(filter.Window) {
			continue
		}
		result = append(result, domain.Commitment{
			BookingID: b.ID,
			TutorID:   *b.AssignedTutorID,
			Window:    b.Window(),
			Status:    b.Status,
		})
	}
	return result, nil
}

func (s *memStore) Assign(_ context.Context, params domain.AssignParams) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[params.BookingID]
	if !ok || !slices.Contains(params.ExpectedStatuses, b.Status) {
		return nil, bookingRepo.ErrStatusMismatch
	}
	tutorID := params.TutorID
	b.AssignedTutorID = &tutorID
	b.Status = domain.StatusConfirmed
	if params.NoteLine != "" {
		b.Note = domain.AppendNote(b.Note, params.NoteLine)
	}
	return cloneBooking(b), nil
}

func (s *memStore) AppendNote(_ context.Context, id int64, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Note = domain.AppendNote(b.Note, line)
	return nil
}

func (s *memStore) GetOpen(_ context.Context, filter domain.OpenBookingsFilter) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Booking
	for _, b := range s.bookings {
		if !b.IsOpen() || !b.RequestedStart.After(filter.From) {
			continue
		}
		if filter.SubjectIDs != nil && !slices.Contains(filter.SubjectIDs, b.SubjectID) {
			continue
		}
		result = append(result, cloneBooking(b))
	}
	slices.SortFunc(result, func(a, b *domain.Booking) int { return a.RequestedStart.Compare(b.RequestedStart) })
	if filter.Limit > 0 && uint64(len(result)) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *memStore) CountUpcomingByTutors(_ context.Context, tutorIDs []int64, from time.Time) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int, len(tutorIDs))
	for _, b := range s.bookings {
		if b.Status != domain.StatusConfirmed || b.AssignedTutorID == nil || !b.RequestedStart.After(from) {
			continue
		}
		if slices.Contains(tutorIDs, *b.AssignedTutorID) {
			counts[*b.AssignedTutorID]++
		}
	}
	return counts, nil
}

// tutorStore TutorRepository поверх memStore (имена методов пересекаются с бронированиями)
type tutorStore struct{ s *memStore }

func (t tutorStore) GetEligible(_ context.Context, subjectID int64) ([]*domain.Tutor, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var result []*domain.Tutor
	for _, tutor := range t.s.tutors {
		if tutor.IsEligibleFor(subjectID) {
			c := *tutor
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *domain.Tutor) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (t tutorStore) GetByID(_ context.Context, id int64) (*domain.Tutor, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if tutor, ok := t.s.tutors[id]; ok {
		c := *tutor
		return &c, nil
	}
	return nil, tutorRepo.ErrTutorNotFound
}

func (t tutorStore) GetByUserID(_ context.Context, userID int64) (*domain.Tutor, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, tutor := range t.s.tutors {
		if tutor.UserID == userID {
			c := *tutor
			return &c, nil
		}
	}
	return nil, tutorRepo.ErrTutorNotFound
}

func (t tutorStore) LockByID(ctx context.Context, id int64) (*domain.Tutor, error) {
	return t.GetByID(ctx, id)
}

type studentStore struct{ s *memStore }

func (st studentStore) GetByID(_ context.Context, id int64) (*domain.Student, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if student, ok := st.s.students[id]; ok {
		c := *student
		return &c, nil
	}
	return nil, studentRepo.ErrStudentNotFound
}

type sessionStore struct{ s *memStore }

func (ss sessionStore) Upsert(_ context.Context, session *domain.Session) (*domain.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	c := *session
	ss.s.sessions[session.BookingID] = &c
	return &c, nil
}

// memTxManager сериализует транзакции. Отката нет: в коммиттере после Assign
// ошибиться может только Upsert занятия, а в памяти он не падает
type memTxManager struct {
	s *memStore
	// failWith если задан, каждая транзакция завершается этой ошибкой
	failWith error
}

func (m *memTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	return fn(ctx)
}

// recordingNotifier запоминает все уведомления
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	UserID  int64
	Type    domain.EventType
	Payload map[string]any
}

func (n *recordingNotifier) Notify(_ context.Context, recipients []domain.Recipient, event domain.EventType, payload map[string]any) []domain.Recipient {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range recipients {
		n.events = append(n.events, sentEvent{UserID: r.UserID, Type: event, Payload: payload})
	}
	return nil
}

func (n *recordingNotifier) byType(event domain.EventType) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []sentEvent
	for _, e := range n.events {
		if e.Type == event {
			result = append(result, e)
		}
	}
	return result
}

type memGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (g *memGuard) MarkNotified(_ context.Context, bookingID, tutorID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[string]struct{})
	}
	k := fmt.Sprintf("%d:%d", bookingID, tutorID)
	if _, ok := g.seen[k]; ok {
		return false, nil
	}
	g.seen[k] = struct{}{}
	return true, nil
}

func (g *memGuard) Forget(_ context.Context, bookingID, tutorID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, fmt.Sprintf("%d:%d", bookingID, tutorID))
	return nil
}

type fakeCatalog struct {
	missingSubject    bool
	missingPackage    bool
	missingCurriculum bool
	err               error
}

func (c *fakeCatalog) GetSubject(_ context.Context, id int64) (*catalogClient.Subject, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.missingSubject {
		return nil, catalogClient.ErrSubjectNotFound
	}
	return &catalogClient.Subject{ID: id, Name: "Math"}, nil
}

func (c *fakeCatalog) GetPackage(_ context.Context, id int64) (*catalogClient.Package, error) {
	if c.missingPackage {
		return nil, catalogClient.ErrPackageNotFound
	}
	return &catalogClient.Package{ID: id}, nil
}

func (c *fakeCatalog) GetCurriculum(_ context.Context, id int64) (*catalogClient.Curriculum, error) {
	if c.missingCurriculum {
		return nil, catalogClient.ErrCurriculumNotFound
	}
	return &catalogClient.Curriculum{ID: id}, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	commits  map[string]int
	claims   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		outcomes: make(map[string]int),
		commits:  make(map[string]int),
		claims:   make(map[string]int),
	}
}

func (m *countingMetrics) IncAllocationOutcome(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[reason]++
}

func (m *countingMetrics) IncCommit(mode, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[mode+"/"+result]++
}

func (m *countingMetrics) IncClaim(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[result]++
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// firstSelector сохраняет входной порядок (по ID)
type firstSelector struct{}

func (firstSelector) Order(_ context.Context, free []*domain.Tutor) ([]*domain.Tutor, error) {
	return slices.Clone(free), nil
}

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// at возвращает момент testNow + сутки + h часов
func at(h int) time.Time {
	return testNow.Add(24*time.Hour + time.Duration(h)*time.Hour)
}

type harness struct {
	store       *memStore
	tx          *memTxManager
	notifier    *recordingNotifier
	guard       *memGuard
	catalog     *fakeCatalog
	metrics     *countingMetrics
	committer   *Committer
	broadcaster *Broadcaster
	engine      *Engine
}

func newHarness(selector Selector, opts Options) *harness {
	store := newMemStore()
	tx := &memTxManager{s: store}
	notifier := &recordingNotifier{}
	guard := &memGuard{}
	catalog := &fakeCatalog{}
	metrics := newCountingMetrics()
	log := logger.NewNop()
	clock := fixedClock{now: testNow}

	availability := NewAvailability(store, opts.RequestedBlocks)
	committer := NewCommitter(store, tutorStore{store}, studentStore{store}, sessionStore{store},
		availability, tx, notifier, metrics, log)
	committer.timeProvider = clock
	broadcaster := NewBroadcaster(store, guard, notifier, log)
	broadcaster.timeProvider = clock

	if selector == nil {
		selector = firstSelector{}
	}
	engine := NewEngine(store, tutorStore{store}, studentStore{store}, catalog,
		NewEligibility(tutorStore{store}), availability, selector, committer, broadcaster, metrics, log, opts)
	engine.timeProvider = clock

	// Ученик 1 (user 11, родитель 12)
	parent := int64(12)
	store.addStudent(1, 11, &parent)

	return &harness{
		store:       store,
		tx:          tx,
		notifier:    notifier,
		guard:       guard,
		catalog:     catalog,
		metrics:     metrics,
		committer:   committer,
		broadcaster: broadcaster,
		engine:      engine,
	}
}

func (h *harness) draft(subjectID int64, start, end time.Time) *Draft {
	return &Draft{
		Caller:       domain.Caller{UserID: 11, Role: domain.RoleStudent},
		StudentID:    1,
		SubjectID:    subjectID,
		PackageID:    5,
		CurriculumID: 6,
		Start:        start,
		End:          end,
	}
}

// confirmed добавляет подтверждённое бронирование преподавателя
func (h *harness) confirmed(tutorID, subjectID int64, start, end time.Time) *domain.Booking {
	id := tutorID
	return h.store.put(&domain.Booking{
		StudentID:       1,
		SubjectID:       subjectID,
		RequestedStart:  start,
		RequestedEnd:    end,
		AssignedTutorID: &id,
		Status:          domain.StatusConfirmed,
	})
}

// open добавляет открытое бронирование
func (h *harness) open(subjectID int64, start, end time.Time) *domain.Booking {
	return h.store.put(&domain.Booking{
		StudentID:      1,
		SubjectID:      subjectID,
		RequestedStart: start,
		RequestedEnd:   end,
		Status:         domain.StatusRequested,
	})
}
