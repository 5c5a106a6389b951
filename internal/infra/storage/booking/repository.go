package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"student_id",
	"subject_id",
	"package_id",
	"curriculum_id",
	"requested_start",
	"requested_end",
	"assigned_tutor_id",
	"status",
	"note",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование в статусе, указанном в booking (обычно requested)
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"student_id",
			"subject_id",
			"package_id",
			"curriculum_id",
			"requested_start",
			"requested_end",
			"status",
			"note",
		).
		Values(
			booking.StudentID,
			booking.SubjectID,
			booking.PackageID,
			booking.CurriculumID,
			booking.RequestedStart,
			booking.RequestedEnd,
			booking.Status,
			booking.Note,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает бронирование с блокировкой строки (SELECT ... FOR UPDATE)
// Блокировка действует только внутри транзакции из контекста
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getByID(ctx, id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildGetByIDQuery(id, forUpdate).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %w", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %w", ErrScanRow, err)
	}

	return booking, nil
}

func buildGetByIDQuery(id int64, forUpdate bool) squirrel.SelectBuilder {
	builder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	return builder
}

// GetCommitmentsForTutors возвращает занятость преподавателей, пересекающуюся с окном.
// Один bulk-запрос на весь список кандидатов; интервалы полуоткрытые:
// start < window.end AND end > window.start
func (r *Repository) GetCommitmentsForTutors(ctx context.Context, filter domain.CommitmentFilter) ([]domain.Commitment, error) {
	if len(filter.TutorIDs) == 0 {
		return []domain.Commitment{}, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildCommitmentsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetCommitmentsForTutors - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetCommitmentsForTutors - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	commitments := make([]domain.Commitment, 0)
	for rows.Next() {
		var c domain.Commitment
		if err := rows.Scan(&c.BookingID, &c.TutorID, &c.Window.Start, &c.Window.End, &c.Status); err != nil {
			return nil, fmt.Errorf("%w: GetCommitmentsForTutors - scan row: %w", ErrScanRow, err)
		}
		commitments = append(commitments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetCommitmentsForTutors - rows error: %w", ErrScanRow, err)
	}

	return commitments, nil
}

func buildCommitmentsQuery(filter domain.CommitmentFilter) squirrel.SelectBuilder {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = domain.CommitmentStatuses
	}

	builder := psqlbuilder.Select(
		"id",
		"assigned_tutor_id",
		"requested_start",
		"requested_end",
		"status",
	).
		From("bookings").
		Where(squirrel.Eq{"assigned_tutor_id": filter.TutorIDs}).
		Where(squirrel.Eq{"status": statusStrings(statuses)}).
		Where(squirrel.Lt{"requested_start": filter.Window.End}).
		Where(squirrel.Gt{"requested_end": filter.Window.Start}).
		OrderBy("assigned_tutor_id ASC", "requested_start ASC")

	if filter.ExcludeBookingID != nil {
		builder = builder.Where(squirrel.NotEq{"id": *filter.ExcludeBookingID})
	}

	return builder
}

// Assign назначает преподавателя и переводит бронирование в confirmed.
// Обновление выполняется только из ожидаемых статусов; если строка не обновлена - ErrStatusMismatch
func (r *Repository) Assign(ctx context.Context, params domain.AssignParams) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildAssignQuery(params).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Assign - build update query: %w", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusMismatch
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Assign - execute update: %w", ErrExecQuery, err)
	}

	return booking, nil
}

func buildAssignQuery(params domain.AssignParams) squirrel.UpdateBuilder {
	builder := psqlbuilder.Update("bookings").
		Set("assigned_tutor_id", params.TutorID).
		Set("status", domain.StatusConfirmed).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": params.BookingID}).
		Where(squirrel.Eq{"status": statusStrings(params.ExpectedStatuses)}).
		Suffix("RETURNING " + strings.Join(bookingColumns, ", "))

	if params.NoteLine != "" {
		builder = builder.Set("note", appendNoteExpr(params.NoteLine))
	}

	return builder
}

// Cancel переводит бронирование в cancelled из requested/confirmed, преподаватель сохраняется как история.
// Если бронирование уже в финальном статусе - ErrStatusMismatch
func (r *Repository) Cancel(ctx context.Context, id int64, noteLine string) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildCancelQuery(id, noteLine).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Cancel - build update query: %w", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusMismatch
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Cancel - execute update: %w", ErrExecQuery, err)
	}

	return booking, nil
}

func buildCancelQuery(id int64, noteLine string) squirrel.UpdateBuilder {
	builder := psqlbuilder.Update("bookings").
		Set("status", domain.StatusCancelled).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"status": statusStrings(domain.FinalStatuses)}).
		Suffix("RETURNING " + strings.Join(bookingColumns, ", "))

	if noteLine != "" {
		builder = builder.Set("note", appendNoteExpr(noteLine))
	}

	return builder
}

// AppendNote дописывает строку в журнал решений по бронированию
func (r *Repository) AppendNote(ctx context.Context, id int64, line string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("note", appendNoteExpr(line)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: AppendNote - build update query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: AppendNote - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: AppendNote - get rows affected: %w", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func appendNoteExpr(line string) squirrel.Sqlizer {
	// CONCAT_WS пропускает NULL: первая запись не получает ведущий перевод строки
	return squirrel.Expr("CONCAT_WS(E'\\n', note, ?::text)", line)
}

// GetOpen возвращает открытые бронирования (requested, без преподавателя), начинающиеся после filter.From
func (r *Repository) GetOpen(ctx context.Context, filter domain.OpenBookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildOpenQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetOpen - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetOpen - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func buildOpenQuery(filter domain.OpenBookingsFilter) squirrel.SelectBuilder {
	builder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"status": domain.StatusRequested}).
		Where(squirrel.Eq{"assigned_tutor_id": nil}).
		Where(squirrel.Gt{"requested_start": filter.From}).
		OrderBy("requested_start ASC")

	if filter.SubjectIDs != nil {
		builder = builder.Where(squirrel.Eq{"subject_id": filter.SubjectIDs})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	return builder
}

// GetByFilter возвращает бронирования учеников и/или преподавателя, новые сначала
func (r *Repository) GetByFilter(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	if filter.StudentIDs != nil && len(filter.StudentIDs) == 0 && filter.TutorID == nil {
		return []*domain.Booking{}, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildFilterQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByFilter - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func buildFilterQuery(filter domain.BookingsFilter) squirrel.SelectBuilder {
	builder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		OrderBy("requested_start DESC")

	if filter.StudentIDs != nil {
		builder = builder.Where(squirrel.Eq{"student_id": filter.StudentIDs})
	}
	if filter.TutorID != nil {
		builder = builder.Where(squirrel.Eq{"assigned_tutor_id": *filter.TutorID})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": *filter.Status})
	}

	return builder
}

// CountUpcomingByTutors считает будущие подтверждённые занятия каждого преподавателя одним запросом
// Преподаватели без занятий в результат не попадают
func (r *Repository) CountUpcomingByTutors(ctx context.Context, tutorIDs []int64, from time.Time) (map[int64]int, error) {
	counts := make(map[int64]int, len(tutorIDs))
	if len(tutorIDs) == 0 {
		return counts, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("assigned_tutor_id", "COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"assigned_tutor_id": tutorIDs}).
		Where(squirrel.Eq{"status": domain.StatusConfirmed}).
		Where(squirrel.Gt{"requested_end": from}).
		GroupBy("assigned_tutor_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CountUpcomingByTutors - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CountUpcomingByTutors - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tutorID int64
		var count int
		if err := rows.Scan(&tutorID, &count); err != nil {
			return nil, fmt.Errorf("%w: CountUpcomingByTutors - scan row: %w", ErrScanRow, err)
		}
		counts[tutorID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CountUpcomingByTutors - rows error: %w", ErrScanRow, err)
	}

	return counts, nil
}

// ArchivePast переводит в archived все нефинальные бронирования, закончившиеся до now
func (r *Repository) ArchivePast(ctx context.Context, now time.Time) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildArchiveQuery(now).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: ArchivePast - build update query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: ArchivePast - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: ArchivePast - get rows affected: %w", ErrExecQuery, err)
	}

	return rowsAffected, nil
}

func buildArchiveQuery(now time.Time) squirrel.UpdateBuilder {
	return psqlbuilder.Update("bookings").
		Set("status", domain.StatusArchived).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Lt{"requested_end": now}).
		Where(squirrel.NotEq{"status": statusStrings(domain.FinalStatuses)})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var assignedTutorID sql.NullInt64
	var note sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.SubjectID,
		&booking.PackageID,
		&booking.CurriculumID,
		&booking.RequestedStart,
		&booking.RequestedEnd,
		&assignedTutorID,
		&booking.Status,
		&note,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTutorID.Valid {
		id := assignedTutorID.Int64
		booking.AssignedTutorID = &id
	}
	if note.Valid {
		text := note.String
		booking.Note = &text
	}
	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %w", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %w", ErrScanRow, err)
	}

	return bookings, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}
