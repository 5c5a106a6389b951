package tutor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/psqlbuilder"
)

var tutorColumns = []string{"id", "user_id", "skills", "is_active", "created_at"}

// Repository репозиторий профилей преподавателей
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetEligible возвращает активных преподавателей, у которых в навыках есть предмет
func (r *Repository) GetEligible(ctx context.Context, subjectID int64) ([]*domain.Tutor, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildEligibleQuery(subjectID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetEligible - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetEligible - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	tutors := make([]*domain.Tutor, 0)
	for rows.Next() {
		tutor, err := scanTutor(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetEligible - scan row: %w", ErrScanRow, err)
		}
		tutors = append(tutors, tutor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetEligible - rows error: %w", ErrScanRow, err)
	}

	return tutors, nil
}

func buildEligibleQuery(subjectID int64) squirrel.SelectBuilder {
	return psqlbuilder.Select(tutorColumns...).
		From("tutors").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Expr("skills @> ARRAY[?]::bigint[]", subjectID)).
		OrderBy("id ASC")
}

// GetByID получает преподавателя по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Tutor, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id}, false)
}

// GetByUserID получает профиль преподавателя по аккаунту
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*domain.Tutor, error) {
	return r.getOne(ctx, "GetByUserID", squirrel.Eq{"user_id": userID}, false)
}

// LockByID блокирует строку преподавателя до конца транзакции.
// Сериализует всех, кто проверяет и меняет занятость этого преподавателя
func (r *Repository) LockByID(ctx context.Context, id int64) (*domain.Tutor, error) {
	return r.getOne(ctx, "LockByID", squirrel.Eq{"id": id}, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq, forUpdate bool) (*domain.Tutor, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(tutorColumns...).
		From("tutors").
		Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %w", ErrBuildQuery, op, err)
	}

	tutor, err := scanTutor(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTutorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan tutor: %w", ErrScanRow, op, err)
	}

	return tutor, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTutor(row rowScanner) (*domain.Tutor, error) {
	var tutor domain.Tutor
	var skills pq.Int64Array
	var createdAt sql.NullTime

	if err := row.Scan(&tutor.ID, &tutor.UserID, &skills, &tutor.IsActive, &createdAt); err != nil {
		return nil, err
	}

	tutor.Skills = []int64(skills)
	tutor.CreatedAt = createdAt.Time

	return &tutor, nil
}
