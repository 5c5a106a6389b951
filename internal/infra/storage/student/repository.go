package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/psqlbuilder"
)

// Repository репозиторий профилей учеников (только чтение)
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает ученика по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByUserID получает профиль ученика по аккаунту
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*domain.Student, error) {
	return r.getOne(ctx, "GetByUserID", squirrel.Eq{"user_id": userID})
}

// GetByParentUserID возвращает всех детей родителя
func (r *Repository) GetByParentUserID(ctx context.Context, parentUserID int64) ([]*domain.Student, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "user_id", "parent_user_id").
		From("students").
		Where(squirrel.Eq{"parent_user_id": parentUserID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByParentUserID - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByParentUserID - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	students := make([]*domain.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetByParentUserID - scan row: %w", ErrScanRow, err)
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetByParentUserID - rows error: %w", ErrScanRow, err)
	}

	return students, nil
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq) (*domain.Student, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "user_id", "parent_user_id").
		From("students").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %w", ErrBuildQuery, op, err)
	}

	s, err := scanStudent(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan student: %w", ErrScanRow, op, err)
	}

	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*domain.Student, error) {
	var s domain.Student
	var parentUserID sql.NullInt64

	if err := row.Scan(&s.ID, &s.UserID, &parentUserID); err != nil {
		return nil, err
	}
	if parentUserID.Valid {
		id := parentUserID.Int64
		s.ParentUserID = &id
	}

	return &s, nil
}
