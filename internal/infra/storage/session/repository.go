package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/psqlbuilder"
)

// Repository репозиторий занятий (sessions), по одному на бронирование
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Upsert создаёт занятие для бронирования или сбрасывает существующее в scheduled с новым окном
func (r *Repository) Upsert(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := buildUpsertQuery(session).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&session.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %w", ErrExecQuery, err)
	}

	session.CreatedAt = createdAt.Time
	session.UpdatedAt = updatedAt.Time

	return session, nil
}

func buildUpsertQuery(session *domain.Session) squirrel.InsertBuilder {
	return psqlbuilder.Insert("sessions").
		Columns("booking_id", "start_time", "end_time", "status").
		Values(session.BookingID, session.StartTime, session.EndTime, session.Status).
		Suffix(`ON CONFLICT (booking_id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`)
}

// SetStatusByBooking меняет статус занятия бронирования; отсутствие занятия не ошибка
func (r *Repository) SetStatusByBooking(ctx context.Context, bookingID int64, status domain.SessionStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("sessions").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"booking_id": bookingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SetStatusByBooking - build update query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: SetStatusByBooking - execute update: %w", ErrExecQuery, err)
	}

	return nil
}
