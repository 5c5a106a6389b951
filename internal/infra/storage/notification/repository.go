package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/psqlbuilder"
)

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("notification.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("notification.repository: failed to execute query")
)

// Repository хранилище in-app уведомлений
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет уведомление пользователя
func (r *Repository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - marshal payload: %w", ErrBuildQuery, err)
	}

	query, args, err := psqlbuilder.Insert("notifications").
		Columns("user_id", "type", "payload").
		Values(n.UserID, n.Type, string(payload)).
		Suffix("RETURNING id, is_read, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.IsRead, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}
	n.CreatedAt = createdAt.Time

	return n, nil
}
