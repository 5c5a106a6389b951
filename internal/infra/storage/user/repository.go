package user

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

var (
	// ErrUserNotFound возвращается, когда аккаунт не найден
	ErrUserNotFound = errors.New("user.repository: user not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("user.repository: failed to build query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("user.repository: failed to scan row")
)

// Repository каналы связи пользователей
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetContact возвращает каналы доставки уведомлений для аккаунта
func (r *Repository) GetContact(ctx context.Context, userID int64) (*domain.Contact, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "telegram_chat_id").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetContact - build select query: %w", ErrBuildQuery, err)
	}

	var contact domain.Contact
	var chatID sql.NullInt64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&contact.UserID, &chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetContact - scan user: %w", ErrScanRow, err)
	}

	if chatID.Valid {
		id := chatID.Int64
		contact.TelegramChatID = &id
	}

	return &contact, nil
}
