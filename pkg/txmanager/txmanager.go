package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 20 * time.Millisecond
)

// SQLSTATE, при которых транзакцию безопасно повторить
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

var (
	// ErrBeginTx возвращается, если не удалось начать транзакцию
	ErrBeginTx = errors.New("txmanager: failed to begin transaction")

	// ErrCommitTx возвращается, если не удалось зафиксировать транзакцию
	ErrCommitTx = errors.New("txmanager: failed to commit transaction")

	// ErrSerialization возвращается, когда повторы serializable-транзакции исчерпаны
	ErrSerialization = errors.New("txmanager: serialization failure")
)

// TxBeginner источник транзакций (*dbmetrics.DB или dbmetrics.SqlDBBeginner)
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// Manager выполняет функции внутри транзакции, переданной через контекст
type Manager struct {
	db         TxBeginner
	maxRetries int
	backoff    time.Duration
}

type Option func(*Manager)

// WithMaxRetries число попыток для serializable-транзакций (>= 1)
func WithMaxRetries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// WithBackoff базовая пауза между попытками, растёт линейно
func WithBackoff(d time.Duration) Option {
	return func(m *Manager) {
		m.backoff = d
	}
}

func NewTransactionManager(db TxBeginner, opts ...Option) *Manager {
	m := &Manager{
		db:         db,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do выполняет fn в транзакции READ COMMITTED
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// DoReadOnly выполняет fn в read-only транзакции
func (m *Manager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

// DoSerializable выполняет fn в SERIALIZABLE транзакции.
// При 40001/40P01 транзакция повторяется целиком, не более maxRetries раз.
func (m *Manager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	// Вложенный вызов: работаем во внешней транзакции, повторять будет она
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		lastErr = m.run(ctx, opts, fn)
		if lastErr == nil || !IsSerializationFailure(lastErr) {
			return lastErr
		}

		if attempt == m.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: DoSerializable - %d attempts: %w", ErrSerialization, m.maxRetries, lastErr)
}

func (m *Manager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginTx, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dbmetrics.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitTx, err)
	}

	return nil
}

// IsSerializationFailure возвращает true для ошибок, после которых транзакцию можно повторить
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
	}
	return false
}
