package dbmetrics

import (
	"context"
	"database/sql"
	"time"
)

const defaultPoolStatsInterval = 15 * time.Second

// Recorder приёмник метрик запросов и пула соединений
type Recorder interface {
	ObserveDBQuery(operation string, duration time.Duration, err error)
	SetPoolStats(db string, open, inUse, idle int, waitCount int64)
}

// DB обёртка над *sql.DB, замеряющая длительность запросов
type DB struct {
	db       *sql.DB
	recorder Recorder
	name     string
}

// Wrap оборачивает *sql.DB; recorder может быть nil
func Wrap(db *sql.DB, recorder Recorder, name string) *DB {
	return &DB{db: db, recorder: recorder, name: name}
}

// WrapWithDefault оборачивает *sql.DB и запускает сбор статистики пула
// до закрытия stopCh
func WrapWithDefault(db *sql.DB, recorder Recorder, name string, stopCh <-chan struct{}) *DB {
	wrapped := Wrap(db, recorder, name)
	go wrapped.collectPoolStats(defaultPoolStatsInterval, stopCh)
	return wrapped
}

func (d *DB) collectPoolStats(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.recordPoolStats()
		case <-stopCh:
			return
		}
	}
}

func (d *DB) recordPoolStats() {
	if d.recorder == nil {
		return
	}
	stats := d.db.Stats()
	d.recorder.SetPoolStats(d.name, stats.OpenConnections, stats.InUse, stats.Idle, stats.WaitCount)
}

func (d *DB) observe(operation string, start time.Time, err error) {
	if d.recorder == nil {
		return
	}
	d.recorder.ObserveDBQuery(operation, time.Since(start), err)
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.observe("exec", start, err)
	return res, err
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.observe("query", start, err)
	return rows, err
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := d.db.QueryRowContext(ctx, query, args...)
	d.observe("query_row", start, row.Err())
	return row
}

// BeginTx начинает транзакцию, запросы внутри неё тоже замеряются
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (TxExecutor, error) {
	start := time.Now()
	tx, err := d.db.BeginTx(ctx, opts)
	d.observe("begin", start, err)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, parent: d}, nil
}

// Unwrap возвращает исходный *sql.DB
func (d *DB) Unwrap() *sql.DB {
	return d.db
}

// Tx транзакция с замером запросов
type Tx struct {
	tx     *sql.Tx
	parent *DB
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, query, args...)
	t.parent.observe("tx_exec", start, err)
	return res, err
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.QueryContext(ctx, query, args...)
	t.parent.observe("tx_query", start, err)
	return rows, err
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := t.tx.QueryRowContext(ctx, query, args...)
	t.parent.observe("tx_query_row", start, row.Err())
	return row
}

func (t *Tx) Commit() error {
	start := time.Now()
	err := t.tx.Commit()
	t.parent.observe("commit", start, err)
	return err
}

func (t *Tx) Rollback() error {
	start := time.Now()
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return err
	}
	t.parent.observe("rollback", start, err)
	return err
}

// SqlDBBeginner адаптирует *sql.DB к интерфейсу BeginTx(...) (TxExecutor, error)
type SqlDBBeginner struct {
	*sql.DB
}

func (b SqlDBBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (TxExecutor, error) {
	tx, err := b.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SqlTxWrapper{Tx: tx}, nil
}
