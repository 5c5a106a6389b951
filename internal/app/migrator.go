package app

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

type Logger interface {
	Info(format string, v ...interface{})
}

// Migrator обёртка над goose, миграции берутся из встроенной FS
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger Logger
}

// NewMigrator создаёт мигратор; dir - каталог внутри fsys ("." для migrations.FS)
func NewMigrator(db *sql.DB, fsys fs.FS, dir string, logger Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	return &Migrator{
		db:     db,
		fsys:   fsys,
		dir:    dir,
		logger: logger,
	}, nil
}

// Run применяет все pending миграции
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("Applying database migrations...")

	goose.SetBaseFS(mg.fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, mg.db, mg.dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := mg.Version(ctx)
	if err != nil {
		return err
	}

	mg.logger.Info("Migrations applied successfully (version=%d)", version)
	return nil
}

// Version показывает текущую версию миграций
func (mg *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, mg.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
