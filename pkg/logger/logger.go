package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format формат вывода логов
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger printf-логгер поверх zap.SugaredLogger
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// New создаёт логгер с выводом в stdout и, если указан, в файл
// level: debug | info | warn | error
func New(file, level, format string) (*Logger, error) {
	var cfg zap.Config
	if format == FormatConsole {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("logger: invalid level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	cfg.OutputPaths = []string{"stdout"}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log dir: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}

	return &Logger{sugar: base.Sugar(), base: base}, nil
}

// NewNop логгер, который ничего не пишет (для тестов)
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{sugar: base.Sugar(), base: base}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Fatal пишет сообщение и завершает процесс
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

// With возвращает логгер с дополнительными структурированными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	base := l.base.With(fields...)
	return &Logger{sugar: base.Sugar(), base: base}
}

// Zap возвращает нижележащий zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Close сбрасывает буферы
func (l *Logger) Close() error {
	err := l.base.Sync()
	// Sync на stdout возвращает EINVAL/ENOTTY на части платформ
	if err != nil && (strings.Contains(err.Error(), "invalid argument") || strings.Contains(err.Error(), "inappropriate ioctl")) {
		return nil
	}
	return err
}
