package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// slogWriter feeds gorm's logger into slog.
type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.log.Info(fmt.Sprintf(format, args...))
}

func newGormLogger(log *slog.Logger, level logger.LogLevel) logger.Interface {
	if log == nil {
		log = slog.Default()
	}
	return logger.New(slogWriter{log: log.With("service", "database")}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
