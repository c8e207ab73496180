// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logging

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger routes GORM's query log into zap.
type GormLogger struct {
	log      *zap.Logger
	logLevel logger.LogLevel
}

func NewGormLogger(log *zap.Logger, level logger.LogLevel) logger.Interface {
	return &GormLogger{log: log.Named("gorm"), logLevel: level}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &GormLogger{log: l.log, logLevel: level}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(
	ctx context.Context,
	begin time.Time,
	fc func() (string, int64),
	err error,
) {
	if l.logLevel <= logger.Silent {
		return
	}

	sql, rows := fc()
	elapsed := time.Since(begin)

	if err != nil {
		// item lookups miss all the time; GetItem on an absent key is not a failure
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.log.Debug("item not found",
				zap.String("sql", sql),
				zap.Duration("duration", elapsed),
			)
			return
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			l.log.Info("duplicate key",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("sql", sql),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
			return
		}

		l.log.Warn("query failed",
			zap.String("sql", sql),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return
	}

	l.log.Debug("query",
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("duration", elapsed),
	)
}
