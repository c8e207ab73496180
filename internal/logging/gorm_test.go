// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"retailagent/internal/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := logging.NewGormLogger(zap.New(core), logger.Info)

	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(context.Background(), time.Now(), sql, nil)
	gl.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	gl.Trace(context.Background(), time.Now(), sql, errors.New("boom"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "query" || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("unexpected success entry: %+v", entries[0])
	}
	if entries[1].Message != "item not found" || entries[1].Level != zapcore.DebugLevel {
		t.Fatalf("unexpected not-found entry: %+v", entries[1])
	}
	if entries[2].Message != "query failed" || entries[2].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected failure entry: %+v", entries[2])
	}
}

func TestGormLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := logging.NewGormLogger(zap.New(core), logger.Silent)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, nil)

	if logs.Len() != 0 {
		t.Fatalf("silent logger should not emit, got %d entries", logs.Len())
	}
}
