/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	pkgerrors "github.com/lexdesk/textsync/pkg/errors"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected zapcore.Level
	}{
		{"nil error", nil, zapcore.DebugLevel},
		{"context canceled", fmt.Errorf("send: %w", context.Canceled), zapcore.DebugLevel},
		{"invalid argument", pkgerrors.InvalidArgument("invalid operation"), zapcore.InfoLevel},
		{"not found", pkgerrors.NotFound("document not found"), zapcore.InfoLevel},
		{"failed precondition", pkgerrors.FailedPrecond("version conflict"), zapcore.WarnLevel},
		{"permission denied", pkgerrors.PermissionDenied("document locked"), zapcore.WarnLevel},
		{"internal", pkgerrors.Internal("document corrupted"), zapcore.ErrorLevel},
		{"unavailable", pkgerrors.Unavailable("transport failure"), zapcore.ErrorLevel},
		{"plain error", errors.New("boom"), zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, levelOf(tt.err))
		})
	}
}

func TestLogRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	assert.NoError(t, SetLogFormat("json"))
	defer func() {
		SetOutput(os.Stdout)
		_ = SetLogFormat("console")
	}()

	logger := New("test", NewField("conn_id", "c1"))
	LogRequest(logger, "operation_submit", time.Millisecond, pkgerrors.NotFound("document not found"))
	assert.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "operation_submit")
	assert.Contains(t, buf.String(), `"conn_id":"c1"`)
	assert.Contains(t, buf.String(), `"L":"info"`)

	assert.Error(t, SetLogFormat("xml"))
	assert.Error(t, SetLogLevel("verbose"))
}

func TestContext(t *testing.T) {
	logger := New("ctx")
	ctx := With(context.Background(), logger)
	assert.Same(t, logger, From(ctx))
	assert.NotNil(t, From(context.Background()))
}
