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
	"context"
	"errors"
	"time"

	"go.uber.org/zap/zapcore"

	pkgerrors "github.com/lexdesk/textsync/pkg/errors"
)

// levelOf picks the severity of a failed request. Client mistakes are
// expected and logged quietly, broken server invariants are errors.
func levelOf(err error) zapcore.Level {
	if err == nil || errors.Is(err, context.Canceled) {
		return zapcore.DebugLevel
	}

	switch pkgerrors.StatusOf(err) {
	case pkgerrors.ErrCodeInvalidArgument, pkgerrors.ErrCodeNotFound, pkgerrors.ErrCodeAlreadyExists:
		return zapcore.InfoLevel
	case pkgerrors.ErrCodeFailedPrecondition, pkgerrors.ErrCodePermissionDenied,
		pkgerrors.ErrCodeUnauthenticated:
		return zapcore.WarnLevel
	case pkgerrors.ErrCodeInternal, pkgerrors.ErrCodeUnavailable:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// LogRequest logs a handled protocol message or HTTP request. Successful
// requests are logged at debug level.
func LogRequest(logger Logger, method string, duration time.Duration, err error) {
	if err == nil {
		logger.Debugf("REQ : %q %s", method, duration)
		return
	}

	const template = "REQ : %q %s => %q"
	switch levelOf(err) {
	case zapcore.DebugLevel:
		logger.Debugf(template, method, duration, err)
	case zapcore.InfoLevel:
		logger.Infof(template, method, duration, err)
	case zapcore.ErrorLevel:
		logger.Errorf(template, method, duration, err)
	default:
		logger.Warnf(template, method, duration, err)
	}
}
