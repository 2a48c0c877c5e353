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

// Package interceptors provides the middlewares of the HTTP endpoints:
// request scoped loggers, request logging and handled request metrics.
package interceptors

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

// Sequence generates request and connection IDs for loggers.
type Sequence struct {
	prefix string
	id     int32
}

// NewSequence creates a Sequence whose IDs start with prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next ID.
func (s *Sequence) Next() string {
	next := atomic.AddInt32(&s.id, 1)
	return s.prefix + strconv.Itoa(int(next))
}

// HTTPInterceptor logs every request and counts it in the metrics.
type HTTPInterceptor struct {
	requestID *Sequence
	metrics   *prometheus.Metrics
}

// NewHTTPInterceptor creates a new instance of HTTPInterceptor.
func NewHTTPInterceptor(metrics *prometheus.Metrics) *HTTPInterceptor {
	return &HTTPInterceptor{
		requestID: NewSequence("r"),
		metrics:   metrics,
	}
}

// Handler returns the middleware serving the request with a request scoped
// logger in its context. Handlers report the error they answered with
// through gin.Context.Error, so that it is logged with the right severity.
func (i *HTTPInterceptor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logging.New(i.requestID.Next())
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), reqLogger))

		c.Next()

		var handlerErr error
		if last := c.Errors.Last(); last != nil {
			handlerErr = last.Err
		}
		status := c.Writer.Status()

		err := handlerErr
		if err == nil && status >= http.StatusBadRequest {
			err = fmt.Errorf("%s", http.StatusText(status))
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		logging.LogRequest(reqLogger, c.Request.Method+" "+route, time.Since(start), err)

		code := "ok"
		switch {
		case handlerErr != nil:
			code = errors.CodeOf(handlerErr)
		case status >= http.StatusBadRequest:
			code = strconv.Itoa(status)
		}
		if i.metrics != nil {
			i.metrics.AddServerHandledCounter("http", code)
		}
	}
}
