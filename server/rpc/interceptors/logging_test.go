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

package interceptors_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
	"github.com/lexdesk/textsync/server/rpc/interceptors"
)

func TestSequence(t *testing.T) {
	seq := interceptors.NewSequence("c")
	assert.Equal(t, "c1", seq.Next())
	assert.Equal(t, "c2", seq.Next())
}

func TestHTTPInterceptor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("requests are counted by code test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)

		engine := gin.New()
		engine.Use(interceptors.NewHTTPInterceptor(metrics).Handler())
		engine.GET("/ok", func(c *gin.Context) {
			assert.NotNil(t, logging.From(c.Request.Context()))
			c.String(http.StatusOK, "ok")
		})
		engine.GET("/missing", func(c *gin.Context) {
			_ = c.Error(errors.NotFound("document not found").WithCode("not_found"))
			c.Status(http.StatusNotFound)
		})
		engine.GET("/teapot", func(c *gin.Context) {
			c.Status(http.StatusTeapot)
		})

		for _, path := range []string{"/ok", "/missing", "/teapot", "/ok"} {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		}

		count, err := testutil.GatherAndCount(metrics.Registry(), "textsync_rpc_server_handled_total")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("unknown routes are logged test", func(t *testing.T) {
		engine := gin.New()
		engine.Use(interceptors.NewHTTPInterceptor(nil).Handler())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
