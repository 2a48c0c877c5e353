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

package httphealth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/server/rpc/httphealth"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		checker httphealth.Checker
		status  int
		serving string
	}{
		{"serving", http.MethodGet, nil, http.StatusOK, httphealth.StatusServing},
		{"not serving", http.MethodGet, func(ctx context.Context) error {
			return fmt.Errorf("database down")
		}, http.StatusServiceUnavailable, httphealth.StatusNotServing},
		{"head", http.MethodHead, nil, http.StatusOK, ""},
		{"post", http.MethodPost, nil, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, handler := httphealth.NewHandler(tt.checker)
			assert.Equal(t, httphealth.Path, path)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, path, nil))
			assert.Equal(t, tt.status, rec.Code)

			if tt.serving != "" {
				var resp httphealth.CheckResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.serving, resp.Status)
			}
		})
	}
}
