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

package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

func TestBackend(t *testing.T) {
	t.Run("memory backend test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)

		be, err := backend.New(&backend.Config{Hostname: "test"}, nil, nil, nil, metrics)
		require.NoError(t, err)

		_, err = be.DB.CreateDocument(context.Background(), "doc-1", "", "", "")
		assert.NoError(t, err)
		assert.NotNil(t, be.PubSub)
		assert.NotNil(t, be.Presence)
		assert.NoError(t, be.Shutdown())
	})
}
