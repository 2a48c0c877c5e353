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

package background_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/server/backend/background"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

func TestBackground(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	t.Run("close waits for attached goroutines test", func(t *testing.T) {
		bg := background.New(metrics)

		var done atomic.Int32
		for i := 0; i < 10; i++ {
			require.NoError(t, bg.AttachGoroutine(func(ctx context.Context) {
				assert.NotNil(t, ctx)
				done.Add(1)
			}, "test"))
		}

		bg.Close()
		assert.Equal(t, int32(10), done.Load())
	})

	t.Run("attach after close is dropped test", func(t *testing.T) {
		bg := background.New(metrics)
		bg.Close()

		var ran atomic.Bool
		err := bg.AttachGoroutine(func(ctx context.Context) {
			ran.Store(true)
		}, "test")
		assert.ErrorIs(t, err, background.ErrClosed)
		assert.False(t, ran.Load())
	})
}
