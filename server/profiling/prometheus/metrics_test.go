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

package prometheus_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

func TestMetrics(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	metrics.AddOperationApplied("host", "insert")
	metrics.AddOperationApplied("host", "insert")
	metrics.AddConnections("host", 2)
	metrics.AddConnections("host", -1)
	metrics.SetLiveDocuments("host", 3)
	metrics.AddServerHandledCounter("operation_submit", "ok")
	metrics.ObserveSubmitResponseSeconds(0.01)
	metrics.ObserveSubmitRebaseDepth(2)
	metrics.AddBroadcastFailure("host", "operation_applied")
	metrics.AddCheckpoints("host", 4)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["textsync_server_version"])
	assert.True(t, names["textsync_submit_operations_applied_total"])
	assert.True(t, names["textsync_rpc_connections_total"])
	assert.True(t, names["textsync_rooms_checkpoints_total"])

	count, err := testutil.GatherAndCount(metrics.Registry(), "textsync_submit_operations_applied_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
