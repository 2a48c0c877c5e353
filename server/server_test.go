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

package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server"
)

func TestServer(t *testing.T) {
	t.Run("start and shutdown test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.RPC.Port = 18080
		conf.Profiling = nil

		ts, err := server.New(conf)
		require.NoError(t, err)
		require.NoError(t, ts.Start())
		assert.Equal(t, "localhost:18080", ts.RPCAddr())

		_, err = ts.Registry().Create(context.Background(), &types.CreateDocumentRequest{ID: "doc"})
		assert.NoError(t, err)

		assert.NoError(t, ts.Shutdown(true))
		assert.NoError(t, ts.Shutdown(true))
		<-ts.ShutdownCh()
	})

	t.Run("invalid config test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.RPC.Port = -1

		_, err := server.New(conf)
		assert.Error(t, err)
	})
}
