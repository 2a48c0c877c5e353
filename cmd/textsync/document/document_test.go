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

package document

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/rpc"
)

func execute(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	viper.Set("addr", addr)
	viper.Set("output", "")
	t.Cleanup(viper.Reset)

	out := &bytes.Buffer{}
	SubCmd.SetOut(out)
	SubCmd.SetErr(io.Discard)
	SubCmd.SetArgs(args)
	err := SubCmd.Execute()
	return out.String(), err
}

func insert(pos int, text, author string, version int64) types.Operation {
	return types.Operation{
		ID:          types.NewID().String(),
		Kind:        "insert",
		Position:    pos,
		Text:        text,
		Length:      len([]rune(text)),
		BaseVersion: version - 1,
		AuthorID:    author,
		CreatedAt:   time.Now(),
		Version:     version,
	}
}

func TestSquashOperations(t *testing.T) {
	t.Run("compose runs of one author test", func(t *testing.T) {
		squashed, err := squashOperations([]types.Operation{
			insert(0, "a", "u1", 1),
			insert(1, "b", "u1", 2),
			insert(0, "x", "u2", 3),
			insert(3, "c", "u1", 4),
		})
		require.NoError(t, err)
		require.Len(t, squashed, 3)

		assert.Equal(t, "ab", squashed[0].Text)
		assert.Equal(t, int64(2), squashed[0].Version)
		assert.Equal(t, "x", squashed[1].Text)
		assert.Equal(t, int64(3), squashed[1].Version)
		assert.Equal(t, "c", squashed[2].Text)
		assert.Equal(t, int64(4), squashed[2].Version)
	})

	t.Run("empty history test", func(t *testing.T) {
		squashed, err := squashOperations(nil)
		require.NoError(t, err)
		assert.Empty(t, squashed)
	})

	t.Run("invalid operation test", func(t *testing.T) {
		_, err := squashOperations([]types.Operation{{Kind: "move", Version: 1}})
		assert.Error(t, err)
	})
}

func TestDocumentCommands(t *testing.T) {
	mux := http.NewServeMux()
	var authorization string
	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]types.DocumentSummary{{
			ID:            "doc-1",
			Title:         "notes",
			Version:       3,
			ContentLength: 5,
			ActiveUsers:   2,
			Loaded:        true,
		}})
	})
	mux.HandleFunc("GET /documents/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.History{
			DocumentID:  r.PathValue("id"),
			FromVersion: 0,
			Version:     2,
			Operations: []types.Operation{
				insert(0, "he", "u1", 1),
				insert(2, "llo", "u1", 2),
			},
		})
	})
	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(rpc.ErrorResponse{Code: "not_found", Reason: "document not found"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("list documents test", func(t *testing.T) {
		viper.Set("auth-token", "secret")
		out, err := execute(t, srv.URL, "ls")
		require.NoError(t, err)
		assert.Contains(t, out, "doc-1")
		assert.Contains(t, out, "notes")
		assert.Equal(t, "Bearer secret", authorization)
	})

	t.Run("history test", func(t *testing.T) {
		out, err := execute(t, srv.URL, "history", "doc-1", "--squash=false")
		require.NoError(t, err)
		assert.Contains(t, out, `"he"`)
		assert.Contains(t, out, `"llo"`)
	})

	t.Run("squashed history test", func(t *testing.T) {
		out, err := execute(t, srv.URL, "history", "doc-1", "--squash")
		require.NoError(t, err)
		assert.Contains(t, out, `"hello"`)
		assert.NotContains(t, out, `"llo"`)
	})

	t.Run("error response test", func(t *testing.T) {
		_, err := execute(t, srv.URL, "show", "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not_found")
	})

	t.Run("missing argument test", func(t *testing.T) {
		_, err := execute(t, srv.URL, "history")
		assert.Error(t, err)
	})
}
