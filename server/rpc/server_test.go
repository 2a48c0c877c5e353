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

package rpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
	"github.com/lexdesk/textsync/server/rooms"
	"github.com/lexdesk/textsync/server/rpc"
	"github.com/lexdesk/textsync/server/rpc/auth"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, conf *rpc.Config) *httptest.Server {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{Hostname: "test"}, nil, nil, nil, metrics)
	require.NoError(t, err)

	if conf == nil {
		conf = &rpc.Config{Port: 8080}
	}
	server, err := rpc.NewServer(conf, be, rooms.New(be, be.PubSub))
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Shutdown(false)
		ts.Close()
		assert.NoError(t, be.Shutdown())
	})
	return ts
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *client {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + rpc.WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ws.Close()
	})
	return &client{t: t, ws: ws}
}

func (c *client) send(msg *types.Message) {
	require.NoError(c.t, c.ws.WriteJSON(msg))
}

// expect reads messages until one of the given type arrives.
func (c *client) expect(msgType types.MessageType) *types.Message {
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		msg := &types.Message{}
		require.NoError(c.t, c.ws.ReadJSON(msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func request(t *testing.T, method, url string, body any) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	require.NoError(t, resp.Body.Close())
}

func (c *client) auth(docID, userID string) *types.Message {
	c.send(&types.Message{Type: types.MessageAuth, DocumentID: docID, UserID: userID, Username: userID})
	return c.expect(types.MessageAuthAck)
}

func TestWebSocket(t *testing.T) {
	t.Run("edit a document with two clients test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		alice := dial(t, ts)
		ack := alice.auth("doc", "alice")
		require.NotNil(t, ack.Content)
		assert.Equal(t, "", *ack.Content)

		bob := dial(t, ts)
		bob.auth("doc", "bob")

		alice.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "insert", Position: 0, Text: "hello", BaseVersion: 0},
		})
		submitted := alice.expect(types.MessageAck)
		assert.Equal(t, int64(1), submitted.Version)

		applied := bob.expect(types.MessageOperationApplied)
		assert.Equal(t, int64(1), applied.Version)
		assert.Equal(t, "hello", applied.Operation.Text)
		assert.Equal(t, "alice", applied.Operation.AuthorID)

		from := int64(0)
		bob.send(&types.Message{Type: types.MessageHistoryRequest, FromVersion: &from})
		history := bob.expect(types.MessageHistoryResponse)
		assert.Equal(t, int64(1), history.Version)
		assert.Len(t, history.Operations, 1)
	})

	t.Run("errors are reported to the sender test", func(t *testing.T) {
		ts := newTestServer(t, nil)
		c := dial(t, ts)

		c.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "insert", Text: "x"},
		})
		assert.Equal(t, "not_joined", c.expect(types.MessageError).Code)

		require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, []byte("{")))
		assert.Equal(t, "invalid_message", c.expect(types.MessageError).Code)

		c.auth("doc", "alice")
		c.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "delete", Position: 0, Length: 3},
		})
		assert.Equal(t, "invalid_operation", c.expect(types.MessageError).Code)

		c.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "insert", Position: -1, Text: "x"},
		})
		assert.Equal(t, "invalid_operation", c.expect(types.MessageError).Code)

		c.send(&types.Message{Type: "shout"})
		assert.Equal(t, "unknown_message_type", c.expect(types.MessageError).Code)

		c.send(&types.Message{Type: types.MessagePing})
		c.expect(types.MessagePong)
	})

	t.Run("comments are shared through the connection test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		alice := dial(t, ts)
		alice.auth("doc", "alice")
		alice.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "insert", Position: 0, Text: "hello", BaseVersion: 0},
		})
		alice.expect(types.MessageAck)

		bob := dial(t, ts)
		ack := bob.auth("doc", "bob")
		assert.Empty(t, ack.Comments)

		alice.send(&types.Message{
			Type:    types.MessageCommentAdd,
			Comment: &types.Comment{Content: "greeting", Position: 0, Length: 5},
		})
		added := bob.expect(types.MessageCommentAdded)
		require.NotNil(t, added.Comment)
		assert.Equal(t, "alice", added.Comment.UserID)
		assert.Equal(t, 5, added.Comment.Length)
		assert.Equal(t, added.Comment.ID, alice.expect(types.MessageCommentAdded).Comment.ID)

		bob.send(&types.Message{
			Type:      types.MessageCommentUpdate,
			CommentID: added.Comment.ID,
			Comment:   &types.Comment{Resolved: true},
		})
		updated := alice.expect(types.MessageCommentUpdated)
		assert.True(t, updated.Comment.Resolved)
		assert.Equal(t, "greeting", updated.Comment.Content)

		bob.send(&types.Message{Type: types.MessageCommentDelete, CommentID: added.Comment.ID})
		assert.Equal(t, added.Comment.ID, alice.expect(types.MessageCommentDeleted).CommentID)

		bob.send(&types.Message{Type: types.MessageCommentDelete, CommentID: added.Comment.ID})
		assert.Equal(t, "comment_not_found", bob.expect(types.MessageError).Code)

		bob.send(&types.Message{Type: types.MessageCommentAdd})
		assert.Equal(t, "invalid_message", bob.expect(types.MessageError).Code)
	})

	t.Run("tokens are required with a secret test", func(t *testing.T) {
		ts := newTestServer(t, &rpc.Config{Port: 8080, AuthSecret: testSecret})
		c := dial(t, ts)

		c.send(&types.Message{Type: types.MessageAuth, DocumentID: "doc", UserID: "alice"})
		assert.Equal(t, "unauthenticated", c.expect(types.MessageError).Code)

		token, err := auth.NewTokenManager(testSecret, time.Hour).Generate("u-1", "alice")
		require.NoError(t, err)
		c.send(&types.Message{Type: types.MessageAuth, DocumentID: "doc", Token: token})
		ack := c.expect(types.MessageAuthAck)
		assert.Equal(t, "u-1", ack.UserID)
		assert.Equal(t, "alice", ack.Username)
	})
}

func TestDocumentAPI(t *testing.T) {
	t.Run("document lifecycle test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		body, err := json.Marshal(types.CreateDocumentRequest{ID: "doc", Title: "notes", Content: "abc"})
		require.NoError(t, err)
		resp, err := http.Post(ts.URL+"/documents", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		resp, err = http.Post(ts.URL+"/documents", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		c := dial(t, ts)
		c.auth("doc", "alice")
		c.send(&types.Message{
			Type:      types.MessageOperationSubmit,
			Operation: &types.Operation{Kind: "insert", Position: 3, Text: "d", BaseVersion: 0},
		})
		c.expect(types.MessageAck)

		resp, err = http.Get(ts.URL + "/documents/doc")
		require.NoError(t, err)
		doc := &types.DocumentContent{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(doc))
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "abcd", doc.Content)
		assert.Equal(t, int64(1), doc.Version)

		resp, err = http.Post(ts.URL+"/documents/doc/save", "application/json", nil)
		require.NoError(t, err)
		saved := &rpc.SaveResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(saved))
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, int64(1), saved.Version)

		resp, err = http.Get(ts.URL + "/documents")
		require.NoError(t, err)
		var summaries []types.DocumentSummary
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
		require.NoError(t, resp.Body.Close())
		require.Len(t, summaries, 1)
		assert.Equal(t, 1, summaries[0].ActiveUsers)

		resp, err = http.Get(ts.URL + "/documents/doc/history?from=0")
		require.NoError(t, err)
		history := &types.History{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(history))
		require.NoError(t, resp.Body.Close())
		assert.Len(t, history.Operations, 1)

		resp, err = http.Get(ts.URL + "/documents/doc/history?from=x")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/documents/doc", nil)
		require.NoError(t, err)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "not_found", c.expect(types.MessageError).Code)

		resp, err = http.Get(ts.URL + "/documents/doc")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		errResp := &rpc.ErrorResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(errResp))
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "not_found", errResp.Code)
	})

	t.Run("bearer tokens are required with a secret test", func(t *testing.T) {
		ts := newTestServer(t, &rpc.Config{Port: 8080, AuthSecret: testSecret})

		resp, err := http.Get(ts.URL + "/documents")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		token, err := auth.NewTokenManager(testSecret, time.Hour).Generate("u-1", "alice")
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/documents", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	})

	t.Run("document users test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		dial(t, ts).auth("doc", "alice")
		dial(t, ts).auth("doc", "alice")
		dial(t, ts).auth("doc", "bob")

		resp := request(t, http.MethodGet, ts.URL+"/documents/doc/users", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		users := &types.DocumentUsers{}
		decode(t, resp, users)
		assert.Equal(t, "doc", users.DocumentID)
		require.Len(t, users.Users, 2)
		assert.Equal(t, 3, users.Connections)

		resp = request(t, http.MethodGet, ts.URL+"/documents/empty/users", nil)
		users = &types.DocumentUsers{}
		decode(t, resp, users)
		assert.NotNil(t, users.Users)
		assert.Empty(t, users.Users)
		assert.Equal(t, 0, users.Connections)
	})

	t.Run("comments test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp := request(t, http.MethodPost, ts.URL+"/documents", types.CreateDocumentRequest{ID: "doc", Content: "hello world"})
		require.NoError(t, resp.Body.Close())
		c := dial(t, ts)
		c.auth("doc", "bob")

		content := "planet"
		resp = request(t, http.MethodPost, ts.URL+"/documents/doc/comments", types.CommentRequest{
			UserID:   "alice",
			Username: "Alice",
			Content:  &content,
			Position: 6,
			Length:   5,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		created := &types.Comment{}
		decode(t, resp, created)
		assert.Equal(t, "alice", created.UserID)
		assert.Equal(t, created.ID, c.expect(types.MessageCommentAdded).Comment.ID)

		resolved := true
		resp = request(t, http.MethodPut, ts.URL+"/documents/doc/comments/"+created.ID, types.CommentRequest{
			Resolved: &resolved,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		updated := &types.Comment{}
		decode(t, resp, updated)
		assert.True(t, updated.Resolved)
		assert.Equal(t, "planet", updated.Content)
		c.expect(types.MessageCommentUpdated)

		resp = request(t, http.MethodGet, ts.URL+"/documents/doc/comments", nil)
		var comments []types.Comment
		decode(t, resp, &comments)
		require.Len(t, comments, 1)
		assert.True(t, comments[0].Resolved)

		resp = request(t, http.MethodDelete, ts.URL+"/documents/doc/comments/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
		c.expect(types.MessageCommentDeleted)

		resp = request(t, http.MethodDelete, ts.URL+"/documents/doc/comments/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		errResp := &rpc.ErrorResponse{}
		decode(t, resp, errResp)
		assert.Equal(t, "comment_not_found", errResp.Code)

		resp = request(t, http.MethodPost, ts.URL+"/documents/doc/comments", types.CommentRequest{UserID: "alice"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		resp = request(t, http.MethodGet, ts.URL+"/documents/missing/comments", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	})

	t.Run("health check test", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	})
}
