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

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/internal/validation"
	pkgerrors "github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/backend/pubsub"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/rooms"
	"github.com/lexdesk/textsync/server/rpc/auth"
)

var (
	// ErrInvalidMessage is returned when a client message cannot be decoded
	// or misses required fields.
	ErrInvalidMessage = pkgerrors.InvalidArgument("invalid message").WithCode("invalid_message")

	// ErrUnknownMessageType is returned for message types the server does
	// not handle.
	ErrUnknownMessageType = pkgerrors.InvalidArgument("unknown message type").WithCode("unknown_message_type")
)

// connection is a WebSocket client. Its read loop handles the messages of
// the client one at a time and its write loop drains the subscription, so
// every message reaches the client in the order it was queued.
type connection struct {
	server *Server
	ws     *websocket.Conn
	sub    *pubsub.Subscription
	name   string
	logger logging.Logger

	// Only accessed by the read loop.
	docID    string
	userID   string
	username string
}

func newConnection(s *Server, ws *websocket.Conn, sub *pubsub.Subscription, name string) *connection {
	return &connection{
		server: s,
		ws:     ws,
		sub:    sub,
		name:   name,
		logger: logging.New(name, logging.NewField("conn_id", sub.ID().String())),
	}
}

func (c *connection) id() types.ID {
	return c.sub.ID()
}

// serve runs the connection until the client goes away or the server shuts
// down.
func (c *connection) serve(ctx context.Context) {
	ctx = logging.With(ctx, c.logger)
	c.logger.Debugf("connected from %s", c.ws.RemoteAddr())

	done := make(chan struct{})
	if err := c.server.be.Background.AttachGoroutine(func(context.Context) {
		defer close(done)
		c.writeLoop()
	}, "ws_writer"); err != nil {
		c.logger.Warnf("start writer: %v", err)
		close(done)
		_ = c.ws.Close()
	}

	c.readLoop(ctx)

	cleanupCtx := context.WithoutCancel(ctx)
	if c.docID != "" {
		if err := c.server.registry.Leave(cleanupCtx, c.docID, c.id()); err != nil {
			c.logger.Warnf("leave %s: %v", c.docID, err)
		}
	}
	c.server.be.PubSub.Unsubscribe(cleanupCtx, c.sub)
	<-done

	c.logger.Debugf("disconnected")
}

func (c *connection) readLoop(ctx context.Context) {
	pongWait := 2 * c.server.conf.ParsePingInterval()
	c.ws.SetReadLimit(c.server.conf.maxMessageBytes())
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Infof("read: %v", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg := &types.Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			c.handled(ctx, "malformed", time.Now(), "", fmt.Errorf("%s: %w", err.Error(), ErrInvalidMessage))
			continue
		}

		start := time.Now()
		err = c.dispatch(logging.With(ctx, c.logger), msg)
		c.handled(ctx, string(msg.Type), start, msg.DocumentID, err)
	}
}

// handled logs and counts a handled message, and reports its failure to
// the client.
func (c *connection) handled(ctx context.Context, msgType string, start time.Time, docID string, err error) {
	logging.LogRequest(c.logger, msgType, time.Since(start), err)

	code := "ok"
	if err != nil {
		code = pkgerrors.CodeOf(err)
	}
	c.server.be.Metrics.AddServerHandledCounter(msgType, code)

	// The client already missed the message that failed to reach it.
	if err == nil || errors.Is(err, rooms.ErrTransportFailure) {
		return
	}
	if docID == "" {
		docID = c.docID
	}
	c.send(ctx, types.NewError(docID, code, err.Error()))
}

func (c *connection) writeLoop() {
	writeTimeout := c.server.conf.ParseWriteTimeout()
	ticker := time.NewTicker(c.server.conf.ParsePingInterval())
	defer ticker.Stop()
	defer func() {
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.Events():
			if !ok {
				_ = c.ws.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeTimeout),
				)
				return
			}

			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Infof("write %s: %v", msg.Type, err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.logger.Infof("ping: %v", err)
				return
			}
		}
	}
}

// dispatch handles a single client message.
func (c *connection) dispatch(ctx context.Context, msg *types.Message) error {
	if err := validation.ValidateStruct(msg); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidMessage)
	}

	registry := c.server.registry
	switch msg.Type {
	case types.MessageAuth:
		return c.join(ctx, msg)
	case types.MessagePing:
		return c.send(ctx, &types.Message{Type: types.MessagePong, Timestamp: time.Now()})
	}

	docID, err := c.joined(msg)
	if err != nil {
		return err
	}

	switch msg.Type {
	case types.MessageOperationSubmit:
		_, err := registry.Submit(ctx, docID, c.id(), msg.Operation)
		return err
	case types.MessageCursorUpdate:
		if msg.Cursor == nil {
			return fmt.Errorf("cursor_update without cursor: %w", ErrInvalidMessage)
		}
		return registry.UpdatePresence(ctx, docID, c.id(), *msg.Cursor, msg.Selection)
	case types.MessageTypingStart:
		return registry.SetTyping(ctx, docID, c.id(), true)
	case types.MessageTypingStop:
		return registry.SetTyping(ctx, docID, c.id(), false)
	case types.MessageHistoryRequest:
		return c.history(ctx, docID, msg)
	case types.MessageLockDocument:
		return registry.Lock(ctx, docID, c.id())
	case types.MessageUnlockDocument:
		return registry.Unlock(ctx, docID, c.id())
	case types.MessageCommentAdd, types.MessageCommentUpdate:
		return c.comment(ctx, docID, msg)
	case types.MessageCommentDelete:
		if msg.CommentID == "" {
			return fmt.Errorf("comment_delete without comment_id: %w", ErrInvalidMessage)
		}
		return registry.DeleteComment(ctx, docID, msg.CommentID)
	default:
		return fmt.Errorf("%q: %w", msg.Type, ErrUnknownMessageType)
	}
}

// join authenticates the client and joins the document of the message,
// leaving the document the connection was on.
func (c *connection) join(ctx context.Context, msg *types.Message) error {
	if msg.DocumentID == "" {
		return fmt.Errorf("auth without document_id: %w", ErrInvalidMessage)
	}

	user, err := c.authenticate(msg)
	if err != nil {
		return err
	}

	if c.docID != "" {
		if err := c.server.registry.Leave(ctx, c.docID, c.id()); err != nil {
			return err
		}
		c.docID = ""
	}

	c.sub.SetSubscriber(user.ID)
	c.userID, c.username = user.ID, user.Name
	if _, err := c.server.registry.Join(ctx, msg.DocumentID, c.id(), types.Participant{
		UserID:      user.ID,
		DisplayName: user.Name,
	}); err != nil && !errors.Is(err, rooms.ErrTransportFailure) {
		return err
	}

	c.docID = msg.DocumentID
	c.logger = logging.New(
		c.name,
		logging.NewField("conn_id", c.id().String()),
		logging.NewField("doc_id", c.docID),
	)
	return nil
}

func (c *connection) authenticate(msg *types.Message) (auth.User, error) {
	if c.server.tokens != nil {
		return c.server.tokens.Verify(msg.Token)
	}

	if msg.UserID == "" {
		return auth.User{}, fmt.Errorf("auth without user_id: %w", ErrInvalidMessage)
	}
	name := msg.Username
	if name == "" {
		name = msg.UserID
	}
	return auth.User{ID: msg.UserID, Name: name}, nil
}

// joined returns the document the message is about, which must be the one
// the connection joined.
func (c *connection) joined(msg *types.Message) (string, error) {
	if c.docID == "" {
		return "", fmt.Errorf("%s before auth: %w", msg.Type, rooms.ErrNotJoined)
	}
	if msg.DocumentID != "" && msg.DocumentID != c.docID {
		return "", fmt.Errorf("%s for %s while on %s: %w", msg.Type, msg.DocumentID, c.docID, rooms.ErrNotJoined)
	}
	return c.docID, nil
}

// comment adds or updates a comment of the joined document on behalf of the
// user of the connection.
func (c *connection) comment(ctx context.Context, docID string, msg *types.Message) error {
	if msg.Comment == nil {
		return fmt.Errorf("%s without comment: %w", msg.Type, ErrInvalidMessage)
	}

	req := &types.CommentRequest{
		UserID:   c.userID,
		Username: c.username,
		Position: msg.Comment.Position,
		Length:   msg.Comment.Length,
	}
	if msg.Comment.Content != "" {
		req.Content = &msg.Comment.Content
	}

	if msg.Type == types.MessageCommentAdd {
		_, err := c.server.registry.AddComment(ctx, docID, req)
		return err
	}

	commentID := msg.CommentID
	if commentID == "" {
		commentID = msg.Comment.ID
	}
	if commentID == "" {
		return fmt.Errorf("comment_update without comment_id: %w", ErrInvalidMessage)
	}
	req.Resolved = &msg.Comment.Resolved
	_, err := c.server.registry.UpdateComment(ctx, docID, commentID, req)
	return err
}

func (c *connection) history(ctx context.Context, docID string, msg *types.Message) error {
	from := msg.Version
	if msg.FromVersion != nil {
		from = *msg.FromVersion
	}

	history, err := c.server.registry.History(ctx, docID, from)
	if err != nil {
		return err
	}

	return c.send(ctx, &types.Message{
		Type:        types.MessageHistoryResponse,
		DocumentID:  docID,
		FromVersion: &history.FromVersion,
		Version:     history.Version,
		Operations:  history.Operations,
		Timestamp:   time.Now(),
	})
}

func (c *connection) send(ctx context.Context, msg *types.Message) error {
	if err := c.server.be.PubSub.Send(ctx, c.id(), msg); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), rooms.ErrTransportFailure)
	}
	return nil
}
