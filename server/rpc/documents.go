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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexdesk/textsync/api/types"
	pkgerrors "github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/rpc/auth"
)

// ErrorResponse is the body of a failed document API request.
type ErrorResponse struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// SaveResponse is the body of a successful save request.
type SaveResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

func (s *Server) registerDocumentHandlers(engine *gin.Engine) {
	documents := engine.Group("/documents", s.authenticate())
	documents.GET("", s.listDocuments)
	documents.POST("", s.createDocument)
	documents.GET("/:id", s.getDocument)
	documents.DELETE("/:id", s.deleteDocument)
	documents.POST("/:id/save", s.saveDocument)
	documents.GET("/:id/history", s.documentHistory)
	documents.GET("/:id/users", s.documentUsers)

	documents.GET("/:id/comments", s.listComments)
	documents.POST("/:id/comments", s.createComment)
	documents.PUT("/:id/comments/:comment_id", s.updateComment)
	documents.DELETE("/:id/comments/:comment_id", s.deleteComment)
}

// authenticate requires a bearer token when the server verifies tokens. The
// user of the token is put in the request context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.tokens == nil {
			c.Next()
			return
		}

		user, err := s.tokens.Verify(extractBearer(c.GetHeader("Authorization")))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.CtxWithUser(c.Request.Context(), user))
		c.Next()
	}
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (s *Server) listDocuments(c *gin.Context) {
	summaries, err := s.registry.Documents(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) createDocument(c *gin.Context) {
	req := &types.CreateDocumentRequest{}
	if err := s.bindJSON(c, req); err != nil {
		abortWithError(c, err)
		return
	}
	if user, ok := auth.UserFromCtx(c.Request.Context()); ok && req.Owner == "" {
		req.Owner = user.ID
	}

	summary, err := s.registry.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.registry.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteDocument(c *gin.Context) {
	if err := s.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) saveDocument(c *gin.Context) {
	id := c.Param("id")
	version, err := s.registry.Save(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SaveResponse{ID: id, Version: version})
}

func (s *Server) documentHistory(c *gin.Context) {
	from := int64(0)
	if raw := c.Query("from"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			abortWithError(c, fmt.Errorf("from %q: %w", raw, ErrInvalidMessage))
			return
		}
		from = v
	}

	history, err := s.registry.History(c.Request.Context(), c.Param("id"), from)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// documentUsers lists the users present in the document across servers and
// counts the connections attached to it on this server.
func (s *Server) documentUsers(c *gin.Context) {
	id := c.Param("id")
	users, err := s.be.Presence.List(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if users == nil {
		users = []types.Participant{}
	}

	c.JSON(http.StatusOK, types.DocumentUsers{
		DocumentID:  id,
		Users:       users,
		Connections: len(s.be.PubSub.Members(id)),
	})
}

func (s *Server) listComments(c *gin.Context) {
	comments, err := s.registry.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) createComment(c *gin.Context) {
	req, err := s.bindComment(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	comment, err := s.registry.AddComment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) updateComment(c *gin.Context) {
	req, err := s.bindComment(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	comment, err := s.registry.UpdateComment(c.Request.Context(), c.Param("id"), c.Param("comment_id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (s *Server) deleteComment(c *gin.Context) {
	if err := s.registry.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("comment_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindComment decodes a comment request. With tokens, the author is the
// user of the token.
func (s *Server) bindComment(c *gin.Context) (*types.CommentRequest, error) {
	req := &types.CommentRequest{}
	if err := s.bindJSON(c, req); err != nil {
		return nil, err
	}
	if user, ok := auth.UserFromCtx(c.Request.Context()); ok {
		req.UserID, req.Username = user.ID, user.Name
	}
	return req, nil
}

// bindJSON decodes the request body into obj. Validation is left to the
// registry.
func (s *Server) bindJSON(c *gin.Context, obj any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.conf.maxMessageBytes())
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidMessage)
	}
	return nil
}

// abortWithError answers the request with the status and code of err.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(pkgerrors.StatusOf(err).HTTPStatus(), ErrorResponse{
		Code:   pkgerrors.CodeOf(err),
		Reason: err.Error(),
	})
}
