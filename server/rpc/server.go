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

// Package rpc is the network surface of the server: the WebSocket endpoint
// clients edit documents through and the HTTP API managing documents.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/cmap"
	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/rooms"
	"github.com/lexdesk/textsync/server/rpc/auth"
	"github.com/lexdesk/textsync/server/rpc/httphealth"
	"github.com/lexdesk/textsync/server/rpc/interceptors"
)

// WebSocketPath is the path clients open their sync connection on.
const WebSocketPath = "/ws"

const shutdownTimeout = 10 * time.Second

// Server is a normal server that processes the logic requested by the client.
type Server struct {
	conf     *Config
	be       *backend.Backend
	registry *rooms.Registry
	tokens   *auth.TokenManager

	upgrader   websocket.Upgrader
	httpServer *http.Server
	conns      *cmap.Map[types.ID, *connection]
	connName   *interceptors.Sequence

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, registry *rooms.Registry) (*Server, error) {
	serviceCtx, serviceCancel := context.WithCancel(context.Background())

	s := &Server{
		conf:          conf,
		be:            be,
		registry:      registry,
		conns:         cmap.New[types.ID, *connection](),
		connName:      interceptors.NewSequence("c"),
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}
	if conf.AuthSecret != "" {
		s.tokens = auth.NewTokenManager(conf.AuthSecret, 0)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return conf.originAllowed(r.Header.Get("Origin"))
		},
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		interceptors.NewHTTPInterceptor(be.Metrics).Handler(),
		cors.New(cors.Config{
			AllowOriginFunc:  conf.originAllowed,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	)

	engine.GET(WebSocketPath, s.serveWebSocket)
	healthPath, healthHandler := httphealth.NewHandler(s.CheckHealth)
	engine.GET(healthPath, gin.WrapH(healthHandler))
	engine.HEAD(healthPath, gin.WrapH(healthHandler))
	s.registerDocumentHandlers(engine)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(lis, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server. Open connections are closed, which
// makes their participants leave their documents.
func (s *Server) Shutdown(graceful bool) {
	s.serviceCancel()

	if graceful {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.DefaultLogger().Error(err)
		}
	} else if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	// Hijacked connections are not tracked by the http server.
	for _, conn := range s.conns.Values() {
		_ = conn.ws.Close()
	}
}

func (s *Server) serveWebSocket(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered the request.
		_ = c.Error(err)
		return
	}

	sub := s.be.PubSub.Subscribe(s.serviceCtx, "")
	conn := newConnection(s, ws, sub, s.connName.Next())
	s.conns.Set(conn.id(), conn)
	s.be.Metrics.AddConnections(s.be.Config.Hostname, 1)
	defer func() {
		s.conns.Delete(conn.id(), func(_ *connection, exists bool) bool {
			return exists
		})
		s.be.Metrics.AddConnections(s.be.Config.Hostname, -1)
	}()

	conn.serve(s.serviceCtx)
}

// CheckHealth reports the server as not serving once it is shutting down.
func (s *Server) CheckHealth(ctx context.Context) error {
	if err := s.serviceCtx.Err(); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
