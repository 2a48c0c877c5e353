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

package profiling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

const (
	pathMetrics = "/metrics"
	pathPProf   = "/debug/pprof/"
)

// runtimeProfiles are the pprof profiles served by name.
var runtimeProfiles = []string{"heap", "goroutine", "threadcreate", "block", "mutex", "allocs"}

// Server serves the metrics of the server and, when enabled, the runtime
// profiles of pprof. It listens on its own port so that it can stay private
// while the document port is public.
type Server struct {
	conf       *Config
	serveMux   *http.ServeMux
	httpServer *http.Server
}

// NewServer creates an instance of Server.
func NewServer(conf *Config, metrics *prometheus.Metrics) *Server {
	mux := http.NewServeMux()
	if conf.EnablePprof {
		mux.HandleFunc(pathPProf, pprof.Index)
		mux.HandleFunc(pathPProf+"cmdline", pprof.Cmdline)
		mux.HandleFunc(pathPProf+"profile", pprof.Profile)
		mux.HandleFunc(pathPProf+"symbol", pprof.Symbol)
		mux.HandleFunc(pathPProf+"trace", pprof.Trace)
		for _, name := range runtimeProfiles {
			mux.Handle(pathPProf+name, pprof.Handler(name))
		}
	}

	if metrics != nil {
		mux.Handle(pathMetrics, promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return &Server{
		conf:       conf,
		serveMux:   mux,
		httpServer: &http.Server{Addr: fmt.Sprintf(":%d", conf.Port), Handler: mux},
	}
}

// Handle registers an additional handler, such as a health check, on the
// profiling port. It must be called before Start.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.serveMux.Handle(pattern, handler)
}

// Start starts serving in the background.
func (s *Server) Start() error {
	go func() {
		logging.DefaultLogger().Infof("serving profiling on %d", s.conf.Port)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Errorf("profiling ListenAndServe: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server. A graceful shutdown lets in-flight scrapes
// finish.
func (s *Server) Shutdown(graceful bool) {
	var err error
	if graceful {
		err = s.httpServer.Shutdown(context.Background())
	} else {
		err = s.httpServer.Close()
	}
	if err != nil {
		logging.DefaultLogger().Errorf("profiling shutdown: %v", err)
	}
}
