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

// Package server provides the textsync server which is the main entry point
// of the textsync system. The server is responsible for starting the RPC
// server, the housekeeping service and the profiling server.
package server

import (
	"context"
	gosync "sync"

	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/backend/housekeeping"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
	"github.com/lexdesk/textsync/server/rooms"
	"github.com/lexdesk/textsync/server/rpc"
	"github.com/lexdesk/textsync/server/rpc/httphealth"
)

// Textsync is a server of textsync.
// The server receives operations from clients, rebases and applies them to
// the live documents and propagates them to the other participants.
type Textsync struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	registry        *rooms.Registry
	housekeeping    *housekeeping.Housekeeping
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Textsync.
func New(conf *Config) (*Textsync, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Mongo,
		conf.Presence,
		conf.Kafka,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	registry := rooms.New(be, be.PubSub)

	hk, err := housekeeping.New(conf.Housekeeping, registry, be.Lockers)
	if err != nil {
		_ = be.Shutdown()
		return nil, err
	}

	rpcServer, err := rpc.NewServer(conf.RPC, be, registry)
	if err != nil {
		_ = be.Shutdown()
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
		profilingServer.Handle(httphealth.NewHandler(rpcServer.CheckHealth))
	}

	return &Textsync{
		conf:            conf,
		backend:         be,
		registry:        registry,
		housekeeping:    hk,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (r *Textsync) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.housekeeping.Start(); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.rpcServer.Start()
}

// Shutdown shuts down this textsync server. Live documents are saved before
// the backend closes.
func (r *Textsync) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	r.rpcServer.Shutdown(graceful)

	if err := r.housekeeping.Stop(); err != nil {
		return err
	}

	if err := r.registry.Close(context.Background()); err != nil {
		logging.DefaultLogger().Errorf("save live documents: %v", err)
	}

	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	if err := r.backend.Shutdown(); err != nil {
		return err
	}

	close(r.shutdownCh)
	r.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (r *Textsync) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (r *Textsync) RPCAddr() string {
	return r.conf.RPCAddr()
}

// Registry returns the registry of live documents. It is used for testing.
func (r *Textsync) Registry() *rooms.Registry {
	return r.registry
}
