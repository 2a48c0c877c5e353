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

// Package backend provides the backend implementation of textsync.
// This package is responsible for managing the database and other
// resources required to run textsync.
package backend

import (
	"fmt"
	"os"

	"github.com/lexdesk/textsync/server/backend/background"
	"github.com/lexdesk/textsync/server/backend/database"
	memdb "github.com/lexdesk/textsync/server/backend/database/memory"
	"github.com/lexdesk/textsync/server/backend/database/mongo"
	"github.com/lexdesk/textsync/server/backend/messagebroker"
	"github.com/lexdesk/textsync/server/backend/presence"
	"github.com/lexdesk/textsync/server/backend/pubsub"
	"github.com/lexdesk/textsync/server/backend/sync"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

// Backend manages textsync's backend such as Database and message brokers.
// It also provides the in-memory pubsub and lockers.
type Backend struct {
	Config *Config

	// PubSub is used to deliver messages to connections.
	PubSub *pubsub.PubSub
	// Lockers is used to lock/unlock resources.
	Lockers *sync.LockerManager
	// Presence keeps who is connected to which document.
	Presence presence.Store

	// Background is used to manage background tasks.
	Background *background.Background

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database
	// MsgBrokers are the message producers of document events.
	MsgBrokers *messagebroker.Brokers
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	presenceConf *presence.Config,
	kafkaConf *messagebroker.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Use the hostname of the current machine if none is given.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Create the pubsub, lockers and the background task manager.
	lockers := sync.New()
	pubSub := pubsub.New(pubsub.Options{
		BufferSize:                conf.SubscriptionBufferSize,
		PresenceWindow:            conf.ParsePresenceBatchWindow(),
		MaxSubscribersPerDocument: conf.MaxParticipantsPerDocument,
	})
	bg := background.New(metrics)

	// 03. Create the database instance. If the MongoDB configuration is given,
	// create a MongoDB instance. Otherwise, create a memory database instance.
	var db database.Database
	var err error
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	// 04. Create the presence store.
	presenceStore, err := presence.New(presenceConf)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// 05. Create the message broker instances.
	brokers := messagebroker.Ensure(kafkaConf)

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	logging.DefaultLogger().Infof(
		"backend created: hostname: %s, db: %s",
		conf.Hostname,
		dbInfo,
	)

	return &Backend{
		Config:     conf,
		PubSub:     pubSub,
		Lockers:    lockers,
		Presence:   presenceStore,
		Background: bg,
		Metrics:    metrics,
		DB:         db,
		MsgBrokers: brokers,
	}, nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	b.Background.Close()

	if err := b.MsgBrokers.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	if err := b.Presence.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	if err := b.DB.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	logging.DefaultLogger().Infof(
		"backend stopped: hostname: %s",
		b.Config.Hostname,
	)

	return nil
}
