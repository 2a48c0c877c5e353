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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/backend/database/mongo"
	"github.com/lexdesk/textsync/server/backend/housekeeping"
	"github.com/lexdesk/textsync/server/backend/messagebroker"
	"github.com/lexdesk/textsync/server/backend/presence"
	"github.com/lexdesk/textsync/server/profiling"
	"github.com/lexdesk/textsync/server/rpc"
)

// Below are the values of the default values of textsync config.
const (
	DefaultRPCPort         = rpc.DefaultPort
	DefaultProfilingPort   = 8081
	DefaultPingInterval    = rpc.DefaultPingInterval
	DefaultWriteTimeout    = rpc.DefaultWriteTimeout
	DefaultMaxMessageBytes = rpc.DefaultMaxMessageBytes

	DefaultHousekeepingInterval      = 30 * time.Second
	DefaultHousekeepingIdleThreshold = 5 * time.Minute
	DefaultHousekeepingLogRetention  = 1000

	DefaultSubscriptionBufferSize = 256
	DefaultPresenceBatchWindow    = 50 * time.Millisecond
	DefaultPresenceTTL            = 2 * time.Minute

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoDatabase          = "textsync"

	DefaultKafkaOperationsTopic     = "textsync.operations"
	DefaultKafkaDocumentEventsTopic = "textsync.document-events"
	DefaultKafkaWriteTimeout        = 5 * time.Second

	DefaultHostname = ""
)

// Config is the configuration for creating a textsync server.
type Config struct {
	RPC          *rpc.Config           `yaml:"RPC"`
	Profiling    *profiling.Config     `yaml:"Profiling"`
	Housekeeping *housekeeping.Config  `yaml:"Housekeeping"`
	Backend      *backend.Config       `yaml:"Backend"`
	Mongo        *mongo.Config         `yaml:"Mongo"`
	Presence     *presence.Config      `yaml:"Presence"`
	Kafka        *messagebroker.Config `yaml:"Kafka"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	if c.Presence != nil {
		if err := c.Presence.Validate(); err != nil {
			return err
		}
	}

	if c.Kafka != nil {
		if err := c.Kafka.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := NewConfig()
	if c.RPC == nil {
		c.RPC = defaults.RPC
	}
	if c.Housekeeping == nil {
		c.Housekeeping = defaults.Housekeeping
	}
	if c.Backend == nil {
		c.Backend = defaults.Backend
	}

	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.PingInterval == "" {
		c.RPC.PingInterval = DefaultPingInterval.String()
	}
	if c.RPC.WriteTimeout == "" {
		c.RPC.WriteTimeout = DefaultWriteTimeout.String()
	}
	if c.RPC.MaxMessageBytes == 0 {
		c.RPC.MaxMessageBytes = DefaultMaxMessageBytes
	}

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}
	if c.Housekeeping.IdleThreshold == "" {
		c.Housekeeping.IdleThreshold = DefaultHousekeepingIdleThreshold.String()
	}

	if c.Backend.SubscriptionBufferSize == 0 {
		c.Backend.SubscriptionBufferSize = DefaultSubscriptionBufferSize
	}
	if c.Backend.PresenceBatchWindow == "" {
		c.Backend.PresenceBatchWindow = DefaultPresenceBatchWindow.String()
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
	}

	if c.Presence != nil && c.Presence.TTL == "" {
		c.Presence.TTL = DefaultPresenceTTL.String()
	}

	if c.Kafka != nil && c.Kafka.Addresses != "" {
		if c.Kafka.OperationsTopic == "" {
			c.Kafka.OperationsTopic = DefaultKafkaOperationsTopic
		}
		if c.Kafka.DocumentEventsTopic == "" {
			c.Kafka.DocumentEventsTopic = DefaultKafkaDocumentEventsTopic
		}
		if c.Kafka.WriteTimeout == "" {
			c.Kafka.WriteTimeout = DefaultKafkaWriteTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:            port,
			PingInterval:    DefaultPingInterval.String(),
			WriteTimeout:    DefaultWriteTimeout.String(),
			MaxMessageBytes: DefaultMaxMessageBytes,
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Housekeeping: &housekeeping.Config{
			Interval:      DefaultHousekeepingInterval.String(),
			IdleThreshold: DefaultHousekeepingIdleThreshold.String(),
			LogRetention:  DefaultHousekeepingLogRetention,
		},
		Backend: &backend.Config{
			Hostname:               DefaultHostname,
			EvictOnEmpty:           true,
			SubscriptionBufferSize: DefaultSubscriptionBufferSize,
			PresenceBatchWindow:    DefaultPresenceBatchWindow.String(),
		},
	}
}
