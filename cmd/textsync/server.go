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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexdesk/textsync/server"
	"github.com/lexdesk/textsync/server/backend/database/mongo"
	"github.com/lexdesk/textsync/server/backend/messagebroker"
	"github.com/lexdesk/textsync/server/backend/presence"
	"github.com/lexdesk/textsync/server/logging"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath string
	flagLogLevel  string
	flagLogFormat string

	rpcPingInterval time.Duration
	rpcWriteTimeout time.Duration

	housekeepingInterval      time.Duration
	housekeepingIdleThreshold time.Duration
	presenceBatchWindow       time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoDatabase          string
	mongoPingTimeout       time.Duration

	presenceTTL   time.Duration
	redisAddress  string
	redisPassword string
	redisDB       int

	kafkaAddresses           string
	kafkaOperationsTopic     string
	kafkaDocumentEventsTopic string
	kafkaWriteTimeout        time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start Textsync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.RPC.PingInterval = rpcPingInterval.String()
			conf.RPC.WriteTimeout = rpcWriteTimeout.String()

			conf.Housekeeping.Interval = housekeepingInterval.String()
			conf.Housekeeping.IdleThreshold = housekeepingIdleThreshold.String()

			conf.Backend.PresenceBatchWindow = presenceBatchWindow.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					Database:          mongoDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}

			conf.Presence = &presence.Config{TTL: presenceTTL.String()}
			if redisAddress != "" {
				conf.Presence.Redis = &presence.RedisConfig{
					Address:  redisAddress,
					Password: redisPassword,
					DB:       redisDB,
				}
			}

			if kafkaAddresses != "" {
				conf.Kafka = &messagebroker.Config{
					Addresses:           kafkaAddresses,
					OperationsTopic:     kafkaOperationsTopic,
					DocumentEventsTopic: kafkaDocumentEventsTopic,
					WriteTimeout:        kafkaWriteTimeout.String(),
					MaxRetry:            messagebroker.DefaultMaxRetry,
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}

			r, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := r.Start(); err != nil {
				return err
			}

			if code := handleSignal(r); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(r *server.Textsync) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		return 0
	}

	// Graceful shutdown checkpoints the live documents before exiting.
	graceful := sig == syscall.SIGINT || sig == syscall.SIGTERM

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		"console",
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().Int64Var(
		&conf.RPC.MaxMessageBytes,
		"rpc-max-message-bytes",
		server.DefaultMaxMessageBytes,
		"Maximum size in bytes of a message the server will accept.",
	)
	cmd.Flags().StringSliceVar(
		&conf.RPC.AllowedOrigins,
		"rpc-allowed-origins",
		nil,
		"Origins allowed to open a WebSocket connection. Empty allows any origin.",
	)
	cmd.Flags().DurationVar(
		&rpcPingInterval,
		"rpc-ping-interval",
		server.DefaultPingInterval,
		"Interval between keepalive pings sent to each connection.",
	)
	cmd.Flags().DurationVar(
		&rpcWriteTimeout,
		"rpc-write-timeout",
		server.DefaultWriteTimeout,
		"Timeout of a single write to a connection.",
	)
	cmd.Flags().StringVar(
		&conf.RPC.AuthSecret,
		"rpc-auth-secret",
		"",
		"Secret used to verify client tokens. Empty trusts the user ID sent on auth.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"housekeeping interval between housekeeping runs",
	)
	cmd.Flags().DurationVar(
		&housekeepingIdleThreshold,
		"housekeeping-idle-threshold",
		server.DefaultHousekeepingIdleThreshold,
		"time after which a document without participants is evicted from memory",
	)
	cmd.Flags().IntVar(
		&conf.Housekeeping.LogRetention,
		"housekeeping-log-retention",
		server.DefaultHousekeepingLogRetention,
		"number of operations kept in the log of each live document, 0 keeps all",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"Textsync Server Hostname",
	)
	cmd.Flags().BoolVar(
		&conf.Backend.EvictOnEmpty,
		"backend-evict-on-empty",
		true,
		"Checkpoint and evict a document as soon as its last participant leaves.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SubscriptionBufferSize,
		"backend-subscription-buffer-size",
		server.DefaultSubscriptionBufferSize,
		"Number of messages queued for each connection.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.MaxParticipantsPerDocument,
		"backend-max-participants",
		0,
		"Maximum number of connections joining a document, 0 for unlimited.",
	)
	cmd.Flags().DurationVar(
		&presenceBatchWindow,
		"backend-presence-batch-window",
		server.DefaultPresenceBatchWindow,
		"Window in which presence updates of a document are coalesced.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI. Empty keeps documents in memory.",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		server.DefaultMongoDatabase,
		"Textsync's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().DurationVar(
		&presenceTTL,
		"presence-ttl",
		server.DefaultPresenceTTL,
		"How long a presence entry stays alive without being refreshed.",
	)
	cmd.Flags().StringVar(
		&redisAddress,
		"redis-address",
		"",
		"Redis address used to share presence. Empty keeps presence in memory.",
	)
	cmd.Flags().StringVar(
		&redisPassword,
		"redis-password",
		"",
		"Redis password",
	)
	cmd.Flags().IntVar(
		&redisDB,
		"redis-db",
		0,
		"Redis database number",
	)
	cmd.Flags().StringVar(
		&kafkaAddresses,
		"kafka-addresses",
		"",
		"Comma-separated list of Kafka brokers. Empty disables publishing.",
	)
	cmd.Flags().StringVar(
		&kafkaOperationsTopic,
		"kafka-operations-topic",
		server.DefaultKafkaOperationsTopic,
		"Kafka topic of applied operations",
	)
	cmd.Flags().StringVar(
		&kafkaDocumentEventsTopic,
		"kafka-document-events-topic",
		server.DefaultKafkaDocumentEventsTopic,
		"Kafka topic of document lifecycle events",
	)
	cmd.Flags().DurationVar(
		&kafkaWriteTimeout,
		"kafka-write-timeout",
		server.DefaultKafkaWriteTimeout,
		"Timeout of a single write to Kafka",
	)

	rootCmd.AddCommand(cmd)
}
