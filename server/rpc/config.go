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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidCertFile occurs when the certificate file is invalid.
	ErrInvalidCertFile = errors.New("invalid cert file for RPC server")
	// ErrInvalidKeyFile occurs when the key file is invalid.
	ErrInvalidKeyFile = errors.New("invalid key file for RPC server")
	// ErrInvalidMaxMessageBytes occurs when the maximum message size is invalid.
	ErrInvalidMaxMessageBytes = errors.New("invalid max message bytes for RPC server")
	// ErrInvalidPingInterval occurs when the ping interval is invalid.
	ErrInvalidPingInterval = errors.New("invalid ping interval for RPC server")
	// ErrInvalidWriteTimeout occurs when the write timeout is invalid.
	ErrInvalidWriteTimeout = errors.New("invalid write timeout for RPC server")
)

const (
	// DefaultPort is the default port of the RPC server.
	DefaultPort = 8080
	// DefaultMaxMessageBytes is the default maximum size of a client message.
	DefaultMaxMessageBytes = 1 << 20
	// DefaultPingInterval is the default interval of WebSocket pings.
	DefaultPingInterval = 30 * time.Second
	// DefaultWriteTimeout is the default deadline of a WebSocket write.
	DefaultWriteTimeout = 10 * time.Second
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"CertFile"`

	// KeyFile is the path to the key file.
	KeyFile string `yaml:"KeyFile"`

	// MaxMessageBytes is the maximum client message size in bytes the server
	// will accept.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// AllowedOrigins are the origins WebSocket upgrades and cross-origin
	// requests are accepted from. Empty accepts every origin.
	AllowedOrigins []string `yaml:"AllowedOrigins"`

	// PingInterval is the interval of the pings sent to idle connections.
	// A connection that does not answer within two intervals is closed.
	PingInterval string `yaml:"PingInterval"`

	// WriteTimeout is the deadline of a single write to a connection.
	WriteTimeout string `yaml:"WriteTimeout"`

	// AuthSecret is the HMAC secret of the JWT tokens clients join with.
	// Empty trusts the user the client claims to be.
	AuthSecret string `yaml:"AuthSecret"`
}

// Validate validates the port number and the files for certification.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	// when specific cert or key file are configured
	if c.CertFile != "" {
		if _, err := os.Stat(c.CertFile); err != nil {
			return fmt.Errorf("%s: %w", c.CertFile, ErrInvalidCertFile)
		}
	}

	if c.KeyFile != "" {
		if _, err := os.Stat(c.KeyFile); err != nil {
			return fmt.Errorf("%s: %w", c.KeyFile, ErrInvalidKeyFile)
		}
	}

	if c.MaxMessageBytes < 0 {
		return fmt.Errorf("%d: %w", c.MaxMessageBytes, ErrInvalidMaxMessageBytes)
	}

	if c.PingInterval != "" {
		if d, err := time.ParseDuration(c.PingInterval); err != nil || d <= 0 {
			return fmt.Errorf(`invalid argument "%s" for "--rpc-ping-interval" flag: %w`, c.PingInterval, ErrInvalidPingInterval)
		}
	}

	if c.WriteTimeout != "" {
		if d, err := time.ParseDuration(c.WriteTimeout); err != nil || d <= 0 {
			return fmt.Errorf(`invalid argument "%s" for "--rpc-write-timeout" flag: %w`, c.WriteTimeout, ErrInvalidWriteTimeout)
		}
	}

	return nil
}

// ParsePingInterval returns the ping interval, or the default when unset.
func (c *Config) ParsePingInterval() time.Duration {
	d, err := time.ParseDuration(c.PingInterval)
	if err != nil || d <= 0 {
		return DefaultPingInterval
	}
	return d
}

// ParseWriteTimeout returns the write timeout, or the default when unset.
func (c *Config) ParseWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil || d <= 0 {
		return DefaultWriteTimeout
	}
	return d
}

// maxMessageBytes returns the message size limit, or the default when unset.
func (c *Config) maxMessageBytes() int64 {
	if c.MaxMessageBytes == 0 {
		return DefaultMaxMessageBytes
	}
	return c.MaxMessageBytes
}

// originAllowed reports whether requests from origin are accepted.
func (c *Config) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
