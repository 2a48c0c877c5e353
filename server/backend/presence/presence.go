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

// Package presence stores who is connected to a document and where their
// cursor is. Entries expire when they are not refreshed within the TTL.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/lexdesk/textsync/api/types"
)

// Store keeps the participants of documents.
type Store interface {
	// Put stores or refreshes the participant of the given document.
	Put(ctx context.Context, docID string, participant types.Participant) error

	// Remove removes the user from the given document.
	Remove(ctx context.Context, docID, userID string) error

	// List returns the live participants of the given document ordered by
	// user ID.
	List(ctx context.Context, docID string) ([]types.Participant, error)

	// Clear removes every participant of the given document.
	Clear(ctx context.Context, docID string) error

	// Close closes the store.
	Close() error
}

// Config is the configuration of the presence store.
type Config struct {
	// TTL is how long an entry stays alive without being refreshed. Zero
	// keeps entries until they are removed.
	TTL string `yaml:"TTL"`

	// Redis is the configuration of the Redis store. When it is empty, an
	// in-memory store is used.
	Redis *RedisConfig `yaml:"Redis"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.TTL != "" {
		if _, err := time.ParseDuration(c.TTL); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--presence-ttl" flag: %w`,
				c.TTL,
				err,
			)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ParseTTL returns the TTL duration.
func (c *Config) ParseTTL() time.Duration {
	if c.TTL == "" {
		return 0
	}

	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0
	}
	return ttl
}

// New creates the store described by the given config.
func New(conf *Config) (Store, error) {
	if conf == nil {
		return NewMemoryStore(0), nil
	}
	if conf.Redis == nil {
		return NewMemoryStore(conf.ParseTTL()), nil
	}

	return DialRedis(conf.Redis, conf.ParseTTL())
}
