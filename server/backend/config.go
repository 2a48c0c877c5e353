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

package backend

import (
	"fmt"
	"time"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// Hostname is textsync server hostname. hostname is used by metrics.
	Hostname string `yaml:"Hostname"`

	// EvictOnEmpty is whether a document is checkpointed and dropped from
	// memory as soon as its last participant leaves. Otherwise housekeeping
	// evicts it after the idle threshold.
	EvictOnEmpty bool `yaml:"EvictOnEmpty"`

	// SubscriptionBufferSize is the number of messages queued per connection.
	SubscriptionBufferSize int `yaml:"SubscriptionBufferSize"`

	// MaxParticipantsPerDocument limits the connections joining a document.
	// Zero means unlimited.
	MaxParticipantsPerDocument int `yaml:"MaxParticipantsPerDocument"`

	// PresenceBatchWindow is the window in which presence updates of a
	// document are coalesced. Empty delivers them immediately.
	PresenceBatchWindow string `yaml:"PresenceBatchWindow"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.SubscriptionBufferSize < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--backend-subscription-buffer-size" flag`,
			c.SubscriptionBufferSize,
		)
	}

	if c.MaxParticipantsPerDocument < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--backend-max-participants-per-document" flag`,
			c.MaxParticipantsPerDocument,
		)
	}

	if c.PresenceBatchWindow != "" {
		if _, err := time.ParseDuration(c.PresenceBatchWindow); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--backend-presence-batch-window" flag: %w`,
				c.PresenceBatchWindow,
				err,
			)
		}
	}

	return nil
}

// ParsePresenceBatchWindow returns the presence batch window. It is called
// after Validate.
func (c *Config) ParsePresenceBatchWindow() time.Duration {
	if c.PresenceBatchWindow == "" {
		return 0
	}

	result, err := time.ParseDuration(c.PresenceBatchWindow)
	if err != nil {
		return 0
	}

	return result
}
