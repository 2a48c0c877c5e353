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

// Package housekeeping is the package for housekeeping service. It
// checkpoints live documents and cleans up the resources that are no longer
// needed.
package housekeeping

import (
	"fmt"
	"time"
)

// Config is the configuration for the housekeeping service.
type Config struct {
	// Interval is the time between housekeeping runs.
	Interval string `yaml:"Interval"`

	// IdleThreshold is how long a document without participants stays in
	// memory before it is evicted.
	IdleThreshold string `yaml:"IdleThreshold"`

	// LogRetention is the number of operations kept in the log of each live
	// document. Zero keeps the whole log.
	LogRetention int `yaml:"LogRetention"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-interval" flag: %w`,
			c.Interval,
			err,
		)
	}

	if _, err := time.ParseDuration(c.IdleThreshold); err != nil {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-idle-threshold" flag: %w`,
			c.IdleThreshold,
			err,
		)
	}

	if c.LogRetention < 0 {
		return fmt.Errorf(
			`invalid argument %d for "--housekeeping-log-retention" flag`,
			c.LogRetention,
		)
	}

	return nil
}

// ParseInterval parses the interval.
func (c *Config) ParseInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %s: %w", c.Interval, err)
	}

	return interval, nil
}

// ParseIdleThreshold parses the idle threshold.
func (c *Config) ParseIdleThreshold() (time.Duration, error) {
	threshold, err := time.ParseDuration(c.IdleThreshold)
	if err != nil {
		return 0, fmt.Errorf("parse idle threshold %s: %w", c.IdleThreshold, err)
	}

	return threshold, nil
}
