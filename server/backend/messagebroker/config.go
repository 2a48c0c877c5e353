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

package messagebroker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyAddress is returned when the address is empty.
	ErrEmptyAddress = errors.New("address cannot be empty")

	// ErrEmptyTopic is returned when the topic is empty.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrInvalidDuration is returned when the duration is invalid.
	ErrInvalidDuration = errors.New("invalid duration")
)

const (
	// DefaultWriteTimeout is the default timeout of a single write to Kafka.
	DefaultWriteTimeout = "5s"

	// DefaultQueueSize is the default number of messages waiting to be sent.
	DefaultQueueSize = 1024

	// DefaultWorkers is the default number of concurrent senders.
	DefaultWorkers = 2

	// DefaultMaxRetry is the default number of retries of a failed send.
	DefaultMaxRetry = 3
)

// Config is the configuration for creating a message broker instance.
type Config struct {
	Addresses           string `yaml:"Addresses"`
	OperationsTopic     string `yaml:"OperationsTopic"`
	DocumentEventsTopic string `yaml:"DocumentEventsTopic"`
	WriteTimeout        string `yaml:"WriteTimeout"`
	QueueSize           int    `yaml:"QueueSize"`
	Workers             int    `yaml:"Workers"`
	MaxRetry            int    `yaml:"MaxRetry"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Addresses == "" {
		return ErrEmptyAddress
	}

	for _, addr := range c.SplitAddresses() {
		if addr == "" {
			return fmt.Errorf(`%s: %w`, c.Addresses, ErrEmptyAddress)
		}

		if _, err := url.Parse(addr); err != nil {
			return fmt.Errorf(`parse address "%s": %w`, c.Addresses, err)
		}
	}

	if c.OperationsTopic == "" && c.DocumentEventsTopic == "" {
		return ErrEmptyTopic
	}

	if c.WriteTimeout != "" {
		if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--kafka-write-timeout" flag: %w`,
				c.WriteTimeout,
				ErrInvalidDuration,
			)
		}
	}

	if c.QueueSize < 0 || c.Workers < 0 || c.MaxRetry < 0 {
		return fmt.Errorf("queue size, workers and max retry must not be negative")
	}

	return nil
}

// SplitAddresses splits the addresses by comma.
func (c *Config) SplitAddresses() []string {
	return strings.Split(c.Addresses, ",")
}

// MustParseWriteTimeout parses the write timeout and returns the duration.
func (c *Config) MustParseWriteTimeout() time.Duration {
	if c.WriteTimeout == "" {
		c.WriteTimeout = DefaultWriteTimeout
	}

	t, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		panic(ErrInvalidDuration)
	}
	return t
}

func (c *Config) dispatcherOptions() DispatcherOptions {
	opts := DispatcherOptions{
		QueueSize: c.QueueSize,
		Workers:   c.Workers,
		MaxRetry:  c.MaxRetry,
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxRetry == 0 {
		opts.MaxRetry = DefaultMaxRetry
	}
	return opts
}
