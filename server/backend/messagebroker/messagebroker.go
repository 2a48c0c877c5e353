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

// Package messagebroker publishes document events to an external message
// broker so that other systems can follow the edits of documents.
package messagebroker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/logging"
)

// Message represents a message that can be sent to the message broker.
type Message interface {
	Marshal() ([]byte, error)

	// Key is the partition key of the message. Messages of the same document
	// share a key so that their order is kept.
	Key() string
}

// DocumentEventType is the type of a DocumentEventMessage.
type DocumentEventType string

const (
	// DocumentCreatedEvent is produced when a document is created.
	DocumentCreatedEvent DocumentEventType = "document-created"

	// DocumentDeletedEvent is produced when a document is deleted.
	DocumentDeletedEvent DocumentEventType = "document-deleted"

	// DocumentSavedEvent is produced when a document is checkpointed.
	DocumentSavedEvent DocumentEventType = "document-saved"

	// DocumentLockedEvent is produced when a user locks a document.
	DocumentLockedEvent DocumentEventType = "document-locked"

	// DocumentUnlockedEvent is produced when a document lock is released.
	DocumentUnlockedEvent DocumentEventType = "document-unlocked"
)

// OperationAppliedMessage represents an operation applied to a document.
type OperationAppliedMessage struct {
	DocumentID string          `json:"document_id"`
	Version    int64           `json:"version"`
	Operation  types.Operation `json:"operation"`
	Timestamp  time.Time       `json:"timestamp"`
}

// DocumentEventMessage represents a change in the lifecycle of a document.
type DocumentEventMessage struct {
	DocumentID string            `json:"document_id"`
	EventType  DocumentEventType `json:"event_type"`
	UserID     string            `json:"user_id,omitempty"`
	Version    int64             `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Marshal marshals the operation applied message to JSON.
func (m OperationAppliedMessage) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return encoded, nil
}

// Key returns the document ID.
func (m OperationAppliedMessage) Key() string {
	return m.DocumentID
}

// Marshal marshals the document event message to JSON.
func (m DocumentEventMessage) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return encoded, nil
}

// Key returns the document ID.
func (m DocumentEventMessage) Key() string {
	return m.DocumentID
}

// Broker is an interface for the message broker.
type Broker interface {
	Produce(ctx context.Context, msg Message) error
	Close() error
}

// Brokers manages message brokers for different event types.
type Brokers struct {
	operations     Broker
	documentEvents Broker
}

// NewBrokers creates a new Brokers instance with the given brokers.
func NewBrokers(operations, documentEvents Broker) *Brokers {
	return &Brokers{
		operations:     operations,
		documentEvents: documentEvents,
	}
}

// Operations returns the broker for applied operations.
func (b *Brokers) Operations() Broker {
	return b.operations
}

// DocumentEvents returns the broker for document lifecycle events.
func (b *Brokers) DocumentEvents() Broker {
	return b.documentEvents
}

// Close closes every broker.
func (b *Brokers) Close() error {
	if err := b.operations.Close(); err != nil {
		return err
	}
	return b.documentEvents.Close()
}

// Ensure creates message brokers based on the given configuration. If the
// configuration is nil or invalid, or Kafka cannot be reached, it returns a
// Brokers instance with DummyBroker for all fields, allowing callers to use
// the brokers without nil checks.
func Ensure(kafkaConf *Config) *Brokers {
	dummy := &DummyBroker{}
	brokers := &Brokers{
		operations:     dummy,
		documentEvents: dummy,
	}

	if kafkaConf == nil {
		return brokers
	}

	if err := kafkaConf.Validate(); err != nil {
		logging.DefaultLogger().Warnf("invalid kafka configuration: %v", err)
		return brokers
	}

	topics := []string{kafkaConf.OperationsTopic, kafkaConf.DocumentEventsTopic}
	logging.DefaultLogger().Infof(
		"connecting to kafka: %s, topics: %s",
		kafkaConf.Addresses,
		strings.Join(topics, ","),
	)

	if kafkaConf.OperationsTopic != "" {
		broker, err := newKafkaBroker(kafkaConf, kafkaConf.OperationsTopic)
		if err != nil {
			logging.DefaultLogger().Warnf("connect to kafka: %v", err)
		} else {
			brokers.operations = broker
		}
	}
	if kafkaConf.DocumentEventsTopic != "" {
		broker, err := newKafkaBroker(kafkaConf, kafkaConf.DocumentEventsTopic)
		if err != nil {
			logging.DefaultLogger().Warnf("connect to kafka: %v", err)
		} else {
			brokers.documentEvents = broker
		}
	}

	return brokers
}
