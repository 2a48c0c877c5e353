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
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/lexdesk/textsync/server/logging"
)

var (
	// ErrQueueFull is returned when a message cannot be queued because the
	// senders fall behind.
	ErrQueueFull = errors.New("message queue is full")

	// ErrBrokerClosed is returned when a message is produced after Close.
	ErrBrokerClosed = errors.New("message broker is closed")
)

// DispatcherOptions configures the queue in front of the Kafka producer.
type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// KafkaBroker is a producer for Kafka. Produce only queues the message;
// workers send it with bounded retries so that editing never waits on Kafka.
type KafkaBroker struct {
	producer sarama.SyncProducer
	topic    string
	opts     DispatcherOptions

	mu     gosync.RWMutex
	closed bool
	queue  chan *sarama.ProducerMessage
	wg     gosync.WaitGroup
}

// newKafkaBroker connects a sarama producer to the given topic.
func newKafkaBroker(conf *Config, topic string) (*KafkaBroker, error) {
	saramaConf := sarama.NewConfig()
	saramaConf.ClientID = "textsync"
	saramaConf.Producer.Return.Successes = true
	saramaConf.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConf.Producer.Timeout = conf.MustParseWriteTimeout()

	producer, err := sarama.NewSyncProducer(conf.SplitAddresses(), saramaConf)
	if err != nil {
		return nil, fmt.Errorf("new kafka producer: %w", err)
	}

	return NewKafkaBroker(producer, topic, conf.dispatcherOptions()), nil
}

// NewKafkaBroker creates a KafkaBroker on top of the given producer and
// starts its workers.
func NewKafkaBroker(producer sarama.SyncProducer, topic string, opts DispatcherOptions) *KafkaBroker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 100 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 2 * time.Second
	}

	mb := &KafkaBroker{
		producer: producer,
		topic:    topic,
		opts:     opts,
		queue:    make(chan *sarama.ProducerMessage, opts.QueueSize),
	}

	for i := 0; i < opts.Workers; i++ {
		mb.wg.Add(1)
		go mb.workerLoop(i)
	}

	return mb
}

// Produce queues the message to be sent to Kafka.
func (mb *KafkaBroker) Produce(
	_ context.Context,
	msg Message,
) error {
	value, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pm := &sarama.ProducerMessage{
		Topic: mb.topic,
		Value: sarama.ByteEncoder(value),
	}
	if key := msg.Key(); key != "" {
		pm.Key = sarama.StringEncoder(key)
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrBrokerClosed
	}

	select {
	case mb.queue <- pm:
		return nil
	default:
		return fmt.Errorf("produce to %s: %w", mb.topic, ErrQueueFull)
	}
}

func (mb *KafkaBroker) workerLoop(workerID int) {
	defer mb.wg.Done()

	for pm := range mb.queue {
		mb.sendWithRetry(workerID, pm)
	}
}

func (mb *KafkaBroker) sendWithRetry(workerID int, pm *sarama.ProducerMessage) {
	for attempt := 0; ; attempt++ {
		_, _, err := mb.producer.SendMessage(pm)
		if err == nil {
			return
		}

		if attempt >= mb.opts.MaxRetry {
			logging.DefaultLogger().Warnf(
				"kafka send failed, drop message topic=%s worker=%d: %v",
				mb.topic, workerID, err,
			)
			return
		}

		backoff := mb.opts.BaseBackoff * time.Duration(1<<attempt)
		if backoff > mb.opts.MaxBackoff {
			backoff = mb.opts.MaxBackoff
		}
		time.Sleep(backoff)
	}
}

// Close sends the queued messages and closes the producer.
func (mb *KafkaBroker) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.queue)
	mb.mu.Unlock()

	mb.wg.Wait()

	if err := mb.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}

	return nil
}
