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

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lexdesk/textsync/internal/version"
)

const (
	namespace     = "textsync"
	hostnameLabel = "hostname"
	kindLabel     = "kind"
	typeLabel     = "message_type"
	codeLabel     = "code"
	taskTypeLabel = "task_type"
)

// Metrics manages the metric information that textsync is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion        *prometheus.GaugeVec
	serverHandledCounter *prometheus.CounterVec

	submitResponseSeconds  prometheus.Histogram
	submitRebaseDepth      prometheus.Histogram
	operationsAppliedTotal *prometheus.CounterVec

	connectionsTotal       *prometheus.GaugeVec
	liveDocumentsTotal     *prometheus.GaugeVec
	broadcastFailuresTotal *prometheus.CounterVec
	checkpointsTotal       *prometheus.CounterVec

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		serverHandledCounter: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "server_handled_total",
			Help:      "Total number of client messages handled on the server, regardless of success or failure.",
		}, []string{typeLabel, codeLabel}),
		submitResponseSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "response_seconds",
			Help:      "The time to rebase, apply and broadcast a submitted operation.",
		}),
		submitRebaseDepth: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "rebase_depth",
			Help:      "The number of concurrent operations a submitted operation was transformed against.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		operationsAppliedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "operations_applied_total",
			Help:      "The total count of operations applied to documents.",
		}, []string{hostnameLabel, kindLabel}),
		connectionsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "connections_total",
			Help:      "The number of open WebSocket connections.",
		}, []string{hostnameLabel}),
		liveDocumentsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "live_documents_total",
			Help:      "The number of documents held in memory.",
		}, []string{hostnameLabel}),
		broadcastFailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "broadcast_failures_total",
			Help:      "The total count of broadcasts that could not reach every participant.",
		}, []string{hostnameLabel, typeLabel}),
		checkpointsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "checkpoints_total",
			Help:      "The total count of documents saved to the database.",
		}, []string{hostnameLabel}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddServerHandledCounter adds the number of client messages handled on the
// server.
func (m *Metrics) AddServerHandledCounter(messageType, code string) {
	m.serverHandledCounter.With(prometheus.Labels{
		typeLabel: messageType,
		codeLabel: code,
	}).Inc()
}

// ObserveSubmitResponseSeconds observes the response time of a submission.
func (m *Metrics) ObserveSubmitResponseSeconds(seconds float64) {
	m.submitResponseSeconds.Observe(seconds)
}

// ObserveSubmitRebaseDepth observes how many operations a submission was
// transformed against.
func (m *Metrics) ObserveSubmitRebaseDepth(depth int) {
	m.submitRebaseDepth.Observe(float64(depth))
}

// AddOperationApplied adds an applied operation of the given kind.
func (m *Metrics) AddOperationApplied(hostname, kind string) {
	m.operationsAppliedTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		kindLabel:     kind,
	}).Inc()
}

// AddConnections adds the given delta to the number of connections.
func (m *Metrics) AddConnections(hostname string, delta int) {
	m.connectionsTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
	}).Add(float64(delta))
}

// SetLiveDocuments sets the number of documents held in memory.
func (m *Metrics) SetLiveDocuments(hostname string, count int) {
	m.liveDocumentsTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
	}).Set(float64(count))
}

// AddBroadcastFailure adds a broadcast of the given message type that failed
// for at least one participant.
func (m *Metrics) AddBroadcastFailure(hostname, messageType string) {
	m.broadcastFailuresTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		typeLabel:     messageType,
	}).Inc()
}

// AddCheckpoints adds the number of documents saved to the database.
func (m *Metrics) AddCheckpoints(hostname string, count int) {
	m.checkpointsTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
	}).Add(float64(count))
}

// AddBackgroundGoroutines adds the number of goroutines attached by the
// given task type.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by the
// given task type.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
