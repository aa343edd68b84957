// Package metrics provides Prometheus metrics for queue-keeper.
// It tracks the store event pipeline, the REST API and storage latencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "queue_keeper"
)

// Message metrics track the queue poller.
var (
	// MessagesReceivedTotal counts messages fetched from the inbound queue.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received from the inbound queue",
		},
		[]string{"routing_key"},
	)

	// MessagesSettledTotal counts how received messages were settled.
	MessagesSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_settled_total",
			Help:      "Total number of messages acked, released or dead-lettered",
		},
		[]string{"outcome"}, // outcome: acked, released, dead_lettered
	)

	// PollErrorsTotal counts failed receive, delete and release calls.
	PollErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Total number of failed queue calls",
		},
		[]string{"call"}, // call: receive, delete, release, dead_letter
	)

	// MessageProcessingLatency measures handler time for a single message.
	MessageProcessingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_latency_seconds",
			Help:      "Time to decode and apply a single message in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// EventsPublishedTotal counts store events published by the emitter.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of store events published to the queue",
		},
		[]string{"routing_key"},
	)
)

// Store event metrics track the applier.
var (
	// EventsAppliedTotal counts applied store events by result.
	EventsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Total number of store events applied",
		},
		[]string{"routing_key", "result"}, // result: success or a failure kind
	)
)

// API metrics track queue operations served over REST.
var (
	// QueueOperationsTotal counts queue API operations.
	QueueOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_operations_total",
			Help:      "Total number of queue operations served by the API",
		},
		[]string{"operation", "status"}, // status: success, failure
	)
)

// Storage metrics track database and cache operations.
var (
	// StorageOperationLatency measures latency of storage operations.
	StorageOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_latency_seconds",
			Help:      "Latency of storage operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"store", "operation"},
	)

	// StorageOperationsTotal counts storage operations.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"store", "operation", "status"}, // status: success, failure
	)
)
