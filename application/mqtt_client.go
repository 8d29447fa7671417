package application

import (
	"context"
	"time"
)

type MQTTStatus struct {
	MessageCount      uint64
	FailedCount       uint64
	LastTimePublished time.Time
	Connected         bool
}

type PublishOptions struct {
	QoS      byte
	Retained bool

	// MessageExpiry is only honoured by MQTT 5 brokers. Zero means no expiry.
	MessageExpiry time.Duration
}

type MQTTClient interface {
	// PublishAsync does not block; callback runs once the broker
	// round-trip completes or fails.
	PublishAsync(topic string, payload []byte, opts PublishOptions, callback func(err error))

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Status() MQTTStatus
}
