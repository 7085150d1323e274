// Package forwarder ships stored audit events to external streams.
package forwarder

import (
	"context"
	"encoding/json"
	"fmt"

	audit "attest/pkg/platform/audit"
)

// Producer is the slice of a message broker client the forwarder needs.
type Producer interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Kafka serializes audit events and publishes them keyed by certification,
// so consumers see each certification's trail in order.
type Kafka struct {
	producer Producer
}

func NewKafka(producer Producer) *Kafka {
	return &Kafka{producer: producer}
}

func (k *Kafka) Forward(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return k.producer.Publish(ctx, event.Certification.String(), payload)
}
