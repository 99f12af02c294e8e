// Package pubsub sends publish notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"
)

// Notifier wraps a Pub/Sub topic publisher.
type Notifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// New connects to projectID and publishes to topic.
func New(ctx context.Context, projectID, topic string) (*Notifier, error) {
	if projectID == "" || topic == "" {
		return nil, fmt.Errorf("notify.project_id and notify.topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{client: client, publisher: client.Publisher(topic)}, nil
}

// Publish marshals the payload to JSON and publishes it. The topic argument
// is informational; the publisher is bound to one topic. Trace context is
// carried in message attributes.
func (n *Notifier) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if n == nil || n.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data, Attributes: map[string]string{"event": topic}}
	otel.GetTextMapPropagator().Inject(ctx, carrier(msg.Attributes))

	id, err := n.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (n *Notifier) Close() error {
	if n == nil || n.client == nil {
		return nil
	}
	n.publisher.Stop()
	return n.client.Close()
}

// carrier adapts message attributes to propagation.TextMapCarrier.
type carrier map[string]string

func (c carrier) Get(key string) string { return c[key] }

func (c carrier) Set(key, value string) { c[key] = value }

func (c carrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
