// Package notify publishes run-completion events to Google Cloud Pub/Sub.
// Delivery is best effort; a failed notification never fails the run.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSub wraps a Pub/Sub topic for completion notifications.
type PubSub struct {
	topic *pubsub.Topic
}

// New creates a notifier for the given topic.
func New(client *pubsub.Client, topicName string) (*PubSub, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicName == "" {
		return nil, fmt.Errorf("topic name is required")
	}
	return &PubSub{topic: client.Topic(topicName)}, nil
}

// Notify marshals the payload to JSON and publishes it, returning the
// server-assigned message ID.
func (p *PubSub) Notify(ctx context.Context, payload any) (string, error) {
	if p == nil || p.topic == nil {
		return "", fmt.Errorf("pubsub notifier is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSub) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
