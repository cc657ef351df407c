package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/cargoline/api/internal/services"
)

// PubSubBookingPublisher publishes booking lifecycle events to a Pub/Sub topic.
type PubSubBookingPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubBookingPublisher constructs a Pub/Sub backed booking event publisher.
func NewPubSubBookingPublisher(topic *pubsub.Topic) (*PubSubBookingPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub booking publisher: topic is required")
	}
	return &PubSubBookingPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishBookingEvent enqueues a booking event message on the configured topic.
func (p *PubSubBookingPublisher) PublishBookingEvent(ctx context.Context, message services.BookingEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub booking publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal booking event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", message.Event)
	setAttr(attrs, "shipmentId", message.ShipmentID)
	setAttr(attrs, "trackingNumber", message.TrackingNumber)
	setAttr(attrs, "settlementMethod", message.SettlementMethod)
	setAttr(attrs, "correlationId", message.CorrelationID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish booking event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
