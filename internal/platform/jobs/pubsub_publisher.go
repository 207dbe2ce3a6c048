package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/freightdesk/api/internal/services"
)

// PubSubQuotationPublisher publishes quotation domain events to a Pub/Sub topic.
type PubSubQuotationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubQuotationPublisher constructs a Pub/Sub backed quotation event publisher.
func NewPubSubQuotationPublisher(topic *pubsub.Topic) (*PubSubQuotationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub quotation publisher: topic is required")
	}
	return &PubSubQuotationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishQuotationEvent enqueues a quotation event message on the configured topic.
func (p *PubSubQuotationPublisher) PublishQuotationEvent(ctx context.Context, event services.QuotationEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub quotation publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal quotation event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "quotationId", event.QuotationID)
	setAttr(attrs, "quoteNumber", event.QuoteNumber)
	setAttr(attrs, "mode", event.Mode)
	setAttr(attrs, "actorId", event.ActorID)
	if !event.OccurredAt.IsZero() {
		attrs["occurredAt"] = event.OccurredAt.UTC().Format(time.RFC3339)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish quotation event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
