package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// Publisher pushes raw offers to the Redis queue. Scraper processes use
// this to hand records to the warehouse worker.
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = "offers:raw"
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// Publish pushes a single raw offer to the queue
func (p *Publisher) Publish(ctx context.Context, offer domain.RawOffer) error {
	data, err := encodeOffer(offer)
	if err != nil {
		return err
	}

	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}

	return nil
}

// PublishBatch pushes multiple raw offers in one pipeline round trip
func (p *Publisher) PublishBatch(ctx context.Context, offers []domain.RawOffer) error {
	if len(offers) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, offer := range offers {
		data, err := encodeOffer(offer)
		if err != nil {
			return err
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}

// encodeOffer produces the wire form the consumer decodes on the other
// side of the queue
func encodeOffer(offer domain.RawOffer) ([]byte, error) {
	data, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("marshal offer: %w", err)
	}
	return data, nil
}
