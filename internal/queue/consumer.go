package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// Consumer consumes raw offers from the Redis queue
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
}

// NewConsumer creates a new queue consumer
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = "offers:raw"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
	}
}

// ConsumeBatch consumes up to maxBatch offers from the queue.
// Uses BRPOP to block-wait for the first item (prevents CPU spinning),
// then RPOP to quickly drain remaining items for the batch.
// Returns an empty slice on BRPOP timeout.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]domain.RawOffer, error) {
	offers := make([]domain.RawOffer, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return offers, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) >= 2 {
		var offer domain.RawOffer
		if err := json.Unmarshal([]byte(result[1]), &offer); err == nil {
			offers = append(offers, offer)
		}
	}

	for i := 1; i < maxBatch; i++ {
		result, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if err == redis.Nil {
				break
			}
			return offers, fmt.Errorf("rpop: %w", err)
		}

		var offer domain.RawOffer
		if err := json.Unmarshal([]byte(result), &offer); err != nil {
			continue // Skip malformed payloads
		}

		offers = append(offers, offer)
	}

	return offers, nil
}
