package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator tracks loaded job URLs in Redis so the worker path can
// skip known offers without a warehouse round trip. The warehouse unique
// constraint on job_url stays authoritative; this cache is advisory.
type Deduplicator struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a new Redis-based deduplicator
func NewDeduplicator(client *redis.Client, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "offer:seen"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour * 30
	}
	return &Deduplicator{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// IsSeen reports whether a job URL has been loaded before
func (d *Deduplicator) IsSeen(ctx context.Context, jobURL string) (bool, error) {
	exists, err := d.client.Exists(ctx, d.makeKey(jobURL)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return exists > 0, nil
}

// MarkSeen records a job URL after its fact row was committed
func (d *Deduplicator) MarkSeen(ctx context.Context, jobURL string) error {
	err := d.client.Set(ctx, d.makeKey(jobURL), time.Now().Unix(), d.defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// makeKey hashes the URL so arbitrarily long URLs become fixed-size keys
func (d *Deduplicator) makeKey(jobURL string) string {
	h := sha256.Sum256([]byte(jobURL))
	return fmt.Sprintf("%s:%s", d.prefix, hex.EncodeToString(h[:16]))
}
