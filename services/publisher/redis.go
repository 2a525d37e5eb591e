package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"estefy/inmoworker/internal/pipeline"
	"estefy/inmoworker/logger"
)

// RedisPublisher writes listings to Redis streams, sharded by source so
// consumers can subscribe per portal bucket.
type RedisPublisher struct {
	client       *redis.Client
	streamPrefix string
	streamCount  int
	maxLen       int64
	log          zerolog.Logger
}

// NewRedisPublisher creates a Redis publisher and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, maxLen int64) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if streamCount < 1 {
		streamCount = 1
	}
	return &RedisPublisher{
		client:       client,
		streamPrefix: streamPrefix,
		streamCount:  streamCount,
		maxLen:       maxLen,
		log:          logger.ForComponent("publisher.redis"),
	}, nil
}

// streamKey shards a source onto one of the configured streams.
func (p *RedisPublisher) streamKey(source string) string {
	h := fnv.New32a()
	h.Write([]byte(source))
	return fmt.Sprintf("%s:%d", p.streamPrefix, h.Sum32()%uint32(p.streamCount))
}

// Publish appends each listing as a base64-encoded JSON entry.
func (p *RedisPublisher) Publish(ctx context.Context, source string, listings []*pipeline.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	stream := p.streamKey(source)

	for _, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshaling listing: %w", err)
		}
		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"source":  source,
				"listing": base64.StdEncoding.EncodeToString(data),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("publishing to %s: %w", stream, err)
		}
	}

	if p.maxLen > 0 {
		if err := p.client.XTrimMaxLen(ctx, stream, p.maxLen).Err(); err != nil {
			p.log.Warn().Err(err).Str("stream", stream).Msg("stream trim failed")
		}
	}

	p.log.Info().Str("source", source).Str("stream", stream).Int("listings", len(listings)).Msg("published")
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
