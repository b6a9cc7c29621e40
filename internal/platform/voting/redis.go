package voting

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"election-service/internal/domain/election"
)

const streamMaxLen = 10000

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Producer string
}

// RedisStreamPublisher appends voting.create envelopes to a Redis stream.
// XADD returning an entry id is the acknowledgement.
type RedisStreamPublisher struct {
	rdb      *redis.Client
	stream   string
	producer string
}

func NewRedisStreamPublisher(ctx context.Context, cfg RedisConfig) (*RedisStreamPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisStreamPublisher(rdb, cfg), nil
}

func newRedisStreamPublisher(rdb *redis.Client, cfg RedisConfig) *RedisStreamPublisher {
	stream := cfg.Stream
	if stream == "" {
		stream = "events:" + RoutingKeyCreate
	}
	return &RedisStreamPublisher{rdb: rdb, stream: stream, producer: cfg.Producer}
}

func (p *RedisStreamPublisher) CreatePoll(ctx context.Context, req election.PollRequest) error {
	env, body, err := encodeCreateEvent(p.producer, req)
	if err != nil {
		return fmt.Errorf("voting: encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_type": env.EventType,
			"event_id":   env.EventID,
			"payload":    body,
		},
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisStreamPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.rdb.Close()
}
