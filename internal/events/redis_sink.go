package events

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChannelPrefix namespaces every Redis pub/sub channel used by RedisSink.
const ChannelPrefix = "voting."

// RedisSink publishes events as JSON on the channel ChannelPrefix+topic.
type RedisSink struct {
	rdb     goredis.Cmdable
	log     zerolog.Logger
	timeout time.Duration
}

// NewRedisSink returns a sink publishing through rdb. Publish calls are
// bounded by a short timeout so a slow broker cannot stall requests.
func NewRedisSink(rdb goredis.Cmdable, log zerolog.Logger) *RedisSink {
	return &RedisSink{rdb: rdb, log: log, timeout: 500 * time.Millisecond}
}

// Channel returns the pub/sub channel for topic.
func Channel(topic string) string { return ChannelPrefix + topic }

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("event marshal failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.rdb.Publish(ctx, Channel(topic), data).Err(); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}
