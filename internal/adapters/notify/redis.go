package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/procurekit/bidding/pkg/logger"
	"github.com/procurekit/bidding/pkg/metrics"
)

// envelope wraps a signal with the publishing instance id so each instance
// can skip its own signals when they come back over the channel.
type envelope struct {
	Origin string `json:"origin"`
	Signal Signal `json:"signal"`
}

// RedisBridge decorates a local Bus with cross-instance fan-out over one
// Redis pub/sub channel. Locally published signals are republished remotely;
// remote signals are injected into the local bus. Delivery stays fire-and-
// forget: a failed remote publish is counted and logged, never retried.
type RedisBridge struct {
	local   Bus
	client  *redis.Client
	channel string
	origin  string
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewRedisBridge wraps local with a bridge over the given channel.
func NewRedisBridge(local Bus, client *redis.Client, channel string) *RedisBridge {
	return &RedisBridge{
		local:   local,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.Get().Named("redis-bridge"),
	}
}

// Start begins consuming remote signals until ctx is canceled or Close is
// called.
func (r *RedisBridge) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	pubsub := r.client.Subscribe(runCtx, r.channel)
	go func() {
		defer pubsub.Close() //nolint:errcheck // shutdown path
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn(runCtx, "dropping malformed bridge signal", logger.Error(err))
					continue
				}
				if env.Origin == r.origin {
					continue
				}
				r.local.Publish(runCtx, env.Signal)
			}
		}
	}()
}

// Publish delivers sig locally and republishes it to the remote channel.
func (r *RedisBridge) Publish(ctx context.Context, sig Signal) {
	r.local.Publish(ctx, sig)

	payload, err := json.Marshal(envelope{Origin: r.origin, Signal: sig})
	if err != nil {
		metrics.RecordBridgePublishError()
		r.logger.Error(ctx, "marshal bridge signal", logger.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		metrics.RecordBridgePublishError()
		r.logger.Warn(ctx, "remote signal publish failed",
			logger.String("scope", string(sig.Scope)),
			logger.Error(err),
		)
	}
}

// Subscribe registers an observer on the local bus.
func (r *RedisBridge) Subscribe(ctx context.Context, scopes ...ScopeKey) (*Subscription, error) {
	return r.local.Subscribe(ctx, scopes...)
}

// Close stops the remote consumer.
func (r *RedisBridge) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
