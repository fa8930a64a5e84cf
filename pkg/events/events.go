// Package events carries simulation snapshots between services over Redis
// pub/sub. Every step is published on StepChannel and the most recent one
// is also kept under LatestKey for late joiners.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solar-system/simulator/model"
)

const (
	StepChannel = "simulation.step"
	LatestKey   = "simulation:latest"
)

var ErrNoSnapshot = errors.New("no snapshot published yet")

// RedisPublisher publishes snapshots. It satisfies simulation.Publisher.
type RedisPublisher struct {
	client redis.Cmdable
}

func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.client.Publish(ctx, StepChannel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", StepChannel, err)
	}
	if err := p.client.Set(ctx, LatestKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store %s: %w", LatestKey, err)
	}
	return nil
}

// Latest returns the last published snapshot.
func Latest(ctx context.Context, client redis.Cmdable) (model.Snapshot, error) {
	data, err := client.Get(ctx, LatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get %s: %w", LatestKey, err)
	}
	return Decode(data)
}

func Decode(data []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Handler consumes one snapshot.
type Handler func(ctx context.Context, snap model.Snapshot) error

// CatchUp hands the last published snapshot, if any, to handle. Consumers
// call it before Subscribe so a restart does not wait for the next step.
func CatchUp(ctx context.Context, client redis.Cmdable, logger *zap.Logger, handle Handler) error {
	snap, err := Latest(ctx, client)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Caught up with latest step", zap.Uint64("tick", snap.Tick))
	return handle(ctx, snap)
}

type pubSubClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Subscribe delivers every snapshot published on StepChannel to handle
// until ctx is done. Undecodable messages and handler errors are logged
// and skipped.
func Subscribe(ctx context.Context, client pubSubClient, logger *zap.Logger, handle Handler) error {
	sub := client.Subscribe(ctx, StepChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", StepChannel, err)
	}
	logger.Info("Subscribed", zap.String("channel", StepChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			dispatch(ctx, logger, []byte(msg.Payload), handle)
		}
	}
}

func dispatch(ctx context.Context, logger *zap.Logger, payload []byte, handle Handler) {
	snap, err := Decode(payload)
	if err != nil {
		logger.Warn("Dropping malformed step event", zap.Error(err))
		return
	}
	if err := handle(ctx, snap); err != nil {
		logger.Warn("Step handler failed", zap.Uint64("tick", snap.Tick), zap.Error(err))
	}
}
