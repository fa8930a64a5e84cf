package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solar-system/simulator/model"
)

// fakeRedis implements the handful of commands the package uses. Every
// other Cmdable method panics through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable

	published  map[string][]string
	values     map[string]string
	publishErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{published: map[string][]string{}, values: map[string]string{}}
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.publishErr != nil {
		return redis.NewIntResult(0, f.publishErr)
	}
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		Tick:    7,
		Elapsed: 3.5,
		Bodies: []model.BodyPosition{
			{Name: "Earth", Vec3: model.Vec3{X: 1}},
			{Name: "Mars", Vec3: model.Vec3{Y: 1.5, Z: -0.2}},
		},
	}
}

func TestPublishAndLatest(t *testing.T) {
	client := newFakeRedis()
	pub := NewRedisPublisher(client)
	ctx := context.Background()

	_, err := Latest(ctx, client)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, pub.Publish(ctx, sampleSnapshot()))
	require.Len(t, client.published[StepChannel], 1)

	got, err := Latest(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	decoded, err := Decode([]byte(client.published[StepChannel][0]))
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), decoded)
}

func TestPublishError(t *testing.T) {
	client := newFakeRedis()
	client.publishErr = errors.New("connection refused")

	err := NewRedisPublisher(client).Publish(context.Background(), sampleSnapshot())
	assert.ErrorContains(t, err, StepChannel)
	assert.Empty(t, client.values)
}

func TestDispatch(t *testing.T) {
	var got []model.Snapshot
	handle := func(_ context.Context, snap model.Snapshot) error {
		got = append(got, snap)
		return errors.New("ignored")
	}

	dispatch(context.Background(), zap.NewNop(), []byte("not json"), handle)
	assert.Empty(t, got)

	dispatch(context.Background(), zap.NewNop(), []byte(`{"tick":2,"elapsed":2,"bodies":[{"name":"A","x":1,"y":2,"z":3}]}`), handle)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].Tick)
	assert.Equal(t, model.Vec3{X: 1, Y: 2, Z: 3}, got[0].Bodies[0].Vec3)
}

func TestCatchUp(t *testing.T) {
	client := newFakeRedis()
	ctx := context.Background()

	var got []model.Snapshot
	handle := func(_ context.Context, snap model.Snapshot) error {
		got = append(got, snap)
		return nil
	}

	require.NoError(t, CatchUp(ctx, client, zap.NewNop(), handle))
	assert.Empty(t, got)

	require.NoError(t, NewRedisPublisher(client).Publish(ctx, sampleSnapshot()))
	require.NoError(t, CatchUp(ctx, client, zap.NewNop(), handle))
	assert.Equal(t, []model.Snapshot{sampleSnapshot()}, got)

	client.values[LatestKey] = "{broken"
	assert.Error(t, CatchUp(ctx, client, zap.NewNop(), handle))
}
