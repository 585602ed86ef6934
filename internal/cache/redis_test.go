package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment-service/internal/model"
)

// fakeRedis guarda en memoria y responde con los constructores de resultados de go-redis.
type fakeRedis struct {
	data map[string][]byte
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.([]byte)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func view() model.TrackingView {
	return model.TrackingView{
		TrackingNumber: "TRK20250310ABCDEF123456",
		Status:         model.DeliveryInTransit,
		EstimatedDate:  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Carrier:        "Standard Shipping",
		ShippingAddress: model.ShippingAddress{
			Street: "1 Main St", City: "Springfield", State: "IL",
			ZipCode: "62701", Country: "US", Phone: "555-0100",
		},
	}
}

func TestTrackingCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewTrackingCache(fake, "storefront")

	got, err := c.Get(ctx, view().TrackingNumber)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, view(), 30*time.Second))
	assert.Equal(t, 30*time.Second, fake.ttl["storefront:tracking:"+view().TrackingNumber])

	got, err = c.Get(ctx, view().TrackingNumber)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, view(), *got)

	require.NoError(t, c.Delete(ctx, view().TrackingNumber))
	got, err = c.Get(ctx, view().TrackingNumber)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTrackingCacheErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewTrackingCache(fake, "storefront")

	fake.data["storefront:tracking:bad"] = []byte("not json")
	_, err := c.Get(ctx, "bad")
	assert.Error(t, err)

	boom := errors.New("connection refused")
	fake.err = boom
	_, err = c.Get(ctx, "any")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Set(ctx, view(), time.Second), boom)
}
