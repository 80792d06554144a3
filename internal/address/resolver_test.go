package address

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	provinces []Unit
	districts map[string][]Unit
	wards     map[string][]Unit
	calls     int
	err       error
}

func (f *fakeSource) Provinces(context.Context) ([]Unit, error) {
	f.calls++
	if f.err != nil {
		return []Unit{}, f.err
	}
	return f.provinces, nil
}

func (f *fakeSource) Districts(_ context.Context, code string) ([]Unit, error) {
	f.calls++
	if f.err != nil {
		return []Unit{}, f.err
	}
	return append([]Unit{}, f.districts[code]...), nil
}

func (f *fakeSource) Wards(_ context.Context, code string) ([]Unit, error) {
	f.calls++
	if f.err != nil {
		return []Unit{}, f.err
	}
	return append([]Unit{}, f.wards[code]...), nil
}

func sampleSource() *fakeSource {
	return &fakeSource{
		provinces: []Unit{{Code: "01", Name: "Ha Noi"}, {Code: "79", Name: "Ho Chi Minh"}},
		districts: map[string][]Unit{
			"01": {{Code: "001", Name: "Ba Dinh", ParentCode: "01"}},
			"79": {{Code: "760", Name: "Quan 1", ParentCode: "79"}},
		},
		wards: map[string][]Unit{
			"001": {{Code: "00001", Name: "Phuc Xa", ParentCode: "001"}},
			"760": {{Code: "26734", Name: "Tan Dinh", ParentCode: "760"}},
		},
	}
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return client, server
}

func TestResolverCachesInRedis(t *testing.T) {
	client, server := newTestRedis(t)
	source := sampleSource()
	resolver := NewResolver(source, NewRedisCache(client), time.Hour, zap.NewNop())

	ctx := context.Background()
	first, err := resolver.LoadProvinces(ctx)
	require.NoError(t, err)
	second, err := resolver.LoadProvinces(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
	assert.True(t, server.Exists("address:provinces"))

	ttl := server.TTL("address:provinces")
	assert.True(t, ttl > 0 && ttl <= time.Hour)
}

func TestResolverDoesNotCacheEmptyResults(t *testing.T) {
	source := sampleSource()
	resolver := NewResolver(source, NewMemoryCache(), time.Hour, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		units, err := resolver.LoadDistricts(ctx, "99")
		require.NoError(t, err)
		assert.Empty(t, units)
	}
	assert.Equal(t, 2, source.calls)

	units, err := resolver.LoadDistricts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, units)
	assert.Equal(t, 2, source.calls)
}

func TestResolverFallsThroughBrokenCache(t *testing.T) {
	client, server := newTestRedis(t)
	server.Close()

	source := sampleSource()
	resolver := NewResolver(source, NewRedisCache(client), time.Hour, zap.NewNop())

	units, err := resolver.LoadProvinces(context.Background())
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestResolve(t *testing.T) {
	resolver := NewResolver(sampleSource(), nil, time.Hour, zap.NewNop())
	ctx := context.Background()

	resolved, err := resolver.Resolve(ctx, "79", "760", "26734")
	require.NoError(t, err)
	assert.Equal(t, Resolved{ProvinceName: "Ho Chi Minh", DistrictName: "Quan 1", WardName: "Tan Dinh"}, resolved)

	_, err = resolver.Resolve(ctx, "79", "", "")
	var selErr *SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, "district_code", selErr.Field)
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = resolver.Resolve(ctx, "79", "001", "00001")
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, "district_code", selErr.Field)
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestResolvePropagatesUnavailable(t *testing.T) {
	source := sampleSource()
	source.err = ErrUnavailable
	resolver := NewResolver(source, nil, time.Hour, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "79", "760", "26734")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryCacheExpires(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", []Unit{{Code: "1"}}, time.Minute))

	units, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, units, 1)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

type blockingSource struct {
	fakeSource
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingSource) Provinces(ctx context.Context) ([]Unit, error) {
	b.calls.Add(1)
	close(b.started)
	select {
	case <-b.release:
		return b.provinces, nil
	case <-ctx.Done():
		return []Unit{}, ctx.Err()
	}
}

func TestResolverSharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	source := &blockingSource{
		fakeSource: *sampleSource(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	resolver := NewResolver(source, NewMemoryCache(), time.Hour, zap.NewNop())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := resolver.LoadProvinces(firstCtx)
		firstErr <- err
	}()
	<-source.started

	type result struct {
		units []Unit
		err   error
	}
	second := make(chan result, 1)
	go func() {
		units, err := resolver.LoadProvinces(context.Background())
		second <- result{units, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(source.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Len(t, res.units, 2)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), source.calls.Load())
}
