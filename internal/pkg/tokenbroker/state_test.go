package tokenbroker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestMemoryStateStore(t *testing.T) {
	// Arrange
	clk := &clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStateStore(clk)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "fresh", 10*time.Minute))
	require.NoError(t, store.Save(ctx, "stale", time.Minute))

	// Act
	clk.Advance(2 * time.Minute)
	staleOK, err := store.Consume(ctx, "stale")
	require.NoError(t, err)
	freshOK, err := store.Consume(ctx, "fresh")
	require.NoError(t, err)
	replayOK, err := store.Consume(ctx, "fresh")
	require.NoError(t, err)
	unknownOK, err := store.Consume(ctx, "forged")
	require.NoError(t, err)

	// Assert
	assert.False(t, staleOK)
	assert.True(t, freshOK)
	assert.False(t, replayOK)
	assert.False(t, unknownOK)
}

func TestMemoryStateStore_PrunesExpired(t *testing.T) {
	clk := &clock.Fixed{At: time.Now()}
	store := NewMemoryStateStore(clk)
	require.NoError(t, store.Save(context.Background(), "a", time.Second))

	clk.Advance(time.Minute)
	require.NoError(t, store.Save(context.Background(), "b", time.Minute))

	assert.Len(t, store.items, 1)
}

func TestRedisStateStore_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStateStore(client, "mailrelay:oauth:state:")
	require.NoError(t, store.Save(ctx, "abc", time.Minute))

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}
