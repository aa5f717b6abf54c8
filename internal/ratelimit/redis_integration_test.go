//go:build integration

package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisLimiterSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	url := setupRedisContainer(t, ctx)

	a, err := NewRedisLimiter(url, "reset:", 2, time.Minute)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisLimiter(url, "reset:", 2, time.Minute)
	require.NoError(t, err)
	defer b.Close()

	ok, err := a.Allow(ctx, "owner@cafe.test")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Allow(ctx, "owner@cafe.test")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Allow(ctx, "owner@cafe.test")
	require.NoError(t, err)
	assert.False(t, ok, "third attempt across instances must be rejected")

	ok, err = b.Allow(ctx, "other@cafe.test")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	url := setupRedisContainer(t, ctx)

	l, err := NewRedisLimiter(url, "reset:", 1, time.Minute)
	require.NoError(t, err)
	defer l.Close()

	now := time.Now()
	l.now = func() time.Time { return now }

	ok, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	require.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
