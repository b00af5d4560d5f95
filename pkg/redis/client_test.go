package redis

import (
	"testing"
	"time"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromConfigRequiresURLOrAddress(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:pass@cache.internal:6380/2",
		PoolSize: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pass", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 15, opts.PoolSize)
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "localhost:6379",
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "p2pdesk:lock:rest_timer_start", c.LockKey("rest_timer_start"))
	assert.Equal(t, "p2pdesk:counter:assignments", c.CounterKey("assignments"))
}
