package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "redis:6379", Config{Host: "redis", Port: "6379"}.Addr())
}

func TestNewToken(t *testing.T) {
	a, err := newToken()
	require.NoError(t, err)
	b, err := newToken()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(Config{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}
