package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	in := payload{Name: "brent", Value: 53.3}
	require.NoError(t, c.Set(ctx, "result:brent", in, 0))

	var out payload
	require.NoError(t, c.Get(ctx, "result:brent", &out))
	assert.Equal(t, in, out)

	ok, err := c.Exists(ctx, "result:brent")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	var out payload
	err := c.Get(context.Background(), "nope", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var out payload
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", payload{}, 0))
	require.NoError(t, c.Set(ctx, "b", payload{}, 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))

	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(WithMemoryMaxSize(2))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", payload{Name: "a"}, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", payload{Name: "b"}, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "c", payload{Name: "c"}, 0))

	// oldest key eviction
	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Exists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "result:brent", GenerateKey("result", "brent"))
}
