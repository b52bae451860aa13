package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New(true)

	etag := c.Set("k", []byte("value"), time.Minute)
	data, gotETag, ok := c.Get("k")

	assert.True(t, ok)
	assert.Equal(t, []byte("value"), data)
	assert.Equal(t, etag, gotETag)
}

func TestGetExpired(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("value"), -time.Second)

	_, _, ok := c.Get("k")

	assert.False(t, ok)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c := New(false)

	etag := c.Set("k", []byte("value"), time.Minute)
	_, _, ok := c.Get("k")

	assert.False(t, ok)
	assert.NotEmpty(t, etag, "a disabled cache still produces ETags")
}

func TestEvict(t *testing.T) {
	c := New(true)
	c.Set("stale", []byte("old"), -time.Second)
	c.Set("fresh", []byte("new"), time.Minute)

	c.evict()

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_keys"])
	assert.Equal(t, 1, stats["active_keys"])
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))

	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}

func TestComputeETagDeterministic(t *testing.T) {
	a := ComputeETag([]byte("same"))
	b := ComputeETag([]byte("same"))
	other := ComputeETag([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}
