package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(ttl time.Duration) (*TTLStore, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTTLStore(ttl, clk.Now), clk
}

func TestGetSetExpiry(t *testing.T) {
	s, clk := newStore(30 * time.Second)

	s.Set("live:queue:all", "payload")

	v, ok := s.Get("live:queue:all")
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	clk.Advance(29 * time.Second)
	_, ok = s.Get("live:queue:all")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = s.Get("live:queue:all")
	assert.False(t, ok)

	// 惰性删除后条目应消失
	assert.Equal(t, 0, s.Len())
}

func TestTouchIdempotencyWindow(t *testing.T) {
	s, clk := newStore(5 * time.Minute)

	assert.False(t, s.Touch("conv1:client-abc"), "first sight records and passes")
	assert.True(t, s.Touch("conv1:client-abc"), "repeat inside TTL is a duplicate")

	// 不同会话同一 client id 互不影响
	assert.False(t, s.Touch("conv2:client-abc"))

	clk.Advance(5*time.Minute + time.Second)
	assert.False(t, s.Touch("conv1:client-abc"), "after TTL expiry the pair is new again")
}

func TestDeleteAndPrune(t *testing.T) {
	s, clk := newStore(time.Minute)

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("c", 3)

	s.Delete("a", "b")
	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)

	clk.Advance(2 * time.Minute)
	s.Set("d", 4)

	assert.Equal(t, 1, s.Prune(), "only the expired entry is pruned")
	_, ok = s.Get("d")
	assert.True(t, ok)
}
