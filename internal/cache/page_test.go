package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sbilibin2017/gw-transactions/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage(index int, ids ...string) models.Page {
	p := models.Page{Index: index, HasMore: true}
	for _, id := range ids {
		p.Items = append(p.Items, models.Transaction{ID: id})
	}
	return p
}

func TestPageCache_GetWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, clock)

	c.Put(0, testPage(0, "a", "b"))
	clock.Advance(59 * time.Second)

	got, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, testPage(0, "a", "b"), got)
}

func TestPageCache_ExpiresAtTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, clock)

	c.Put(0, testPage(0, "a"))
	clock.Advance(time.Minute)

	_, ok := c.Get(0)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestPageCache_PutOverwritesAndRestamps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, clock)

	c.Put(1, testPage(1, "old"))
	clock.Advance(50 * time.Second)
	c.Put(1, testPage(1, "new"))
	clock.Advance(50 * time.Second)

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "new", got.Items[0].ID)
}

func TestPageCache_InvalidateAll(t *testing.T) {
	c := New(0, clockwork.NewFakeClock())
	assert.Equal(t, DefaultTTL, c.TTL())

	c.Put(0, testPage(0, "a"))
	c.Put(1, testPage(1, "b"))
	c.InvalidateAll()

	_, ok := c.Get(0)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPageCache_DoesNotAlias(t *testing.T) {
	c := New(time.Minute, clockwork.NewFakeClock())
	p := testPage(0, "a")
	c.Put(0, p)

	p.Items[0].ID = "mutated"
	got, _ := c.Get(0)
	assert.Equal(t, "a", got.Items[0].ID)

	got.Items[0].ID = "mutated-again"
	again, _ := c.Get(0)
	assert.Equal(t, "a", again.Items[0].ID)
}
