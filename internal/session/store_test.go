package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)}
	return NewStore(ttl, WithClock(clock.Now)), clock
}

func TestStore_CreateAndGet(t *testing.T) {
	store, _ := newTestStore(time.Minute)

	created, err := store.Create()
	require.NoError(t, err)

	_, err = ulid.ParseStrict(created.ID)
	require.NoError(t, err, "session id should be a ULID")
	assert.Empty(t, created.Items)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, store.Len())
}

func TestStore_UniqueIDs(t *testing.T) {
	store, _ := newTestStore(time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c, err := store.Create()
		require.NoError(t, err)
		require.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestStore_AddItemMergesFoldedLabels(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "apple", Quantity: 2})
	require.NoError(t, err)
	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "banana", Quantity: 1})
	require.NoError(t, err)
	got, err := store.AddItem(c.ID, models.LineItem{ProductLabel: " APPLE ", Quantity: 0.5})
	require.NoError(t, err)

	require.Len(t, got.Items, 2)
	assert.Equal(t, models.LineItem{ProductLabel: "apple", Quantity: 2.5}, got.Items[0])
	assert.Equal(t, models.LineItem{ProductLabel: "banana", Quantity: 1}, got.Items[1])
}

func TestStore_AddItemValidation(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	invalid := []models.LineItem{
		{ProductLabel: "", Quantity: 1},
		{ProductLabel: "   ", Quantity: 1},
		{ProductLabel: "apple", Quantity: 0},
		{ProductLabel: "apple", Quantity: -1},
		{ProductLabel: "apple", Quantity: math.NaN()},
		{ProductLabel: "apple", Quantity: math.Inf(1)},
	}
	for _, item := range invalid {
		_, err := store.AddItem(c.ID, item)
		assert.ErrorIs(t, err, ErrInvalidItem, "item %+v", item)
	}

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	a, err := store.Create()
	require.NoError(t, err)
	b, err := store.Create()
	require.NoError(t, err)

	_, err = store.AddItem(a.ID, models.LineItem{ProductLabel: "apple", Quantity: 1})
	require.NoError(t, err)

	gotB, err := store.Get(b.ID)
	require.NoError(t, err)
	assert.Empty(t, gotB.Items)
}

func TestStore_SnapshotIsDetached(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	snap, err := store.AddItem(c.ID, models.LineItem{ProductLabel: "apple", Quantity: 1})
	require.NoError(t, err)
	snap.Items[0].Quantity = 99

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Items[0].Quantity)
}

func TestStore_RemoveAndClear(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)
	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "apple", Quantity: 1})
	require.NoError(t, err)
	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "kiwi", Quantity: 3})
	require.NoError(t, err)

	got, err := store.RemoveItem(c.ID, "Apple")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "kiwi", got.Items[0].ProductLabel)

	_, err = store.RemoveItem(c.ID, "apple")
	assert.ErrorIs(t, err, ErrItemNotFound)

	got, err = store.Clear(c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	require.NoError(t, store.Delete(c.ID))
	_, err = store.Get(c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(c.ID), ErrSessionNotFound)
}

func TestStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(time.Minute)

	_, err := store.Get("01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.AddItem("nope", models.LineItem{ProductLabel: "apple", Quantity: 1})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.RemoveItem("nope", "apple")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Clear("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Expiry(t *testing.T) {
	store, clock := newTestStore(10 * time.Minute)
	c, err := store.Create()
	require.NoError(t, err)
	assert.Equal(t, c.CreatedAt.Add(10*time.Minute), c.ExpiresAt)

	clock.Advance(9 * time.Minute)
	_, err = store.Get(c.ID)
	require.NoError(t, err, "access inside the ttl refreshes the session")

	clock.Advance(9 * time.Minute)
	_, err = store.Get(c.ID)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = store.Get(c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len(), "expired session is evicted on access")
}

func TestStore_Sweep(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	stale, err := store.Create()
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	fresh, err := store.Create()
	require.NoError(t, err)

	removed := store.Sweep(clock.Now().Add(30 * time.Second))
	assert.Equal(t, 1, removed)

	_, err = store.Get(stale.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_RunStopsWithContext(t *testing.T) {
	store := NewStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddItem(c.ID, models.LineItem{ProductLabel: "banana", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 50.0, got.Items[0].Quantity)
}

func TestNewStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewStore(0).TTL())
}

func TestStore_TakeClaimsOnce(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)
	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "apple", Quantity: 2})
	require.NoError(t, err)

	taken, err := store.Take(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.LineItem{{ProductLabel: "apple", Quantity: 2}}, taken.Items)

	_, err = store.Take(c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_TakeConcurrent(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(c.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestStore_Restore(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	c, err := store.Create()
	require.NoError(t, err)
	_, err = store.AddItem(c.ID, models.LineItem{ProductLabel: "kiwi", Quantity: 3})
	require.NoError(t, err)

	taken, err := store.Take(c.ID)
	require.NoError(t, err)

	clock.Advance(50 * time.Second)
	store.Restore(taken)
	taken.Items[0].Quantity = 99

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.CreatedAt, got.CreatedAt)
	assert.Equal(t, 3.0, got.Items[0].Quantity)
	assert.Equal(t, clock.Now().Add(time.Minute), got.ExpiresAt)
}
