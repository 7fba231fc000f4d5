package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drstein77/shopeasy/internal/cart"
	"github.com/drstein77/shopeasy/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLog struct{}

func (nopLog) Info(string, ...zap.Field) {}

type change struct {
	session string
	count   int
}

type recorder struct {
	changes []change
}

func (r *recorder) CartChanged(sessionID string, c cart.Cart) {
	r.changes = append(r.changes, change{session: sessionID, count: cart.ItemCount(c)})
}

func newStorage(t *testing.T) (*MemoryStorage, *recorder) {
	t.Helper()
	s := NewMemoryStorage(context.Background(), catalog.Default(), nopLog{})
	r := &recorder{}
	s.Subscribe(r)
	return s, r
}

func TestAddItem(t *testing.T) {
	s, r := newStorage(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "a", 1)
	require.NoError(t, err)
	v, err := s.AddItem(ctx, "a", 1)
	require.NoError(t, err)

	c := v.Cart
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "51.98", cart.Total(c).String())
	assert.True(t, cart.Equal(c, s.Cart("a")))
	assert.Equal(t, []change{{"a", 1}, {"a", 2}}, r.changes)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	s, r := newStorage(t)

	_, err := s.AddItem(context.Background(), "a", 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, s.Cart("a").IsEmpty())
	assert.Empty(t, r.changes)
}

func TestAddItem_CancelledContext(t *testing.T) {
	s, _ := newStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AddItem(ctx, "a", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoveItem(t *testing.T) {
	s, r := newStorage(t)
	ctx := context.Background()

	_, _ = s.AddItem(ctx, "a", 1)
	_, _ = s.AddItem(ctx, "a", 2)

	v, err := s.RemoveItem(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, "49.99", cart.Total(v.Cart).String())

	v, err = s.RemoveItem(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Cart.Len())

	assert.Len(t, r.changes, 3, "no-op removal must not notify")
}

func TestRemoveItem_EmptySession(t *testing.T) {
	s, r := newStorage(t)

	v, err := s.RemoveItem(context.Background(), "new", 99)
	require.NoError(t, err)
	assert.True(t, v.Cart.IsEmpty())
	assert.Empty(t, r.changes)
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, _ = s.AddItem(ctx, "a", 1)
	_, _ = s.AddItem(ctx, "b", 3)
	_, _ = s.AddItem(ctx, "b", 3)

	assert.Equal(t, 1, cart.ItemCount(s.Cart("a")))
	assert.Equal(t, 2, cart.ItemCount(s.Cart("b")))
	assert.True(t, s.Cart("c").IsEmpty())
}

func TestPanel(t *testing.T) {
	s, _ := newStorage(t)

	assert.False(t, s.Panel("a"))
	assert.True(t, s.TogglePanel("a").Open)
	assert.True(t, s.Panel("a"))
	assert.False(t, s.TogglePanel("a").Open)

	assert.True(t, s.SetPanel("a", true).Open)
	assert.True(t, s.Panel("a"))

	assert.False(t, s.SetPanel("a", false).Open)
	assert.False(t, s.SetPanel("a", false).Open)
	assert.False(t, s.Panel("a"))
}

func TestViewCombinesCartAndPanel(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	assert.Equal(t, View{}, s.View("nobody"))
	assert.Equal(t, 0, s.Sessions(), "reading must not create a session")

	_, _ = s.AddItem(ctx, "a", 3)
	v := s.TogglePanel("a")
	assert.True(t, v.Open)
	assert.Equal(t, 1, v.Cart.Len())

	v, err := s.AddItem(ctx, "a", 3)
	require.NoError(t, err)
	assert.True(t, v.Open)
	assert.Equal(t, 2, cart.ItemCount(v.Cart))
}

func TestExpire(t *testing.T) {
	s, _ := newStorage(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _ = s.AddItem(context.Background(), "old", 1)
	now = now.Add(2 * time.Hour)
	_, _ = s.AddItem(context.Background(), "fresh", 2)

	n := s.Expire(now.Add(-time.Hour))

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Sessions())
	assert.True(t, s.Cart("old").IsEmpty())
	assert.False(t, s.Cart("fresh").IsEmpty())
}

func TestExpireKeepsSessionsThatWereRead(t *testing.T) {
	s, _ := newStorage(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ttl := time.Hour

	_, _ = s.AddItem(context.Background(), "cart", 1)
	_, _ = s.AddItem(context.Background(), "panel", 2)

	now = now.Add(50 * time.Minute)
	_ = s.Cart("cart")
	_ = s.Panel("panel")

	now = now.Add(50 * time.Minute)
	n := s.Expire(now.Add(-ttl))

	assert.Equal(t, 0, n)
	assert.False(t, s.Cart("cart").IsEmpty())
	assert.False(t, s.Cart("panel").IsEmpty())
}

func TestObserversSeeLatestCart(t *testing.T) {
	s := NewMemoryStorage(context.Background(), catalog.Default(), nopLog{})
	var last int
	s.Subscribe(ObserverFunc(func(sessionID string, c cart.Cart) {
		last = cart.ItemCount(c)
	}))

	const adds = 50
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddItem(context.Background(), "a", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, adds, cart.ItemCount(s.Cart("a")))
	assert.Equal(t, adds, last)
}

func TestRunExpiryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStorage(ctx, catalog.Default(), nopLog{})

	done := make(chan struct{})
	go func() {
		s.RunExpiry(time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunExpiry did not return after cancel")
	}
}

func TestObserverFunc(t *testing.T) {
	s := NewMemoryStorage(context.Background(), catalog.Default(), nopLog{})
	var got []string
	s.Subscribe(ObserverFunc(func(sessionID string, c cart.Cart) {
		got = append(got, sessionID)
	}))

	_, _ = s.AddItem(context.Background(), "x", 2)
	assert.Equal(t, []string{"x"}, got)
}
