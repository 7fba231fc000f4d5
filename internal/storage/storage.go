package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/drstein77/shopeasy/internal/cart"
	"github.com/drstein77/shopeasy/internal/models"
	"go.uber.org/zap"
)

// ErrNotFound indicates the product is not in the catalog.
var ErrNotFound = errors.New("not found")

type Log interface {
	Info(string, ...zap.Field)
}

// Catalog is the read-only product lookup used to validate ids.
type Catalog interface {
	Find(id int) (models.Product, bool)
}

// Observer is told about every cart that replaced a session's previous one.
// Calls are made with the storage lock held, in the order the carts were
// stored, so an observer must not call back into the storage.
type Observer interface {
	CartChanged(sessionID string, c cart.Cart)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(sessionID string, c cart.Cart)

func (f ObserverFunc) CartChanged(sessionID string, c cart.Cart) {
	f(sessionID, c)
}

// View is the state of one session taken under a single lock.
type View struct {
	Cart cart.Cart
	Open bool
}

type session struct {
	cart     cart.Cart
	open     bool
	lastSeen time.Time
}

func (s *session) view() View {
	return View{Cart: s.cart, Open: s.open}
}

// MemoryStorage keeps per-session cart state in memory. Nothing survives a
// restart.
type MemoryStorage struct {
	ctx context.Context
	mx  sync.Mutex

	sessions  map[string]*session
	observers []Observer
	catalog   Catalog
	log       Log
	now       func() time.Time
}

// NewMemoryStorage creates a new MemoryStorage instance
func NewMemoryStorage(ctx context.Context, catalog Catalog, log Log) *MemoryStorage {
	return &MemoryStorage{
		ctx:      ctx,
		sessions: make(map[string]*session),
		catalog:  catalog,
		log:      log,
		now:      time.Now,
	}
}

// Subscribe registers o for cart changes.
func (s *MemoryStorage) Subscribe(o Observer) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.observers = append(s.observers, o)
}

// View returns the cart and panel state of the session. Reading counts as
// activity: a known session has its idle clock reset, an unknown one is not
// created.
func (s *MemoryStorage) View(sessionID string) View {
	s.mx.Lock()
	defer s.mx.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return View{}
	}
	sess.lastSeen = s.now()
	return sess.view()
}

// Cart returns the current cart of the session; unknown sessions have an
// empty cart.
func (s *MemoryStorage) Cart(sessionID string) cart.Cart {
	return s.View(sessionID).Cart
}

// Panel reports whether the cart panel is open for the session.
func (s *MemoryStorage) Panel(sessionID string) bool {
	return s.View(sessionID).Open
}

// AddItem adds one unit of the catalog product to the session cart.
func (s *MemoryStorage) AddItem(ctx context.Context, sessionID string, productID int) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}

	p, ok := s.catalog.Find(productID)
	if !ok {
		return View{}, ErrNotFound
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	sess := s.touch(sessionID)
	sess.cart = cart.AddItem(sess.cart, p)
	s.notify(sessionID, sess.cart)
	return sess.view(), nil
}

// RemoveItem drops the product line from the session cart. Removing a
// product that is not in the cart leaves it unchanged and notifies no one.
func (s *MemoryStorage) RemoveItem(ctx context.Context, sessionID string, productID int) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	sess := s.touch(sessionID)
	before := sess.cart
	sess.cart = cart.RemoveItem(before, productID)
	if sess.cart.Len() != before.Len() {
		s.notify(sessionID, sess.cart)
	}
	return sess.view(), nil
}

// TogglePanel flips the panel visibility.
func (s *MemoryStorage) TogglePanel(sessionID string) View {
	s.mx.Lock()
	defer s.mx.Unlock()

	sess := s.touch(sessionID)
	sess.open = !sess.open
	return sess.view()
}

// SetPanel opens or closes the panel; setting the current value is a no-op.
func (s *MemoryStorage) SetPanel(sessionID string, open bool) View {
	s.mx.Lock()
	defer s.mx.Unlock()

	sess := s.touch(sessionID)
	sess.open = open
	return sess.view()
}

// Expire drops sessions not used since before and returns how many went.
func (s *MemoryStorage) Expire(before time.Time) int {
	s.mx.Lock()
	defer s.mx.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 && s.log != nil {
		s.log.Info("expired sessions", zap.Int("count", n), zap.Int("active", len(s.sessions)))
	}
	return n
}

// RunExpiry evicts sessions idle for longer than ttl every interval until
// the storage context is cancelled.
func (s *MemoryStorage) RunExpiry(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Expire(s.now().Add(-ttl))
		}
	}
}

// Sessions returns the number of live sessions.
func (s *MemoryStorage) Sessions() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.sessions)
}

// touch must be called with the lock held.
func (s *MemoryStorage) touch(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.lastSeen = s.now()
	return sess
}

// notify must be called with the lock held.
func (s *MemoryStorage) notify(sessionID string, c cart.Cart) {
	for _, o := range s.observers {
		o.CartChanged(sessionID, c)
	}
}
