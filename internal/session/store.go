// Package session keeps in-progress kiosk carts in process memory.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
)

// DefaultTTL is how long an idle cart is kept.
const DefaultTTL = 30 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidItem     = errors.New("invalid cart item")
)

// Cart is a snapshot of one session. Mutating it does not affect the store.
type Cart struct {
	ID        string            `json:"session_id"`
	Items     []models.LineItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type cart struct {
	id        string
	items     []models.LineItem
	createdAt time.Time
	touchedAt time.Time
}

// Store holds carts keyed by ULID. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	carts   map[string]*cart
	ttl     time.Duration
	now     func() time.Time
	entropy io.Reader
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEntropy replaces the random source used for session IDs.
func WithEntropy(r io.Reader) Option {
	return func(s *Store) { s.entropy = r }
}

// NewStore creates an empty store. A non-positive ttl means DefaultTTL.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		carts:   make(map[string]*cart),
		ttl:     ttl,
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Monotonic entropy keeps IDs sortable within the same millisecond; it is guarded by mu.
	s.entropy = ulid.Monotonic(s.entropy, 0)
	return s
}

// TTL returns the idle timeout.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts an empty cart.
func (s *Store) Create() (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return Cart{}, err
	}
	c := &cart{id: id.String(), createdAt: now, touchedAt: now}
	s.carts[c.id] = c
	return s.snapshot(c), nil
}

// Get returns the cart and refreshes its idle timer.
func (s *Store) Get(id string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.live(id)
	if err != nil {
		return Cart{}, err
	}
	c.touchedAt = s.now()
	return s.snapshot(c), nil
}

// AddItem adds quantity of a product to the cart. Items whose labels fold
// to the same key are merged by summing quantities; the first spelling wins.
func (s *Store) AddItem(id string, item models.LineItem) (Cart, error) {
	label := strings.TrimSpace(item.ProductLabel)
	if label == "" {
		return Cart{}, fmt.Errorf("%w: product name is required", ErrInvalidItem)
	}
	if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) || item.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be a positive number", ErrInvalidItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.live(id)
	if err != nil {
		return Cart{}, err
	}

	key := repository.FoldLabel(label)
	merged := false
	for i := range c.items {
		if repository.FoldLabel(c.items[i].ProductLabel) == key {
			c.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.items = append(c.items, models.LineItem{ProductLabel: label, Quantity: item.Quantity})
	}
	c.touchedAt = s.now()
	return s.snapshot(c), nil
}

// RemoveItem drops every unit of label from the cart.
func (s *Store) RemoveItem(id, label string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.live(id)
	if err != nil {
		return Cart{}, err
	}

	key := repository.FoldLabel(label)
	for i := range c.items {
		if repository.FoldLabel(c.items[i].ProductLabel) == key {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.touchedAt = s.now()
			return s.snapshot(c), nil
		}
	}
	return Cart{}, ErrItemNotFound
}

// Clear empties the cart but keeps the session.
func (s *Store) Clear(id string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.live(id)
	if err != nil {
		return Cart{}, err
	}
	c.items = nil
	c.touchedAt = s.now()
	return s.snapshot(c), nil
}

// Delete ends the session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.live(id); err != nil {
		return err
	}
	delete(s.carts, id)
	return nil
}

// Take removes the cart and returns its final snapshot. Only one caller can
// take a given session; later calls get ErrSessionNotFound.
func (s *Store) Take(id string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.live(id)
	if err != nil {
		return Cart{}, err
	}
	delete(s.carts, id)
	return s.snapshot(c), nil
}

// Restore puts back a cart returned by Take, for when the work it was taken
// for failed. The idle timer restarts.
func (s *Store) Restore(snap Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.LineItem, len(snap.Items))
	copy(items, snap.Items)
	s.carts[snap.ID] = &cart{
		id:        snap.ID,
		items:     items,
		createdAt: snap.CreatedAt,
		touchedAt: s.now(),
	}
}

// Len reports the number of stored sessions, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

// Sweep removes carts idle since before now-ttl and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.carts {
		if s.expired(c, now) {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// live returns the cart for id, evicting it if it has expired. Callers hold mu.
func (s *Store) live(id string) (*cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(c, s.now()) {
		delete(s.carts, id)
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (s *Store) expired(c *cart, now time.Time) bool {
	return !now.Before(c.touchedAt.Add(s.ttl))
}

func (s *Store) snapshot(c *cart) Cart {
	items := make([]models.LineItem, len(c.items))
	copy(items, c.items)
	return Cart{
		ID:        c.id,
		Items:     items,
		CreatedAt: c.createdAt,
		UpdatedAt: c.touchedAt,
		ExpiresAt: c.touchedAt.Add(s.ttl),
	}
}
