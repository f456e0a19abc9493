// Package application exposes the session cart store: the cart domain kept
// in memory and synchronized with an injected key-value storage.
package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/thermae/internal/cart/domain"
)

// StorageKey is the single key under which a session's cart is loaded,
// saved, and cleared.
const StorageKey = "cart"

// Storage is the durable key-value collaborator the store persists to.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Summary is a point-in-time view of a cart.
type Summary struct {
	Items      []domain.Item `json:"items"`
	TotalPrice int64         `json:"total_price_minor_units"`
	ItemCount  int           `json:"item_count"`
}

// Store holds one session's cart. The cart is read from storage on first
// use and written back after every change to its contents. Storage
// failures never reach the caller: a failed read yields an empty cart and
// a failed write is logged while memory stays authoritative.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *slog.Logger
	cart    *domain.Cart
	loaded  bool
}

// NewStore creates a store over storage.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, logger: logger}
}

// AddItem adds item following the cart's merge rules.
func (s *Store) AddItem(ctx context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if err := s.cart.AddItem(item); err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// RemoveItem deletes all items with id. Missing ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.cart.RemoveItem(id) {
		s.persist(ctx)
	}
}

// UpdateQuantity sets an item's quantity; zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.cart.UpdateQuantity(id, quantity) {
		s.persist(ctx)
	}
}

// Clear empties the cart and removes its persisted copy.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	s.cart.Clear()
	if err := s.storage.Remove(ctx, StorageKey); err != nil {
		s.logger.Error("failed to clear stored cart", "key", StorageKey, "error", err)
	}
}

// Take returns the cart's items and empties the cart under one lock, so an
// item added concurrently lands either in the result or in the cart that
// remains. An empty cart yields nil and touches no storage.
func (s *Store) Take(ctx context.Context) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.cart.IsEmpty() {
		return nil
	}
	items := s.cart.Items()
	s.cart.Clear()
	if err := s.storage.Remove(ctx, StorageKey); err != nil {
		s.logger.Error("failed to clear stored cart", "key", StorageKey, "error", err)
	}
	return items
}

// Restore puts items taken by Take back in front of whatever the cart
// gained since, re-applying the merge rules to the newer items.
func (s *Store) Restore(ctx context.Context, items []domain.Item) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	rebuilt := domain.RestoreCart(items)
	for _, item := range s.cart.Items() {
		if err := rebuilt.AddItem(item); err != nil {
			s.logger.Warn("dropped invalid item while restoring cart", "item_id", item.ID, "error", err)
		}
	}
	s.cart = rebuilt
	s.persist(ctx)
}

// Items returns a copy of the cart's items in order.
func (s *Store) Items(ctx context.Context) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.cart.Items()
}

// TotalPrice returns the sum of unit price times quantity.
func (s *Store) TotalPrice(ctx context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.cart.TotalPrice()
}

// ItemCount returns the number of units in the cart.
func (s *Store) ItemCount(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.cart.ItemCount()
}

// Summary returns items, total, and count read under a single lock.
func (s *Store) Summary(ctx context.Context) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return Summary{
		Items:      s.cart.Items(),
		TotalPrice: s.cart.TotalPrice(),
		ItemCount:  s.cart.ItemCount(),
	}
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.cart = s.load(ctx)
	s.loaded = true
}

func (s *Store) load(ctx context.Context) *domain.Cart {
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("failed to read stored cart, starting empty", "key", StorageKey, "error", err)
		return domain.NewCart()
	}
	if !ok || raw == "" {
		return domain.NewCart()
	}

	var items []domain.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("stored cart is corrupt, starting empty", "key", StorageKey, "error", err)
		return domain.NewCart()
	}
	return domain.RestoreCart(items)
}

func (s *Store) persist(ctx context.Context) {
	items := s.cart.Items()
	if items == nil {
		items = []domain.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("failed to encode cart", "error", err)
		return
	}
	if err := s.storage.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.Error("failed to persist cart", "key", StorageKey, "error", err)
	}
}
