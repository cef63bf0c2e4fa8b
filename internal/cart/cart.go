// Package cart keeps the local shopping cart and enforces its stock rules.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"StoreClient/internal/kvstore"
	"StoreClient/pkg/kit"
)

type Listener func(Cart)

type subscriber struct {
	id int
	fn Listener
}

// Service serializes every mutation behind one lock. A mutation works on
// a copy, persists it and only then replaces the in-memory cart, so a
// failed write or a rejected change leaves the cart untouched.
type Service struct {
	kv    kvstore.Store
	clock clock.Clock
	log   *zap.Logger

	mu        sync.Mutex
	cart      Cart
	loaded    bool
	listeners []subscriber
	nextID    int
}

type Option func(*Service)

func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = kit.OrNop(l) } }

func New(kv kvstore.Store, opts ...Option) *Service {
	s := &Service{kv: kv, clock: clock.New(), log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	var c Cart
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			s.log.Warn("corrupt cart discarded", zap.Error(err))
			c = Cart{}
		}
	}
	recompute(&c)
	s.cart = c
	s.loaded = true
	return nil
}

// Cart returns a snapshot of the current cart.
func (s *Service) Cart(ctx context.Context) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return Cart{}, err
	}
	return clone(s.cart), nil
}

func (s *Service) mutate(ctx context.Context, fn func(c *Cart) error) (Cart, error) {
	s.mu.Lock()

	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return Cart{}, err
	}

	next := clone(s.cart)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Cart{}, err
	}
	recompute(&next)
	next.UpdatedAt = s.clock.Now().UTC()

	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return Cart{}, err
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		s.mu.Unlock()
		return Cart{}, fmt.Errorf("save cart: %w", err)
	}

	s.cart = next
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	s.log.Debug("cart saved", zap.Int("lines", len(next.Items)), zap.Int("total_items", next.TotalItems))
	for _, l := range listeners {
		l(clone(next))
	}
	return clone(next), nil
}

// AddItem adds item or merges its quantity into the existing line with the
// same identity. A result above the available stock is rejected.
func (s *Service) AddItem(ctx context.Context, item Item) (Cart, error) {
	if item.ProductID <= 0 {
		return Cart{}, ErrInvalidProduct
	}
	if item.Quantity <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	item.ID = ItemID(item.ProductID, item.VariantID)

	return s.mutate(ctx, func(c *Cart) error {
		i := indexOf(c, item.ID)
		if i < 0 {
			if item.Quantity > item.Stock {
				return stockError(item, item.Quantity)
			}
			c.Items = append(c.Items, item)
			return nil
		}

		line := &c.Items[i]
		total := line.Quantity + item.Quantity
		if total > item.Stock {
			return stockError(item, total)
		}
		line.Quantity = total
		line.Stock = item.Stock
		if item.Note != "" {
			line.Note = item.Note
		}
		return nil
	})
}

func stockError(item Item, requested int) *StockError {
	name := item.ProductName
	if item.VariantName != "" {
		name += " (" + item.VariantName + ")"
	}
	if name == "" {
		name = "item " + item.ID
	}
	return &StockError{ItemID: item.ID, Product: name, Available: item.Stock, Requested: requested}
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the
// line; anything above the stock is clamped to it.
func (s *Service) UpdateItemQuantity(ctx context.Context, itemID string, qty int) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) error {
		i := indexOf(c, itemID)
		if i < 0 {
			return ErrItemNotFound
		}

		qty = min(qty, c.Items[i].Stock)
		if qty <= 0 {
			c.Items = slices.Delete(c.Items, i, i+1)
			return nil
		}
		c.Items[i].Quantity = qty
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, itemID string) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) error {
		i := indexOf(c, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	})
}

func (s *Service) UpdateItemNote(ctx context.Context, itemID, note string) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) error {
		i := indexOf(c, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items[i].Note = note
		return nil
	})
}

func (s *Service) ClearCart(ctx context.Context) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) error {
		c.Items = nil
		return nil
	})
}

// SyncWithProductData refreshes lines that match latest. Price, stock,
// name and image follow the fresh data; quantities are clamped to the new
// stock and a line whose stock fell to zero is removed. Lines with no match
// are left alone.
func (s *Service) SyncWithProductData(ctx context.Context, latest []ProductInfo) ([]Change, error) {
	byID := make(map[string]ProductInfo, len(latest))
	for _, p := range latest {
		byID[ItemID(p.ProductID, p.VariantID)] = p
	}

	var changes []Change
	_, err := s.mutate(ctx, func(c *Cart) error {
		kept := c.Items[:0]
		for _, line := range c.Items {
			p, ok := byID[line.ID]
			if !ok {
				kept = append(kept, line)
				continue
			}

			ch, keep := applyProduct(&line, p)
			if len(ch.Fields) > 0 {
				changes = append(changes, ch)
			}
			if keep {
				kept = append(kept, line)
			}
		}
		c.Items = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ch := range changes {
		s.log.Info("cart line refreshed",
			zap.String("item", ch.ItemID),
			zap.Strings("fields", ch.Fields),
			zap.Float64("old_price", ch.OldPrice),
			zap.Float64("new_price", ch.NewPrice),
			zap.Int("old_stock", ch.OldStock),
			zap.Int("new_stock", ch.NewStock),
			zap.Bool("removed", ch.Removed),
		)
	}
	return changes, nil
}

func applyProduct(line *Item, p ProductInfo) (Change, bool) {
	ch := Change{
		ItemID:      line.ID,
		OldPrice:    line.Price,
		NewPrice:    p.Price,
		OldStock:    line.Stock,
		NewStock:    p.Stock,
		OldQuantity: line.Quantity,
		NewQuantity: line.Quantity,
	}

	if line.Price != p.Price {
		ch.Fields = append(ch.Fields, "harga")
		line.Price = p.Price
	}
	if line.Stock != p.Stock {
		ch.Fields = append(ch.Fields, "stok_tersedia")
		line.Stock = p.Stock
	}
	if p.Name != "" && line.ProductName != p.Name {
		ch.Fields = append(ch.Fields, "nama_produk")
		line.ProductName = p.Name
	}
	if p.VariantName != "" && line.VariantName != p.VariantName {
		ch.Fields = append(ch.Fields, "nama_varian")
		line.VariantName = p.VariantName
	}
	if p.ImageURL != "" && line.ImageURL != p.ImageURL {
		ch.Fields = append(ch.Fields, "gambar_url")
		line.ImageURL = p.ImageURL
	}

	if line.Quantity > line.Stock {
		ch.Fields = append(ch.Fields, "jumlah")
		line.Quantity = max(line.Stock, 0)
		ch.NewQuantity = line.Quantity
	}
	if line.Quantity == 0 {
		ch.Removed = true
		return ch, false
	}
	return ch, true
}

// Subscribe calls l right away with the current cart and then after every
// persisted mutation.
func (s *Service) Subscribe(ctx context.Context, l Listener) (unsubscribe func(), err error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscriber{id: id, fn: l})
	cur := clone(s.cart)
	s.mu.Unlock()

	l(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscriber) bool { return sub.id == id })
		})
	}, nil
}

func indexOf(c *Cart, id string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == id })
}

func recompute(c *Cart) {
	c.TotalItems = 0
	c.TotalPrice = 0
	for i := range c.Items {
		it := &c.Items[i]
		it.Subtotal = it.Price * float64(it.Quantity)
		c.TotalItems += it.Quantity
		c.TotalPrice += it.Subtotal
	}
}

func clone(c Cart) Cart {
	c.Items = slices.Clone(c.Items)
	return c
}
