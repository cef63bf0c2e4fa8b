package cart_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"StoreClient/internal/cart"
	"StoreClient/internal/kvstore"
)

func kursi(qty, stock int) cart.Item {
	return cart.Item{ProductID: 10, ProductName: "Kursi Lipat", Price: 150000, Quantity: qty, Stock: stock}
}

func meja(variant int64, qty, stock int) cart.Item {
	return cart.Item{ProductID: 20, VariantID: variant, ProductName: "Meja", VariantName: "Jati", Price: 900000, Quantity: qty, Stock: stock}
}

func TestItemID(t *testing.T) {
	if got := cart.ItemID(5, 0); got != "5" {
		t.Fatalf("got %q", got)
	}
	if got := cart.ItemID(5, 9); got != "5_9" {
		t.Fatalf("got %q", got)
	}
}

func TestAddMergesSameIdentity(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	if _, err := s.AddItem(ctx, kursi(1, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := s.AddItem(ctx, kursi(2, 5))
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 3 {
		t.Fatalf("expected one line of 3, got %+v", c.Items)
	}

	c, err = s.AddItem(ctx, meja(1, 1, 2))
	if err != nil {
		t.Fatalf("add variant: %v", err)
	}
	c, err = s.AddItem(ctx, meja(2, 1, 2))
	if err != nil {
		t.Fatalf("add other variant: %v", err)
	}
	if len(c.Items) != 3 {
		t.Fatalf("different variants must be distinct lines, got %+v", c.Items)
	}
}

func TestAddExceedingStockIsRejected(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	s := cart.New(kv)

	c, err := s.AddItem(ctx, kursi(2, 3))
	if err != nil || c.Items[0].Quantity != 2 {
		t.Fatalf("first add c=%+v err=%v", c, err)
	}

	_, err = s.AddItem(ctx, kursi(2, 3))
	var se *cart.StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if se.Available != 3 || se.Requested != 4 {
		t.Fatalf("stock error=%+v", se)
	}

	c, _ = s.Cart(ctx)
	if c.Items[0].Quantity != 2 {
		t.Fatalf("rejected add changed the cart: %+v", c.Items)
	}

	reloaded, _ := cart.New(kv).Cart(ctx)
	if reloaded.Items[0].Quantity != 2 {
		t.Fatalf("rejected add was persisted: %+v", reloaded.Items)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	if _, err := s.AddItem(ctx, kursi(0, 3)); !errors.Is(err, cart.ErrInvalidQuantity) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.AddItem(ctx, cart.Item{Quantity: 1, Stock: 1}); !errors.Is(err, cart.ErrInvalidProduct) {
		t.Fatalf("err=%v", err)
	}
	var se *cart.StockError
	if _, err := s.AddItem(ctx, kursi(4, 3)); !errors.As(err, &se) {
		t.Fatalf("single add above stock must fail, err=%v", err)
	}
}

func TestUpdateQuantityClampsAndRemoves(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())
	_, _ = s.AddItem(ctx, kursi(1, 4))
	id := cart.ItemID(10, 0)

	c, err := s.UpdateItemQuantity(ctx, id, 10)
	if err != nil || c.Items[0].Quantity != 4 {
		t.Fatalf("clamp c=%+v err=%v", c.Items, err)
	}

	c, err = s.UpdateItemQuantity(ctx, id, 0)
	if err != nil || len(c.Items) != 0 {
		t.Fatalf("zero must remove, c=%+v err=%v", c.Items, err)
	}

	if _, err := s.UpdateItemQuantity(ctx, id, 1); !errors.Is(err, cart.ErrItemNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.RemoveItem(ctx, id); !errors.Is(err, cart.ErrItemNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestTotalsAreDerived(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	_, _ = s.AddItem(ctx, kursi(2, 10))
	_, _ = s.AddItem(ctx, meja(3, 1, 5))
	c, _ := s.UpdateItemQuantity(ctx, cart.ItemID(20, 3), 2)

	assertTotals(t, c)
	if c.TotalItems != 4 || c.TotalPrice != 2*150000+2*900000 {
		t.Fatalf("totals=%d/%v", c.TotalItems, c.TotalPrice)
	}

	c, _ = s.ClearCart(ctx)
	if c.TotalItems != 0 || c.TotalPrice != 0 || len(c.Items) != 0 {
		t.Fatalf("clear=%+v", c)
	}
}

func TestStockInvariantUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())
	rnd := rand.New(rand.NewSource(42))

	for step := 0; step < 500; step++ {
		before, _ := s.Cart(ctx)

		pid := int64(rnd.Intn(3) + 1)
		vid := int64(rnd.Intn(2))
		stock := rnd.Intn(6)

		var (
			after cart.Cart
			err   error
		)
		if rnd.Intn(2) == 0 {
			after, err = s.AddItem(ctx, cart.Item{ProductID: pid, VariantID: vid, Price: float64(pid * 1000), Quantity: rnd.Intn(4) + 1, Stock: stock})
		} else {
			after, err = s.UpdateItemQuantity(ctx, cart.ItemID(pid, vid), rnd.Intn(8)-1)
		}

		if err != nil {
			now, _ := s.Cart(ctx)
			if !sameLines(before, now) {
				t.Fatalf("step %d: failed call changed the cart: %v", step, err)
			}
			continue
		}
		for _, it := range after.Items {
			if it.Quantity <= 0 || it.Quantity > it.Stock {
				t.Fatalf("step %d: invariant broken on %+v", step, it)
			}
		}
		assertTotals(t, after)
	}
}

func TestSyncWithProductData(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	_, _ = s.AddItem(ctx, kursi(3, 10))
	_, _ = s.AddItem(ctx, meja(1, 2, 5))
	_, _ = s.AddItem(ctx, meja(2, 1, 5))
	_, _ = s.AddItem(ctx, cart.Item{ProductID: 30, ProductName: "Lemari", Price: 50, Quantity: 1, Stock: 1})

	changes, err := s.SyncWithProductData(ctx, []cart.ProductInfo{
		{ProductID: 10, Name: "Kursi Lipat", Price: 175000, Stock: 2, ImageURL: "https://img/kursi.jpg"},
		{ProductID: 20, VariantID: 1, Name: "Meja", VariantName: "Jati", Price: 900000, Stock: 5},
		{ProductID: 20, VariantID: 2, Name: "Meja", VariantName: "Jati", Price: 900000, Stock: 0},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes=%+v", changes)
	}

	kursiChange := changes[0]
	if kursiChange.ItemID != "10" || kursiChange.NewPrice != 175000 || kursiChange.NewQuantity != 2 || kursiChange.Removed {
		t.Fatalf("kursi change=%+v", kursiChange)
	}
	if !changes[1].Removed || changes[1].ItemID != "20_2" {
		t.Fatalf("sold out change=%+v", changes[1])
	}

	c, _ := s.Cart(ctx)
	if len(c.Items) != 3 {
		t.Fatalf("items=%+v", c.Items)
	}
	k, _, _ := s.Item(ctx, 10, 0)
	if k.Price != 175000 || k.Quantity != 2 || k.Stock != 2 || k.ImageURL != "https://img/kursi.jpg" {
		t.Fatalf("kursi=%+v", k)
	}
	if ok, _ := s.Contains(ctx, 30, 0); !ok {
		t.Fatalf("line absent from fresh data must be kept")
	}
	assertTotals(t, c)
}

type failingStore struct {
	*kvstore.MemStore
	fail bool
}

func (f *failingStore) Set(ctx context.Context, k, v string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemStore.Set(ctx, k, v)
}

func TestFailedPersistLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	kv := &failingStore{MemStore: kvstore.NewMemStore()}
	s := cart.New(kv)

	_, _ = s.AddItem(ctx, kursi(1, 5))
	kv.fail = true

	if _, err := s.AddItem(ctx, kursi(1, 5)); err == nil {
		t.Fatalf("expected persist error")
	}
	c, _ := s.Cart(ctx)
	if c.Items[0].Quantity != 1 {
		t.Fatalf("cart changed despite failed save: %+v", c.Items)
	}
}

func TestListenersAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	if _, err := cart.New(kv).AddItem(ctx, kursi(2, 5)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := cart.New(kv)

	var seen []int
	unsubscribe, err := s.Subscribe(ctx, func(c cart.Cart) { seen = append(seen, c.TotalItems) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("listener should see the persisted cart first, seen=%v", seen)
	}

	_, _ = s.AddItem(ctx, kursi(1, 5))
	_, _ = s.AddItem(ctx, kursi(9, 5))
	_, _ = s.AddItem(ctx, kursi(1, 5))
	unsubscribe()
	_, _ = s.ClearCart(ctx)

	if len(seen) != 3 || seen[1] != 3 || seen[2] != 4 {
		t.Fatalf("seen=%v", seen)
	}
}

func TestMergeKeepsNewestNote(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	first := kursi(1, 5)
	first.Note = "warna hitam"
	if _, err := s.AddItem(ctx, first); err != nil {
		t.Fatalf("add: %v", err)
	}

	c, err := s.AddItem(ctx, kursi(1, 5))
	if err != nil || c.Items[0].Note != "warna hitam" {
		t.Fatalf("empty note must not clear the line: %+v err=%v", c.Items, err)
	}

	second := kursi(1, 5)
	second.Note = "bungkus kado"
	c, err = s.AddItem(ctx, second)
	if err != nil || c.Items[0].Note != "bungkus kado" || c.Items[0].Quantity != 3 {
		t.Fatalf("merged line=%+v err=%v", c.Items, err)
	}
}

func TestCorruptCartStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	_ = kv.Set(ctx, cart.StorageKey, "{nope")

	c, err := cart.New(kv).Cart(ctx)
	if err != nil || len(c.Items) != 0 {
		t.Fatalf("c=%+v err=%v", c, err)
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	s := cart.New(kvstore.NewMemStore())

	_, _ = s.AddItem(ctx, kursi(2, 5))
	_, _ = s.AddItem(ctx, meja(1, 1, 3))
	_, _ = s.AddItem(ctx, meja(2, 1, 3))
	_, _ = s.UpdateItemNote(ctx, "10", "warna hitam")

	od, err := s.OrderData(ctx)
	if err != nil {
		t.Fatalf("order data: %v", err)
	}
	if len(od.Items) != 3 || od.Items[0] != (cart.OrderLine{ProductID: 10, Quantity: 2, Note: "warna hitam"}) || od.Items[1].VariantID != 1 {
		t.Fatalf("order data=%+v", od)
	}
	if od.TotalItems != 4 || od.TotalPrice != 2*150000+2*900000 {
		t.Fatalf("order totals=%+v", od)
	}

	groups, _ := s.Grouped(ctx)
	if len(groups) != 2 || len(groups[20]) != 2 {
		t.Fatalf("groups=%+v", groups)
	}

	total, _ := s.DiscountedTotal(ctx, 100000)
	if total != 2*150000+2*900000-100000 {
		t.Fatalf("discounted=%v", total)
	}
	if total, _ := s.DiscountedTotal(ctx, 1e9); total != 0 {
		t.Fatalf("discount must floor at zero, got %v", total)
	}

	n, _ := s.ItemCount(ctx)
	if n != 4 {
		t.Fatalf("count=%d", n)
	}

	if issues, _ := s.Validate(ctx); len(issues) != 0 {
		t.Fatalf("issues=%+v", issues)
	}
}

func assertTotals(t *testing.T, c cart.Cart) {
	t.Helper()
	var items int
	var price float64
	for _, it := range c.Items {
		if it.Subtotal != it.Price*float64(it.Quantity) {
			t.Fatalf("subtotal drift on %+v", it)
		}
		items += it.Quantity
		price += it.Price * float64(it.Quantity)
	}
	if c.TotalItems != items || c.TotalPrice != price {
		t.Fatalf("totals %d/%v want %d/%v", c.TotalItems, c.TotalPrice, items, price)
	}
}

func sameLines(a, b cart.Cart) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}
