package cartpage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"

	"github.com/jalvarez-dev/farmline-storefront/internal/cart"
	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
)

type quantityUpdate struct {
	id       int64
	quantity int
}

type stubBackend struct {
	mu        sync.Mutex
	cart      []backend.CartItem
	fetchErr  error
	addErr    error
	updateErr error
	deleteErr error

	updates []quantityUpdate
	updated chan quantityUpdate
	deletes []int64
}

func newStubBackend(items ...backend.CartItem) *stubBackend {
	return &stubBackend{cart: items, updated: make(chan quantityUpdate, 8)}
}

func (s *stubBackend) FetchCart(context.Context) ([]backend.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]backend.CartItem(nil), s.cart...), nil
}

func (s *stubBackend) AddCartItem(_ context.Context, req backend.AddCartItemRequest) (*backend.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return nil, s.addErr
	}
	item := serverItem(42, req.Quantity)
	item.ProductID = req.ProductID
	return &item, nil
}

func (s *stubBackend) UpdateCartItemQuantity(_ context.Context, id int64, quantity int) (*backend.CartItem, error) {
	s.mu.Lock()
	update := quantityUpdate{id: id, quantity: quantity}
	s.updates = append(s.updates, update)
	err := s.updateErr
	s.mu.Unlock()
	s.updated <- update
	if err != nil {
		return nil, err
	}
	item := serverItem(id, quantity)
	return &item, nil
}

func (s *stubBackend) DeleteCartItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	return s.deleteErr
}

func (s *stubBackend) recordedUpdates() []quantityUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]quantityUpdate(nil), s.updates...)
}

func serverItem(id int64, quantity int) backend.CartItem {
	unit := decimal.RequireFromString("10.00")
	return backend.CartItem{
		ID:                 id,
		ProductID:          id * 100,
		Quantity:           quantity,
		UnitPrice:          unit,
		DiscountPercentage: decimal.Zero,
		TotalPrice:         unit.Mul(decimal.NewFromInt(int64(quantity))),
		Name:               "Raw Honey",
	}
}

func newHarness(t *testing.T, stub *stubBackend) (*Controller, *cart.Store, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Time{})
	store, err := cart.NewStore(cart.StoreParams{Persister: cart.NewMemoryPersister(), Clock: clk})
	if err != nil {
		t.Fatalf("unexpected error building store: %v", err)
	}
	controller, err := NewController(ControllerParams{Store: store, Client: stub, Clock: clk})
	if err != nil {
		t.Fatalf("unexpected error building controller: %v", err)
	}
	return controller, store, clk
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func lineQuantity(store *cart.Store, id int64) (int, bool) {
	for _, line := range store.Lines() {
		if line.ID == id {
			return line.Quantity, true
		}
	}
	return 0, false
}

func TestChangeQuantityCoalescesRapidEdits(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend(serverItem(1, 1))
	controller, store, clk := newHarness(t, stub)
	if err := controller.Refresh(ctx); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	if err := controller.ChangeQuantity(ctx, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := controller.ChangeQuantity(ctx, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := controller.ChangeQuantity(ctx, 1, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The optimistic update is visible before anything hits the network.
	if qty, _ := lineQuantity(store, 1); qty != 5 {
		t.Fatalf("expected optimistic quantity 5, got %d", qty)
	}
	if len(stub.recordedUpdates()) != 0 {
		t.Fatal("expected no network write inside the debounce window")
	}

	if err := clk.WaitAdvance(defaultDebounceWindow, 2*time.Second, 1); err != nil {
		t.Fatalf("advancing clock: %v", err)
	}

	select {
	case update := <-stub.updated:
		if update.quantity != 5 {
			t.Fatalf("expected the final quantity 5 to be written, got %d", update.quantity)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the debounced write")
	}
	if updates := stub.recordedUpdates(); len(updates) != 1 {
		t.Fatalf("expected a single coalesced write, got %d", len(updates))
	}
}

func TestFlushFailureRevertsToKnownGood(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend(serverItem(1, 1))
	controller, store, clk := newHarness(t, stub)
	if err := controller.Refresh(ctx); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	stub.mu.Lock()
	stub.updateErr = errors.New("backend unavailable")
	stub.mu.Unlock()

	if err := controller.ChangeQuantity(ctx, 1, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty, _ := lineQuantity(store, 1); qty != 5 {
		t.Fatalf("expected optimistic quantity 5, got %d", qty)
	}

	if err := clk.WaitAdvance(defaultDebounceWindow, 2*time.Second, 1); err != nil {
		t.Fatalf("advancing clock: %v", err)
	}
	<-stub.updated

	waitUntil(t, func() bool {
		qty, ok := lineQuantity(store, 1)
		return ok && qty == 1
	}, "expected the failed write to revert to the server snapshot")
}

func TestAddAdoptsServerAssignedLine(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend()
	controller, store, _ := newHarness(t, stub)

	line, err := controller.Add(ctx, AddRequest{ProductID: 4200, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.ID != 42 {
		t.Fatalf("expected the server-assigned id, got %d", line.ID)
	}
	if qty, ok := lineQuantity(store, 42); !ok || qty != 2 {
		t.Fatalf("expected confirmed line in store, got qty=%d ok=%v", qty, ok)
	}
}

func TestAddFallsBackToLocalPlaceholder(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend()
	stub.addErr = errors.New("backend unavailable")
	controller, store, _ := newHarness(t, stub)

	line, err := controller.Add(ctx, AddRequest{
		ProductID: 7,
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("3.50"),
		Name:      "Free-Range Eggs",
	})
	if err != nil {
		t.Fatalf("expected a placeholder instead of an error, got %v", err)
	}
	if !line.Placeholder() {
		t.Fatalf("expected a placeholder id, got %d", line.ID)
	}
	if !line.TotalPrice.Equal(decimal.RequireFromString("7.00")) {
		t.Fatalf("expected computed total 7.00, got %s", line.TotalPrice)
	}
	if qty, ok := lineQuantity(store, line.ID); !ok || qty != 2 {
		t.Fatalf("expected placeholder line in store, got qty=%d ok=%v", qty, ok)
	}
}

func TestRemoveFailureRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend(serverItem(1, 1), serverItem(2, 3))
	controller, store, _ := newHarness(t, stub)
	if err := controller.Refresh(ctx); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	stub.mu.Lock()
	stub.deleteErr = errors.New("backend unavailable")
	stub.mu.Unlock()

	err := controller.Remove(ctx, 1)
	if err == nil {
		t.Fatal("expected an error when the delete fails")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected a dependency error, got %v", err)
	}
	if qty, ok := lineQuantity(store, 1); !ok || qty != 1 {
		t.Fatalf("expected the removed line to be restored, got qty=%d ok=%v", qty, ok)
	}
}

func TestRemoveSuccessReconcilesFromServer(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend(serverItem(1, 1), serverItem(2, 3))
	controller, store, _ := newHarness(t, stub)
	if err := controller.Refresh(ctx); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	stub.mu.Lock()
	stub.cart = []backend.CartItem{serverItem(2, 3)}
	stub.mu.Unlock()

	if err := controller.Remove(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := lineQuantity(store, 1); ok {
		t.Fatal("expected line 1 to be gone after removal")
	}
	if qty, ok := lineQuantity(store, 2); !ok || qty != 3 {
		t.Fatalf("expected refetched line 2 with quantity 3, got qty=%d ok=%v", qty, ok)
	}
}

func TestTotalsReflectDiscounts(t *testing.T) {
	ctx := context.Background()
	stub := newStubBackend()
	controller, store, _ := newHarness(t, stub)

	first := cart.Line{ID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")}
	first.Recalculate()
	second := cart.Line{
		ID:              2,
		Quantity:        1,
		UnitPrice:       decimal.RequireFromString("5.00"),
		DiscountPercent: decimal.NewFromInt(20),
	}
	second.Recalculate()
	store.AddLine(ctx, first)
	store.AddLine(ctx, second)

	totals := controller.Totals()
	if !totals.Subtotal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected subtotal 25.00, got %s", totals.Subtotal)
	}
	if !totals.GrandTotal.Equal(decimal.RequireFromString("24.00")) {
		t.Fatalf("expected grand total 24.00, got %s", totals.GrandTotal)
	}
	if !totals.Savings.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("expected savings 1.00, got %s", totals.Savings)
	}
	if totals.ItemCount != 3 {
		t.Fatalf("expected item count 3, got %d", totals.ItemCount)
	}
}
