package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jalvarez-dev/farmline-storefront/internal/cart"
	"github.com/jalvarez-dev/farmline-storefront/internal/cartpage"
	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
)

type stubMarketplace struct {
	items []backend.CartItem
}

func (s *stubMarketplace) FetchCart(context.Context) ([]backend.CartItem, error) {
	return append([]backend.CartItem(nil), s.items...), nil
}

func (s *stubMarketplace) AddCartItem(_ context.Context, req backend.AddCartItemRequest) (*backend.CartItem, error) {
	unit := decimal.RequireFromString("2.50")
	item := backend.CartItem{
		ID:         int64(len(s.items)) + 1,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}
	s.items = append(s.items, item)
	return &item, nil
}

func (s *stubMarketplace) UpdateCartItemQuantity(_ context.Context, id int64, quantity int) (*backend.CartItem, error) {
	item := backend.CartItem{ID: id, Quantity: quantity}
	return &item, nil
}

func (s *stubMarketplace) DeleteCartItem(context.Context, int64) error {
	return nil
}

func newCartController(t *testing.T) (*CartController, *cart.Store) {
	t.Helper()
	store, err := cart.NewStore(cart.StoreParams{Persister: cart.NewMemoryPersister()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := cartpage.NewController(cartpage.ControllerParams{Store: store, Client: &stubMarketplace{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	controller, err := NewCartController(store, page, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return controller, store
}

func seedLine(t *testing.T, store *cart.Store, id int64, quantity int) {
	t.Helper()
	line := cart.Line{ID: id, ProductID: id * 10, Quantity: quantity, UnitPrice: decimal.RequireFromString("2.50")}
	line.Recalculate()
	store.AddLine(context.Background(), line)
}

func TestCartGetRendersLinesAndTotals(t *testing.T) {
	controller, store := newCartController(t)
	seedLine(t, store, 1, 2)

	rec := httptest.NewRecorder()
	controller.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Lines  []map[string]any `json:"lines"`
			Totals map[string]any   `json:"totals"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Data.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(body.Data.Lines))
	}
	if body.Data.Totals["item_count"] != float64(2) {
		t.Fatalf("expected item count 2, got %v", body.Data.Totals["item_count"])
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	controller, _ := newCartController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"product_id":10,"quantity":0}`))
	rec := httptest.NewRecorder()
	controller.AddItem(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddItemCreatesLine(t *testing.T) {
	controller, store := newCartController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"product_id":10,"quantity":2,"unit_price":"2.50","name":"Fresh Basil"}`))
	rec := httptest.NewRecorder()
	controller.AddItem(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if count := store.ItemCount(); count != 2 {
		t.Fatalf("expected 2 items in the store, got %d", count)
	}
}

func TestBadgeReportsItemCount(t *testing.T) {
	controller, store := newCartController(t)
	seedLine(t, store, 1, 2)
	seedLine(t, store, 2, 3)

	rec := httptest.NewRecorder()
	controller.Badge(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/badge", nil))

	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Data["item_count"] != 5 {
		t.Fatalf("expected badge count 5, got %d", body.Data["item_count"])
	}
}
