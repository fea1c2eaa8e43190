package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jalvarez-dev/farmline-storefront/api/responses"
	"github.com/jalvarez-dev/farmline-storefront/api/validators"
	"github.com/jalvarez-dev/farmline-storefront/internal/cart"
	"github.com/jalvarez-dev/farmline-storefront/internal/cartpage"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// CartController exposes the cart page over HTTP: the rendered state, the
// optimistic mutations, and a change feed for the header badge.
type CartController struct {
	store      *cart.Store
	controller *cartpage.Controller
	logg       *logger.Logger
}

func NewCartController(store *cart.Store, controller *cartpage.Controller, logg *logger.Logger) (*CartController, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if controller == nil {
		return nil, fmt.Errorf("cart page controller required")
	}
	return &CartController{store: store, controller: controller, logg: logg}, nil
}

type lineView struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percentage"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	SKU             string          `json:"sku"`
	StockQuantity   int             `json:"stock_quantity"`
	ProductType     string          `json:"product_type"`
	Note            string          `json:"note,omitempty"`
	Placeholder     bool            `json:"placeholder,omitempty"`
}

type cartView struct {
	Lines  []lineView      `json:"lines"`
	Totals cartpage.Totals `json:"totals"`
}

func toLineView(line cart.Line) lineView {
	return lineView{
		ID:              line.ID,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice,
		DiscountPercent: line.DiscountPercent,
		TotalPrice:      line.TotalPrice,
		Name:            line.Name,
		Image:           line.Image,
		SKU:             line.SKU,
		StockQuantity:   line.StockQuantity,
		ProductType:     line.ProductType,
		Note:            line.Note,
		Placeholder:     line.Placeholder(),
	}
}

func (c *CartController) view() cartView {
	lines := c.store.Lines()
	views := make([]lineView, 0, len(lines))
	for _, line := range lines {
		views = append(views, toLineView(line))
	}
	return cartView{Lines: views, Totals: c.controller.Totals()}
}

// Get renders the current cart page state from the local mirror. No network
// round trip happens here; the mirror is authoritative until a refresh.
func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, c.view())
}

type addItemBody struct {
	ProductID       int64           `json:"product_id" validate:"required"`
	Quantity        int             `json:"quantity" validate:"required,min=1"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percentage"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	SKU             string          `json:"sku"`
	StockQuantity   int             `json:"stock_quantity"`
	ProductType     string          `json:"product_type"`
}

// AddItem adds a product to the cart. The body carries the product snapshot
// from the page, so a placeholder can be rendered when the backend is down.
func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	var body addItemBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	line, err := c.controller.Add(r.Context(), cartpage.AddRequest{
		ProductID:       body.ProductID,
		Quantity:        body.Quantity,
		UnitPrice:       body.UnitPrice,
		DiscountPercent: body.DiscountPercent,
		Name:            body.Name,
		Image:           body.Image,
		SKU:             body.SKU,
		StockQuantity:   body.StockQuantity,
		ProductType:     body.ProductType,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toLineView(line))
}

type updateQuantityBody struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// UpdateItemQuantity applies an optimistic quantity change. The matching
// network write is debounced behind the scenes; the response reflects the
// local state immediately.
func (c *CartController) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var body updateQuantityBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	if err := c.controller.ChangeQuantity(r.Context(), id, body.Quantity); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, c.view())
}

// RemoveItem drops the line optimistically and deletes it on the backend.
func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	if err := c.controller.Remove(r.Context(), id); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, c.view())
}

// Refresh refetches the authoritative cart and reconciles the mirror.
func (c *CartController) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := c.controller.Refresh(r.Context()); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, c.view())
}

// Badge returns the header badge count.
func (c *CartController) Badge(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]int{"item_count": c.store.ItemCount()})
}

// Events streams cart change notifications as server-sent events until the
// client disconnects.
func (c *CartController) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	changes := make(chan cart.Change, 16)
	unsubscribe := c.store.Subscribe(func(change cart.Change) {
		select {
		case changes <- change:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case change := <-changes:
			fmt.Fprintf(w, "event: cart\ndata: {\"op\":%q,\"item_count\":%d}\n\n", change.Op, c.store.ItemCount())
			flusher.Flush()
		}
	}
}

func itemID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id")
	}
	return id, nil
}
