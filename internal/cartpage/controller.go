package cartpage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/jalvarez-dev/farmline-storefront/internal/cart"
	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
	"github.com/jalvarez-dev/farmline-storefront/pkg/metrics"
)

const defaultDebounceWindow = 500 * time.Millisecond

type backendClient interface {
	FetchCart(ctx context.Context) ([]backend.CartItem, error)
	AddCartItem(ctx context.Context, req backend.AddCartItemRequest) (*backend.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) (*backend.CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) error
}

// ControllerParams configures a Controller.
type ControllerParams struct {
	Store          *cart.Store
	Client         backendClient
	Clock          clock.Clock
	DebounceWindow time.Duration
	Metrics        *metrics.CartMetrics
	Logger         *logger.Logger
}

// Controller orchestrates the cart page: optimistic store updates, local
// total recomputation, debounced quantity writes, and reverts against the
// last known-good server snapshot when a network call fails. No retries;
// a failed write surfaces as a warning and a rollback.
type Controller struct {
	store    *cart.Store
	client   backendClient
	clk      clock.Clock
	debounce time.Duration
	mets     *metrics.CartMetrics
	logg     *logger.Logger

	mu             sync.Mutex
	lastKnownGood  []cart.Line
	pending        map[int64]*pendingWrite
	placeholderSeq int64
}

type pendingWrite struct {
	quantity int
	timer    clock.Timer
}

// NewController builds a cart page controller.
func NewController(params ControllerParams) (*Controller, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	window := params.DebounceWindow
	if window <= 0 {
		window = defaultDebounceWindow
	}
	return &Controller{
		store:    params.Store,
		client:   params.Client,
		clk:      clk,
		debounce: window,
		mets:     params.Metrics,
		logg:     params.Logger,
		pending:  map[int64]*pendingWrite{},
	}, nil
}

// AddRequest carries the product snapshot shown on the page, so a placeholder
// line can be synthesized when the backend is unreachable.
type AddRequest struct {
	ProductID       int64
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	Name            string
	Image           string
	SKU             string
	StockQuantity   int
	ProductType     string
}

// Add sends the add to the backend and adopts the confirmed line with its
// server-assigned id and authoritative prices. On network failure a local
// placeholder with a negative id is inserted, pending reconciliation.
func (c *Controller) Add(ctx context.Context, req AddRequest) (cart.Line, error) {
	start := c.clk.Now()
	item, err := c.client.AddCartItem(ctx, backend.AddCartItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	c.mets.ObserveBackend("add_item", c.clk.Now().Sub(start))
	if err != nil {
		c.mets.IncBackendFailure("add_item")
		if c.logg != nil {
			c.logg.Warn(ctx, "cart add failed, inserting local placeholder")
		}
		line := cart.Line{
			ID:              c.nextPlaceholderID(),
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			Name:            req.Name,
			Image:           req.Image,
			SKU:             req.SKU,
			StockQuantity:   req.StockQuantity,
			ProductType:     req.ProductType,
		}
		line.Recalculate()
		c.store.AddLine(ctx, line)
		return line, nil
	}

	line := fromBackendItem(*item)
	c.store.AddLine(ctx, line)
	c.mergeKnownGood(line)
	return line, nil
}

// ChangeQuantity recomputes the line total locally, applies the optimistic
// store update, and schedules a debounced PATCH. Rapid calls on the same
// line coalesce; only the last quantity in the window reaches the network.
func (c *Controller) ChangeQuantity(ctx context.Context, id int64, quantity int) error {
	var target *cart.Line
	for _, line := range c.store.Lines() {
		if line.ID == id {
			copied := line
			target = &copied
			break
		}
	}
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	target.Quantity = quantity
	target.Recalculate()
	c.store.SetLine(ctx, *target)

	c.mu.Lock()
	if entry, ok := c.pending[id]; ok {
		entry.quantity = quantity
		entry.timer.Reset(c.debounce)
	} else {
		entry := &pendingWrite{quantity: quantity}
		entry.timer = c.clk.AfterFunc(c.debounce, func() {
			c.flushQuantity(id)
		})
		c.pending[id] = entry
	}
	c.mu.Unlock()
	return nil
}

// flushQuantity fires when a debounce window closes. The request runs on a
// background context: the page interaction that queued it has long returned.
func (c *Controller) flushQuantity(id int64) {
	c.mu.Lock()
	entry, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	quantity := entry.quantity
	c.mu.Unlock()

	ctx := context.Background()
	start := c.clk.Now()
	item, err := c.client.UpdateCartItemQuantity(ctx, id, quantity)
	c.mets.ObserveBackend("patch_quantity", c.clk.Now().Sub(start))
	if err != nil {
		c.mets.IncBackendFailure("patch_quantity")
		if c.logg != nil {
			c.logg.Error(c.logg.WithLineID(ctx, id), "quantity update failed, reverting to server snapshot", err)
		}
		c.store.Reconcile(ctx, c.knownGood())
		return
	}

	confirmed := fromBackendItem(*item)
	c.store.SetLine(ctx, confirmed)
	c.mergeKnownGood(confirmed)
}

// Remove optimistically drops the line and issues an immediate DELETE. On
// success the cart is refetched and reconciled; on failure both the store
// and the snapshot view roll back to the last known-good server state.
func (c *Controller) Remove(ctx context.Context, id int64) error {
	c.store.RemoveLine(ctx, id)

	start := c.clk.Now()
	err := c.client.DeleteCartItem(ctx, id)
	c.mets.ObserveBackend("delete_item", c.clk.Now().Sub(start))
	if err != nil {
		c.mets.IncBackendFailure("delete_item")
		if c.logg != nil {
			c.logg.Error(c.logg.WithLineID(ctx, id), "cart removal failed, restoring server snapshot", err)
		}
		c.store.Reconcile(ctx, c.knownGood())
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}

	if err := c.Refresh(ctx); err != nil {
		// The delete succeeded; a failed refetch leaves the optimistic state
		// in place until the next successful refresh.
		if c.logg != nil {
			c.logg.Warn(ctx, "cart refetch after removal failed")
		}
	}
	return nil
}

// Refresh fetches the authoritative cart, records it as the last known-good
// snapshot, and reconciles the store against it.
func (c *Controller) Refresh(ctx context.Context) error {
	start := c.clk.Now()
	items, err := c.client.FetchCart(ctx)
	c.mets.ObserveBackend("fetch_cart", c.clk.Now().Sub(start))
	if err != nil {
		c.mets.IncBackendFailure("fetch_cart")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch cart")
	}

	lines := make([]cart.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, fromBackendItem(item))
	}

	c.mu.Lock()
	c.lastKnownGood = append([]cart.Line(nil), lines...)
	c.mu.Unlock()

	c.store.Reconcile(ctx, lines)
	return nil
}

// Totals aggregates the page-level amounts from the current store state.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Savings    decimal.Decimal `json:"savings"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	ItemCount  int             `json:"item_count"`
}

// Totals recomputes subtotal, discount savings, and grand total locally.
func (c *Controller) Totals() Totals {
	subtotal := decimal.Zero
	grand := decimal.Zero
	count := 0
	for _, line := range c.store.Lines() {
		full := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(full)
		grand = grand.Add(cart.LineTotal(line.UnitPrice, line.Quantity, line.DiscountPercent))
		count += line.Quantity
	}
	return Totals{
		Subtotal:   subtotal,
		Savings:    subtotal.Sub(grand),
		GrandTotal: grand,
		ItemCount:  count,
	}
}

func (c *Controller) knownGood() []cart.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cart.Line(nil), c.lastKnownGood...)
}

// mergeKnownGood folds a server-confirmed line into the snapshot without a
// full refetch.
func (c *Controller) mergeKnownGood(line cart.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lastKnownGood {
		if c.lastKnownGood[i].ID == line.ID {
			c.lastKnownGood[i] = line
			return
		}
	}
	c.lastKnownGood = append(c.lastKnownGood, line)
}

func (c *Controller) nextPlaceholderID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placeholderSeq--
	return c.placeholderSeq
}

func fromBackendItem(item backend.CartItem) cart.Line {
	return cart.Line{
		ID:              item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		DiscountPercent: item.DiscountPercentage,
		TotalPrice:      item.TotalPrice,
		Name:            item.Name,
		Image:           item.Image,
		SKU:             item.SKU,
		StockQuantity:   item.StockQuantity,
		ProductType:     item.ProductType,
	}
}
