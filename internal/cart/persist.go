package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Persister owns the durable copy of the cart mirror. The store is the sole
// writer; implementations only need whole-collection load/save.
type Persister interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

// document is the persisted layout for document-shaped backends: a single
// durable key holding {"items": [...]}. Only the items array is durable.
type document struct {
	Items []documentLine `json:"items"`
}

type documentLine struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Name               string          `json:"name"`
	Image              string          `json:"image"`
	SKU                string          `json:"sku"`
	StockQuantity      int             `json:"stock_quantity"`
	ProductType        string          `json:"product_type"`
	Note               string          `json:"note,omitempty"`
}

func toDocument(lines []Line) document {
	doc := document{Items: make([]documentLine, 0, len(lines))}
	for _, line := range lines {
		doc.Items = append(doc.Items, documentLine{
			ID:                 line.ID,
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			DiscountPercentage: line.DiscountPercent,
			TotalPrice:         line.TotalPrice,
			Name:               line.Name,
			Image:              line.Image,
			SKU:                line.SKU,
			StockQuantity:      line.StockQuantity,
			ProductType:        line.ProductType,
			Note:               line.Note,
		})
	}
	return doc
}

func (d document) lines() []Line {
	lines := make([]Line, 0, len(d.Items))
	for _, item := range d.Items {
		lines = append(lines, Line{
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
			Note:            item.Note,
		})
	}
	return lines
}

// MemoryPersister keeps the collection in process memory. Used by tests and
// ephemeral sessions.
type MemoryPersister struct {
	mu    sync.Mutex
	lines []Line
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load(_ context.Context) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Line(nil), m.lines...), nil
}

func (m *MemoryPersister) Save(_ context.Context, lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append([]Line(nil), lines...)
	return nil
}
