package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// cartLineRow maps a line onto the cart_lines sqlite table. Decimals are
// stored as text so price fields round-trip exactly.
type cartLineRow struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	ProductID       int64     `gorm:"column:product_id;not null"`
	Quantity        int       `gorm:"column:quantity;not null"`
	UnitPrice       string    `gorm:"column:unit_price;not null"`
	DiscountPercent string    `gorm:"column:discount_percent;not null"`
	TotalPrice      string    `gorm:"column:total_price;not null"`
	Name            string    `gorm:"column:name;not null"`
	Image           string    `gorm:"column:image;not null"`
	SKU             string    `gorm:"column:sku;not null"`
	StockQuantity   int       `gorm:"column:stock_quantity;not null"`
	ProductType     string    `gorm:"column:product_type;not null"`
	Note            string    `gorm:"column:note;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (cartLineRow) TableName() string {
	return "cart_lines"
}

// GormPersister stores one row per line in the local sqlite mirror.
type GormPersister struct {
	db *gorm.DB
}

func NewGormPersister(db *gorm.DB) (*GormPersister, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm connection required")
	}
	return &GormPersister{db: db}, nil
}

func (g *GormPersister) Load(ctx context.Context) ([]Line, error) {
	var rows []cartLineRow
	if err := g.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading cart rows: %w", err)
	}
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		line, err := row.toLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (g *GormPersister) Save(ctx context.Context, lines []Line) error {
	rows := make([]cartLineRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, toRow(line))
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&cartLineRow{}).Error; err != nil {
			return fmt.Errorf("clearing cart rows: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing cart rows: %w", err)
		}
		return nil
	})
}

func toRow(line Line) cartLineRow {
	return cartLineRow{
		ID:              line.ID,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice.String(),
		DiscountPercent: line.DiscountPercent.String(),
		TotalPrice:      line.TotalPrice.String(),
		Name:            line.Name,
		Image:           line.Image,
		SKU:             line.SKU,
		StockQuantity:   line.StockQuantity,
		ProductType:     line.ProductType,
		Note:            line.Note,
	}
}

func (r cartLineRow) toLine() (Line, error) {
	unit, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		return Line{}, fmt.Errorf("parsing unit price for line %d: %w", r.ID, err)
	}
	discount, err := decimal.NewFromString(r.DiscountPercent)
	if err != nil {
		return Line{}, fmt.Errorf("parsing discount for line %d: %w", r.ID, err)
	}
	total, err := decimal.NewFromString(r.TotalPrice)
	if err != nil {
		return Line{}, fmt.Errorf("parsing total for line %d: %w", r.ID, err)
	}
	return Line{
		ID:              r.ID,
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		UnitPrice:       unit,
		DiscountPercent: discount,
		TotalPrice:      total,
		Name:            r.Name,
		Image:           r.Image,
		SKU:             r.SKU,
		StockQuantity:   r.StockQuantity,
		ProductType:     r.ProductType,
		Note:            r.Note,
	}, nil
}
