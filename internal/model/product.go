package model

type Product struct {
	Record
	SKU      string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name     string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category string `gorm:"type:varchar(100);index" json:"category"`
	ImageURL string `gorm:"type:text" json:"image_url"`
	Stock    int    `gorm:"default:0;not null" json:"stock" validate:"gte=0"`
	Unit     string `gorm:"type:varchar(20)" json:"unit"`
	Price    int64  `gorm:"default:0;not null" json:"price" validate:"gte=0"`
}

// ProductRef is the part of a Product copied into a sale. It is decoupled
// from the catalog so receipts stay stable when the product changes later.
type ProductRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Ref snapshots the product at the given unit price.
func (p *Product) Ref(price int64) ProductRef {
	return ProductRef{
		ID:       p.ID.String(),
		Name:     p.Name,
		Price:    price,
		Category: p.Category,
		ImageURL: p.ImageURL,
	}
}

// InventoryStats for the dashboard overview
type InventoryStats struct {
	TotalProducts  int64 `json:"total_products"`
	LowStockCount  int64 `json:"low_stock_count"`
	TotalValuation int64 `json:"total_valuation"`
}
