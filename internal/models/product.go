package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog.
type Product struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string          `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock     int             `json:"stock" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductRequest carries the caller-supplied fields of a create or update.
// A nil Price or Stock means the field was not sent.
type ProductRequest struct {
	Name  string           `json:"name" validate:"omitempty,min=2,max=100"`
	Price *decimal.Decimal `json:"price" validate:"required,gt=0"`
	Stock *int             `json:"stock" validate:"required,gt=0"`
}

// NewProduct builds an unsaved product. The id is assigned by the store.
func NewProduct(name string, price decimal.Decimal, stock int) *Product {
	return &Product{
		Name:  name,
		Price: price,
		Stock: stock,
	}
}

// ApplyRequest replaces every field except the id with the request values.
func (p *Product) ApplyRequest(req ProductRequest) {
	p.Name = req.Name
	p.applyAmounts(req)
}

// ApplyRequestKeepName replaces price and stock but leaves the name untouched,
// for updates where the name identifies the product.
func (p *Product) ApplyRequestKeepName(req ProductRequest) {
	p.applyAmounts(req)
}

func (p *Product) applyAmounts(req ProductRequest) {
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
}
