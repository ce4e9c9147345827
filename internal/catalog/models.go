package catalog

import "time"

// ProductStatus is the moderation state of a listing, not the order workflow.
type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductPending, ProductApproved, ProductRejected:
		return true
	}
	return false
}

type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	PriceCents  int           `json:"price_cents"`
	Stock       int           `json:"stock"`
	Images      []string      `json:"images,omitempty"`
	CategoryID  string        `json:"category_id,omitempty"`
	SupplierID  string        `json:"supplier_id"`
	Origin      string        `json:"origin,omitempty"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int      `json:"price_cents"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
	CategoryID  string   `json:"category_id"`
	SupplierID  string   `json:"supplier_id"`
	Origin      string   `json:"origin"`
}

func (in CreateProductInput) Validate() error {
	switch {
	case in.Name == "":
		return ErrMissingName
	case in.PriceCents < 0:
		return ErrNegativePrice
	case in.Stock < 0:
		return ErrNegativeStock
	case in.SupplierID == "":
		return ErrMissingSupplier
	}
	return nil
}
