package orders

import "time"

type Order struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	Status          Status     `json:"status"`
	TotalCents      int        `json:"total_cents"`
	ShippingAddress string     `json:"shipping_address"`
	PaymentMethod   string     `json:"payment_method"`
	Paid            bool       `json:"paid"`
	Items           []LineItem `json:"items,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// LineItem carries the unit price captured at reservation time; the live
// product price may move afterwards without touching committed orders.
type LineItem struct {
	ProductID  string `json:"product_id"`
	SupplierID string `json:"supplier_id,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`

	// populated on reads for display
	ProductName  string `json:"product_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

const (
	PaymentCOD    = "COD"
	PaymentOnline = "ONLINE"
)

func ValidPaymentMethod(m string) bool {
	return m == PaymentCOD || m == PaymentOnline
}
