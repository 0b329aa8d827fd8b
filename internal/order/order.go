package order

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-mayorista/internal/cart"
	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/pricing"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "Pendiente"
	StatusPreparing Status = "En Preparación"
	StatusShipped   Status = "Enviado"
	StatusDelivered Status = "Entregado"
	StatusCancelled Status = "Cancelado"
)

// SellerPending marks an order whose seller has not been assigned yet.
const SellerPending = "PENDING"

// DateLayout is the calendar format of Order.Date.
const DateLayout = "2006-01-02"

// IDPrefix starts every generated order id.
const IDPrefix = "PED-"

// ParseStatus matches raw against the known statuses.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusPending, StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled:
		return s, true
	}
	return "", false
}

// LineItem is the per-product breakdown of a submitted order.
type LineItem struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	Quantity         int    `json:"quantity"`
	OriginalQuantity int    `json:"originalQuantity"`
	PricePerUnit     int64  `json:"pricePerUnit"`
	Image            string `json:"image,omitempty"`
}

// Order is the snapshot produced when a cart is submitted. Total is gross,
// discount-applied and tax-inclusive.
type Order struct {
	ID          string     `json:"id"`
	Customer    string     `json:"customer"`
	ClientID    string     `json:"clientId,omitempty"`
	PriceListID string     `json:"priceListId,omitempty"`
	Date        string     `json:"date"`
	Total       int64      `json:"total"`
	Status      Status     `json:"status"`
	Items       int        `json:"items"`
	LineItems   []LineItem `json:"lineItems,omitempty"`
	SellerID    string     `json:"sellerId"`
}

// NewID returns a fresh order identifier such as PED-3F2A9C1B7E4D.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IDPrefix + strings.ToUpper(raw[:12])
}

// Build snapshots the cart into a pending order. It reports false when there is
// no client or the cart is empty.
func Build(client *catalog.Client, c *cart.Cart, pl catalog.PriceList, now time.Time, newID func() string) (Order, bool) {
	if client == nil || c == nil || c.IsEmpty() {
		return Order{}, false
	}
	if newID == nil {
		newID = NewID
	}
	lines := c.Lines()
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineItem{
			ID:               l.Product.ID,
			Name:             l.Product.Name,
			SKU:              l.Product.SKU,
			Quantity:         l.Quantity,
			OriginalQuantity: l.Quantity,
			PricePerUnit:     pricing.FinalUnitPrice(l.Product.Price, pl.DiscountPercentage),
			Image:            l.Product.Image,
		})
	}
	summary := c.Summary(pl, pricing.DefaultTaxRateBps)
	return Order{
		ID:          newID(),
		Customer:    client.Company,
		ClientID:    client.ID,
		PriceListID: pl.ID,
		Date:        now.Format(DateLayout),
		Total:       summary.Subtotal,
		Status:      StatusPending,
		Items:       summary.Items,
		LineItems:   items,
		SellerID:    SellerPending,
	}, true
}
