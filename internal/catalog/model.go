package catalog

import "errors"

var (
	// ErrProductNotFound is returned when a product id is not part of the catalog.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrClientNotFound is returned when a client id is not part of the catalog.
	ErrClientNotFound = errors.New("catalog: client not found")
	// ErrPriceListNotFound is returned when a price list id is unknown.
	ErrPriceListNotFound = errors.New("catalog: price list not found")
)

// BasePriceListID identifies the zero-discount list used as fallback.
const BasePriceListID = "pl-base"

// Product is a sellable catalog item. Price is the base unit price in whole
// currency units and MinOrder is the pack size every ordered quantity must be a
// multiple of.
type Product struct {
	ID          string   `json:"id" validate:"required"`
	SKU         string   `json:"sku" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	SubCategory string   `json:"subCategory"`
	Brand       string   `json:"brand,omitempty"`
	Price       int64    `json:"price" validate:"gte=0"`
	MinOrder    int      `json:"minOrder" validate:"gte=1"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Weight      *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Length      *float64 `json:"length,omitempty" validate:"omitempty,gte=0"`
	Width       *float64 `json:"width,omitempty" validate:"omitempty,gte=0"`
}

// PriceList is a named discount tier. Color is a presentation hint only.
type PriceList struct {
	ID                 string  `json:"id" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"gte=0,lte=100"`
	Color              string  `json:"color,omitempty"`
}

// ClientStatus is the commercial standing of a client.
type ClientStatus string

const (
	ClientActive   ClientStatus = "Activo"
	ClientInactive ClientStatus = "Inactivo"
	ClientVIP      ClientStatus = "VIP"
	ClientNew      ClientStatus = "Nuevo"
)

// Client is a buying business. PriceListID may be empty or reference a list
// that does not exist; resolution falls back to the base list in both cases.
type Client struct {
	ID            string       `json:"id" validate:"required"`
	Name          string       `json:"name" validate:"required"`
	Company       string       `json:"company" validate:"required"`
	RUT           string       `json:"rut"`
	Giro          string       `json:"giro"`
	Address       string       `json:"address"`
	Email         string       `json:"email" validate:"omitempty,email"`
	Phone         string       `json:"phone"`
	TotalSpent    int64        `json:"totalSpent" validate:"gte=0"`
	LastOrderDate string       `json:"lastOrderDate"`
	Status        ClientStatus `json:"status" validate:"oneof=Activo Inactivo VIP Nuevo"`
	Avatar        string       `json:"avatar,omitempty"`
	PriceListID   string       `json:"priceListId,omitempty"`
}

// Category groups products and lists the sub categories seen in the catalog.
type Category struct {
	Name          string   `json:"name"`
	SubCategories []string `json:"subCategories"`
}
