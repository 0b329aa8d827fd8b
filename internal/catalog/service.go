package catalog

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mayorista/internal/common"
	"github.com/noah-isme/backend-mayorista/internal/pricing"
)

// Service answers catalog queries with prices resolved for a client.
type Service struct {
	store        *Store
	cache        *Cache
	logger       zerolog.Logger
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        *Store
	Cache        *Cache
	Logger       zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	ClientID string
	Page     int
	Limit    int
}

// ProductListItem is a product with the unit price of the resolved list.
type ProductListItem struct {
	Product
	PriceListID string `json:"priceListId"`
	FinalPrice  int64  `json:"finalPrice"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items     []ProductListItem `json:"items"`
	PriceList PriceList         `json:"priceList"`
	Total     int64             `json:"total"`
	Page      int               `json:"-"`
	Limit     int               `json:"-"`
}

// PreviewRow shows what one product costs under a price list.
type PreviewRow struct {
	ProductID  string `json:"productId"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	MinOrder   int    `json:"minOrder"`
	BasePrice  int64  `json:"basePrice"`
	FinalPrice int64  `json:"finalPrice"`
	Saving     int64  `json:"saving"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// Store exposes the underlying snapshot.
func (s *Service) Store() *Store {
	return s.store
}

// ParseListParams normalises raw query values into typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  1,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))
	params.ClientID = strings.TrimSpace(values.Get("clientId"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.BadRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, common.BadRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = l
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

// ListProducts filters the catalog and prices each product with the list of
// params.ClientID (or the base list when no client is given).
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	var client *Client
	if params.ClientID != "" {
		c, err := s.store.Client(params.ClientID)
		if err != nil {
			return ProductListResult{}, err
		}
		client = &c
	}
	pl := s.store.PriceListFor(client)

	key := s.cache.Key("products", pl.ID, strconv.Itoa(params.Page), strconv.Itoa(params.Limit),
		url.QueryEscape(params.Category), url.QueryEscape(strings.ToLower(params.Query)))
	var cached ProductListResult
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		cached.Page, cached.Limit = params.Page, params.Limit
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
	}

	matches := s.store.SearchProducts(ProductFilter{Query: params.Query, Category: params.Category})
	page := paginate(matches, params.Page, params.Limit)
	items := make([]ProductListItem, 0, len(page))
	for _, p := range page {
		items = append(items, ProductListItem{
			Product:     p,
			PriceListID: pl.ID,
			FinalPrice:  pricing.FinalUnitPrice(p.Price, pl.DiscountPercentage),
		})
	}
	result := ProductListResult{Items: items, PriceList: pl, Total: int64(len(matches)), Page: params.Page, Limit: params.Limit}
	if err := s.cache.SetJSON(ctx, key, result); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
	return result, nil
}

// Categories lists categories in catalog order.
func (s *Service) Categories() []Category {
	return s.store.Categories()
}

// SearchClients filters clients by name, company or RUT.
func (s *Service) SearchClients(term string) []Client {
	return s.store.SearchClients(term)
}

// PriceLists returns every price list.
func (s *Service) PriceLists() []PriceList {
	return s.store.PriceLists()
}

// Preview prices the products matching query under the list id.
func (s *Service) Preview(id, query string) (PriceList, []PreviewRow, error) {
	pl, err := s.store.PriceList(id)
	if err != nil {
		return PriceList{}, nil, err
	}
	matches := s.store.SearchProducts(ProductFilter{Query: query})
	rows := make([]PreviewRow, 0, len(matches))
	for _, p := range matches {
		final := pricing.FinalUnitPrice(p.Price, pl.DiscountPercentage)
		rows = append(rows, PreviewRow{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Name:       p.Name,
			MinOrder:   p.MinOrder,
			BasePrice:  p.Price,
			FinalPrice: final,
			Saving:     p.Price - final,
		})
	}
	return pl, rows, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit < 1 {
		return items
	}
	offset := (page - 1) * limit
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
