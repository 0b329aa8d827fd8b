package catalog

import (
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// Store holds the immutable catalog snapshot loaded at start-up.
type Store struct {
	products   []Product
	productIdx map[string]int
	clients    []Client
	clientIdx  map[string]int
	lists      []PriceList
	listIdx    map[string]int
}

// ProductFilter narrows SearchProducts. Empty fields match everything.
type ProductFilter struct {
	Query    string
	Category string
}

// NewStore validates the snapshot and indexes it by id. Duplicate ids and
// products violating the pack or price constraints fail construction.
func NewStore(products []Product, clients []Client, lists []PriceList) (*Store, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	s := &Store{
		products:   make([]Product, 0, len(products)),
		productIdx: make(map[string]int, len(products)),
		clients:    make([]Client, 0, len(clients)),
		clientIdx:  make(map[string]int, len(clients)),
		lists:      make([]PriceList, 0, len(lists)),
		listIdx:    make(map[string]int, len(lists)),
	}
	for _, p := range products {
		if err := v.Struct(p); err != nil {
			return nil, fmt.Errorf("catalog: invalid product %q: %w", p.ID, err)
		}
		if _, dup := s.productIdx[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		s.productIdx[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	for _, c := range clients {
		if err := v.Struct(c); err != nil {
			return nil, fmt.Errorf("catalog: invalid client %q: %w", c.ID, err)
		}
		if _, dup := s.clientIdx[c.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate client id %q", c.ID)
		}
		s.clientIdx[c.ID] = len(s.clients)
		s.clients = append(s.clients, c)
	}
	for _, pl := range lists {
		if err := v.Struct(pl); err != nil {
			return nil, fmt.Errorf("catalog: invalid price list %q: %w", pl.ID, err)
		}
		if _, dup := s.listIdx[pl.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate price list id %q", pl.ID)
		}
		s.listIdx[pl.ID] = len(s.lists)
		s.lists = append(s.lists, pl)
	}
	return s, nil
}

// Product looks up a product by id.
func (s *Store) Product(id string) (Product, error) {
	i, ok := s.productIdx[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return s.products[i], nil
}

// Client looks up a client by id.
func (s *Store) Client(id string) (Client, error) {
	i, ok := s.clientIdx[id]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return s.clients[i], nil
}

// PriceList looks up a price list by id.
func (s *Store) PriceList(id string) (PriceList, error) {
	i, ok := s.listIdx[id]
	if !ok {
		return PriceList{}, ErrPriceListNotFound
	}
	return s.lists[i], nil
}

// PriceLists returns every list in load order.
func (s *Store) PriceLists() []PriceList {
	out := make([]PriceList, len(s.lists))
	copy(out, s.lists)
	return out
}

// PriceListFor resolves the list that applies to client.
func (s *Store) PriceListFor(client *Client) PriceList {
	return ResolvePriceList(client, s.lists)
}

// Products returns every product in load order.
func (s *Store) Products() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Clients returns every client in load order.
func (s *Store) Clients() []Client {
	out := make([]Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// Categories lists distinct categories in the order they first appear, each
// with its distinct sub categories.
func (s *Store) Categories() []Category {
	var out []Category
	idx := make(map[string]int)
	seen := make(map[string]struct{})
	for _, p := range s.products {
		i, ok := idx[p.Category]
		if !ok {
			i = len(out)
			idx[p.Category] = i
			out = append(out, Category{Name: p.Category, SubCategories: []string{}})
		}
		if p.SubCategory == "" {
			continue
		}
		key := p.Category + "\x00" + p.SubCategory
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[i].SubCategories = append(out[i].SubCategories, p.SubCategory)
	}
	return out
}

// SearchProducts matches the query case-insensitively against name, SKU and
// brand, and the category exactly.
func (s *Store) SearchProducts(f ProductFilter) []Product {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	category := strings.TrimSpace(f.Category)
	out := make([]Product, 0)
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) &&
			!strings.Contains(strings.ToLower(p.Brand), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SearchClients matches the term case-insensitively against name and company,
// and as a plain substring against the RUT.
func (s *Store) SearchClients(term string) []Client {
	raw := strings.TrimSpace(term)
	q := strings.ToLower(raw)
	out := make([]Client, 0)
	for _, c := range s.clients {
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Company), q) &&
			!strings.Contains(c.RUT, raw) {
			continue
		}
		out = append(out, c)
	}
	return out
}
