package advisor

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/obs"
)

// MonthlySales is one point of the sales series sent for analysis.
type MonthlySales struct {
	Month  string `json:"month" validate:"required"`
	Sales  int64  `json:"sales" validate:"gte=0"`
	Orders int    `json:"orders,omitempty" validate:"gte=0"`
}

// Suggestion is the text returned to the dashboard. Fallback marks the canned
// text used when the generator failed.
type Suggestion struct {
	Kind      Kind   `json:"kind"`
	ProductID string `json:"productId,omitempty"`
	Text      string `json:"text"`
	Fallback  bool   `json:"fallback"`
}

// Service builds prompts from catalog data and degrades to fallback texts.
type Service struct {
	Generator Generator
	Catalog   *catalog.Store
	Logger    zerolog.Logger
}

// ProductDescription suggests a B2B oriented product description.
func (s *Service) ProductDescription(ctx context.Context, productID string) (Suggestion, error) {
	p, err := s.product(productID)
	if err != nil {
		return Suggestion{}, err
	}
	sg := s.generate(ctx, KindDescription, descriptionPrompt(p))
	sg.ProductID = p.ID
	return sg, nil
}

// PricingStrategy suggests volume price bands for a product.
func (s *Service) PricingStrategy(ctx context.Context, productID string) (Suggestion, error) {
	p, err := s.product(productID)
	if err != nil {
		return Suggestion{}, err
	}
	sg := s.generate(ctx, KindPricing, pricingPrompt(p))
	sg.ProductID = p.ID
	return sg, nil
}

// SalesTrends summarises a monthly sales series.
func (s *Service) SalesTrends(ctx context.Context, points []MonthlySales) (Suggestion, error) {
	prompt, err := salesTrendsPrompt(points)
	if err != nil {
		return Suggestion{}, err
	}
	return s.generate(ctx, KindSalesTrends, prompt), nil
}

func (s *Service) product(id string) (catalog.Product, error) {
	if s.Catalog == nil {
		return catalog.Product{}, errors.New("advisor: catalog not configured")
	}
	return s.Catalog.Product(id)
}

func (s *Service) generate(ctx context.Context, kind Kind, prompt string) Suggestion {
	if s.Generator == nil {
		obs.ObserveAdvisorRequest(string(kind), "fallback")
		return Suggestion{Kind: kind, Text: Fallback(kind), Fallback: true}
	}
	text, err := s.Generator.Generate(ctx, prompt)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		evt := s.Logger.Warn().Str("kind", string(kind))
		if err != nil {
			evt = evt.Err(err)
		}
		evt.Msg("advisor_fallback")
		obs.ObserveAdvisorRequest(string(kind), "fallback")
		return Suggestion{Kind: kind, Text: Fallback(kind), Fallback: true}
	}
	obs.ObserveAdvisorRequest(string(kind), "ok")
	return Suggestion{Kind: kind, Text: text}
}
