package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-mayorista/internal/cart"
	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/order"
	"github.com/noah-isme/backend-mayorista/internal/pricing"
)

var (
	// ErrNotReady is returned by Submit when no client is selected or the cart is empty.
	ErrNotReady = errors.New("session: a client and at least one cart line are required")
	// ErrSubmissionInFlight is returned when a submission is already running.
	ErrSubmissionInFlight = errors.New("session: submission already in progress")
)

// Options tunes a Session. Zero values fall back to defaults; a nil
// TaxRateBps means pricing.DefaultTaxRateBps and a pointer to 0 disables tax.
type Options struct {
	TaxRateBps *int
	Now        func() time.Time
	NewOrderID func() string
}

// Session is the state of one order-entry workflow: the selected client, its
// resolved price list and the cart. Mutations are expected from a single
// writer; Submit may be called concurrently and admits one caller at a time.
type Session struct {
	id        string
	lists     []catalog.PriceList
	taxBps    int
	now       func() time.Time
	newID     func() string
	createdAt time.Time

	mu         sync.Mutex
	client     *catalog.Client
	priceList  catalog.PriceList
	cart       *cart.Cart
	submitting atomic.Bool
}

// New returns an empty session that resolves prices against lists.
func New(id string, lists []catalog.PriceList, opts Options) *Session {
	s := &Session{
		id:     id,
		lists:  lists,
		taxBps: pricing.DefaultTaxRateBps,
		now:    opts.Now,
		newID:  opts.NewOrderID,
		cart:   cart.New(),
	}
	if opts.TaxRateBps != nil {
		s.taxBps = *opts.TaxRateBps
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = order.NewID
	}
	s.createdAt = s.now()
	s.priceList = catalog.ResolvePriceList(nil, lists)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SelectClient makes c the active client and resolves its price list. Choosing
// a different client, including the first selection, empties the cart;
// re-selecting the current client keeps it. A nil client behaves like
// ClearClient. It reports whether the cart was emptied.
func (s *Session) SelectClient(c *catalog.Client) bool {
	if c == nil {
		s.ClearClient()
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *c
	same := s.client != nil && s.client.ID == snapshot.ID
	s.client = &snapshot
	s.priceList = catalog.ResolvePriceList(s.client, s.lists)
	if same {
		return false
	}
	s.cart.Clear()
	return true
}

// ClearClient drops the client and empties the cart.
func (s *Session) ClearClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.priceList = catalog.ResolvePriceList(nil, s.lists)
	s.cart.Clear()
}

// Ready reports whether a client is selected and the cart has at least one line.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && !s.cart.IsEmpty()
}

// Client returns a copy of the selected client.
func (s *Session) Client() (catalog.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return catalog.Client{}, false
	}
	return *s.client, true
}

// PriceList returns the list currently applied to the cart.
func (s *Session) PriceList() catalog.PriceList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceList
}

// AddProduct adds one pack of p.
func (s *Session) AddProduct(p catalog.Product) cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Add(p)
}

// Increment adds one pack to an existing line.
func (s *Session) Increment(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Increment(productID)
}

// Decrement removes one pack from an existing line, dropping the line at the
// last pack.
func (s *Session) Decrement(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Decrement(productID)
}

// Remove drops a line.
func (s *Session) Remove(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Remove(productID)
}

// LineView is a priced cart line.
type LineView struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	MinOrder  int    `json:"minOrder"`
	BasePrice int64  `json:"basePrice"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

// View is the read model of a session. Every figure is recomputed when the
// view is built.
type View struct {
	ID        string            `json:"id"`
	Client    *catalog.Client   `json:"client"`
	PriceList catalog.PriceList `json:"priceList"`
	Lines     []LineView        `json:"lines"`
	Summary   pricing.Summary   `json:"summary"`
	CanSubmit bool              `json:"canSubmit"`
}

// View prices the current cart.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.cart.Lines()
	out := View{
		ID:        s.id,
		PriceList: s.priceList,
		Lines:     make([]LineView, 0, len(lines)),
		Summary:   s.cart.Summary(s.priceList, s.taxBps),
		CanSubmit: s.client != nil && !s.cart.IsEmpty(),
	}
	if s.client != nil {
		c := *s.client
		out.Client = &c
	}
	for _, l := range lines {
		unit := pricing.FinalUnitPrice(l.Product.Price, s.priceList.DiscountPercentage)
		out.Lines = append(out.Lines, LineView{
			ProductID: l.Product.ID,
			SKU:       l.Product.SKU,
			Name:      l.Product.Name,
			Image:     l.Product.Image,
			Quantity:  l.Quantity,
			MinOrder:  l.Product.MinOrder,
			BasePrice: l.Product.Price,
			UnitPrice: unit,
			LineTotal: unit * int64(l.Quantity),
		})
	}
	return out
}

// Submit snapshots the cart into a pending order and hands it to committer.
// The cart is emptied only after a successful commit; on failure it is left
// untouched so the caller can retry.
func (s *Session) Submit(ctx context.Context, committer order.Committer) (order.Order, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return order.Order{}, ErrSubmissionInFlight
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	o, ok := order.Build(s.client, s.cart, s.priceList, s.now(), s.newID)
	s.mu.Unlock()
	if !ok {
		return order.Order{}, ErrNotReady
	}
	if committer == nil {
		committer = order.Delayed{}
	}
	committed, err := committer.Commit(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	s.mu.Lock()
	s.cart.Clear()
	s.mu.Unlock()
	return committed, nil
}
