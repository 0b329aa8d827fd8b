package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/order"
)

var (
	vipClient = catalog.Client{ID: "C001", Name: "Juan Pérez", Company: "Supermercado El Sol", Status: catalog.ClientVIP, PriceListID: "pl-vip"}
	mayClient = catalog.Client{ID: "C002", Name: "María García", Company: "Minimarket Luna", Status: catalog.ClientActive, PriceListID: "pl-mayorista"}
	rice      = catalog.Product{ID: "1", SKU: "AB-GRA-001", Name: "Arroz", Category: "Abarrotes", Price: 10_000, MinOrder: 12, Stock: 500}
	oil       = catalog.Product{ID: "2", SKU: "AB-ACE-002", Name: "Aceite", Category: "Abarrotes", Price: 4_990, MinOrder: 6, Stock: 500}
)

func fixedNow() time.Time { return time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC) }

func newTestSession() *Session {
	return New("s-1", catalog.SeedPriceLists(), Options{Now: fixedNow, NewOrderID: func() string { return "PED-TEST" }})
}

func echoCommitter() order.Committer {
	return order.CommitFunc(func(_ context.Context, o order.Order) (order.Order, error) { return o, nil })
}

func TestNewSessionUsesBaseList(t *testing.T) {
	s := newTestSession()
	require.Equal(t, catalog.BasePriceListID, s.PriceList().ID)
	_, ok := s.Client()
	require.False(t, ok)
	require.False(t, s.View().CanSubmit)
}

func TestVIPWorkedExample(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	require.Equal(t, "pl-vip", s.PriceList().ID)

	s.AddProduct(rice)
	v := s.View()
	require.Len(t, v.Lines, 1)
	require.Equal(t, 12, v.Lines[0].Quantity)
	require.Equal(t, int64(8_000), v.Lines[0].UnitPrice)
	require.Equal(t, int64(96_000), v.Lines[0].LineTotal)
	require.Equal(t, int64(96_000), v.Summary.Subtotal)
	require.Equal(t, 12, v.Summary.Items)

	require.True(t, s.Increment(rice.ID))
	v = s.View()
	require.Equal(t, 24, v.Lines[0].Quantity)
	require.Equal(t, int64(192_000), v.Summary.Subtotal)
	require.Equal(t, v.Summary.Subtotal, v.Summary.Net+v.Summary.Tax)
}

func TestSwitchingClientEmptiesCart(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	s.AddProduct(rice)
	s.AddProduct(oil)

	require.False(t, s.SelectClient(&vipClient), "re-selecting the same client keeps the cart")
	require.Len(t, s.View().Lines, 2)

	require.True(t, s.SelectClient(&mayClient))
	v := s.View()
	require.Empty(t, v.Lines)
	require.Zero(t, v.Summary.Subtotal)
	require.Equal(t, "pl-mayorista", v.PriceList.ID)

	s.AddProduct(oil)
	s.ClearClient()
	v = s.View()
	require.Nil(t, v.Client)
	require.Empty(t, v.Lines)
	require.Equal(t, catalog.BasePriceListID, v.PriceList.ID)
}

func TestSelectClientWithDanglingListFallsBack(t *testing.T) {
	s := newTestSession()
	ghost := catalog.Client{ID: "C777", Name: "X", Company: "Y", Status: catalog.ClientNew, PriceListID: "pl-ghost"}
	s.SelectClient(&ghost)
	s.AddProduct(rice)
	require.Equal(t, catalog.BasePriceListID, s.PriceList().ID)
	require.Equal(t, int64(120_000), s.View().Summary.Subtotal)
}

func TestSubmitRefusedWithoutClientOrLines(t *testing.T) {
	s := newTestSession()
	s.AddProduct(rice)
	_, err := s.Submit(context.Background(), echoCommitter())
	require.ErrorIs(t, err, ErrNotReady)

	s.SelectClient(&vipClient)
	_, err = s.Submit(context.Background(), echoCommitter())
	require.ErrorIs(t, err, ErrNotReady)
}

func TestTaxRateOption(t *testing.T) {
	zero := 0
	exempt := New("s-2", catalog.SeedPriceLists(), Options{Now: fixedNow, TaxRateBps: &zero})
	exempt.AddProduct(rice)
	summary := exempt.View().Summary
	require.Zero(t, summary.Tax)
	require.Equal(t, summary.Subtotal, summary.Net)

	s := newTestSession()
	s.AddProduct(rice)
	summary = s.View().Summary
	require.Equal(t, int64(120_000), summary.Subtotal)
	require.Equal(t, int64(100_840), summary.Net)
	require.Equal(t, int64(19_160), summary.Tax)
}

func TestSubmitProducesPendingOrderAndClearsCart(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	s.AddProduct(rice)
	want := s.View().Summary

	o, err := s.Submit(context.Background(), echoCommitter())
	require.NoError(t, err)
	require.Equal(t, "PED-TEST", o.ID)
	require.Equal(t, order.StatusPending, o.Status)
	require.Equal(t, want.Items, o.Items)
	require.Equal(t, want.Subtotal, o.Total)
	require.Equal(t, "2024-05-17", o.Date)
	require.Equal(t, order.SellerPending, o.SellerID)
	require.Equal(t, "Supermercado El Sol", o.Customer)

	require.Empty(t, s.View().Lines)
	c, ok := s.Client()
	require.True(t, ok, "client stays selected after submission")
	require.Equal(t, "C001", c.ID)
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	s.AddProduct(rice)
	boom := errors.New("order book unavailable")

	_, err := s.Submit(context.Background(), order.CommitFunc(func(context.Context, order.Order) (order.Order, error) {
		return order.Order{}, boom
	}))
	require.ErrorIs(t, err, boom)
	require.Len(t, s.View().Lines, 1)

	_, err = s.Submit(context.Background(), echoCommitter())
	require.NoError(t, err)
}

func TestSubmitAdmitsOneCallerAtATime(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	s.AddProduct(rice)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := order.CommitFunc(func(_ context.Context, o order.Order) (order.Order, error) {
		close(entered)
		<-release
		return o, nil
	})

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background(), slow)
	}()
	<-entered

	_, err := s.Submit(context.Background(), echoCommitter())
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	require.Empty(t, s.View().Lines)
}

func TestSubmitHonoursDelayedCancellation(t *testing.T) {
	s := newTestSession()
	s.SelectClient(&vipClient)
	s.AddProduct(oil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Submit(ctx, order.Delayed{Latency: time.Second})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, s.View().Lines, 1)
}
