package catalog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedProductsIsDeterministic(t *testing.T) {
	require.Equal(t, SeedProducts(42), SeedProducts(42))
	require.NotEqual(t, SeedProducts(42), SeedProducts(7))
}

func TestSeedProductsShape(t *testing.T) {
	products := SeedProducts(42)
	require.Len(t, products, 100)

	packs := map[int]bool{1: true, 6: true, 10: true, 12: true, 24: true, 48: true}
	for i, p := range products {
		require.Equal(t, fmt.Sprintf("%d", i+1), p.ID)
		require.True(t, packs[p.MinOrder], "unexpected pack size %d", p.MinOrder)
		require.GreaterOrEqual(t, p.Price, int64(5_000))
		require.LessOrEqual(t, p.Price, int64(120_000))
		require.GreaterOrEqual(t, p.Stock, 100)
		require.Less(t, p.Stock, 2_100)
		require.True(t, strings.HasSuffix(p.SKU, fmt.Sprintf("-%03d", i+1)), p.SKU)
		require.Equal(t, seedCategories[i/10].name, p.Category)
		require.True(t, strings.HasPrefix(p.SKU, seedCategories[i/10].prefix+"-"), p.SKU)
	}
}

func TestSeedBuildsValidStore(t *testing.T) {
	store, err := Seed(42)
	require.NoError(t, err)
	require.Len(t, store.Products(), 100)
	require.Len(t, store.Clients(), 20)
	require.Len(t, store.PriceLists(), 4)
	require.Len(t, store.Categories(), 10)

	for _, c := range store.Clients() {
		c := c
		pl := store.PriceListFor(&c)
		require.Equal(t, c.PriceListID, pl.ID, "client %s", c.ID)
	}
}

func TestSkuFragmentHandlesMultibyte(t *testing.T) {
	require.Equal(t, "PAP", skuFragment("Papelería"))
	require.Equal(t, "PRE", skuFragment("Pre-fritos"))
	require.Equal(t, "AB", skuFragment("ab"))
}
