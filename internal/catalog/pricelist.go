package catalog

// ResolvePriceList returns the list assigned to client, or the base list when
// client is nil, has no assignment, or references a list that does not exist.
// The base list is the first zero-discount entry of lists; a synthetic one is
// returned when lists has none.
func ResolvePriceList(client *Client, lists []PriceList) PriceList {
	if client != nil && client.PriceListID != "" {
		for _, pl := range lists {
			if pl.ID == client.PriceListID {
				return pl
			}
		}
	}
	return basePriceList(lists)
}

func basePriceList(lists []PriceList) PriceList {
	for _, pl := range lists {
		if pl.DiscountPercentage == 0 {
			return pl
		}
	}
	return PriceList{ID: BasePriceListID, Name: "Lista Base", DiscountPercentage: 0, Color: "slate"}
}
