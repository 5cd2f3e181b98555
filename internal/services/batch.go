package services

import "storefront-distance-service/internal/domain"

// MaxDestinationsPerRequest bounds destinations in one routing table request.
const MaxDestinationsPerRequest = 25

// Split shops into consecutive batches of at most size entries, preserving
// input order. The last batch may be smaller; nothing is rebalanced.
func BatchShops(shops []domain.ShopLocation, size int) [][]domain.ShopLocation {
	if size <= 0 {
		size = MaxDestinationsPerRequest
	}
	if len(shops) == 0 {
		return nil
	}

	batches := make([][]domain.ShopLocation, 0, (len(shops)+size-1)/size)
	for i := 0; i < len(shops); i += size {
		end := i + size
		if end > len(shops) {
			end = len(shops)
		}
		batches = append(batches, shops[i:end:end])
	}
	return batches
}
