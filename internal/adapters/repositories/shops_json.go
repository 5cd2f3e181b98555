package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"storefront-distance-service/internal/domain"
	"strings"
)

// ShopSeed is the on-disk form of a shop location.
// Latitude and longitude are optional, matching what list views send.
type ShopSeed struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Load shop locations from a JSON array file.
func LoadShopsJSON(jsonPath string) ([]domain.ShopLocation, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load shops: read %q: %w", jsonPath, err)
	}

	var data []ShopSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load shops: parse json: %w", err)
	}

	shops := make([]domain.ShopLocation, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("load shops: item at index %d: id cannot be empty", i+1)
		}
		shops = append(shops, domain.ShopLocation{ID: id, Lat: item.Lat, Lon: item.Lon})
	}

	return shops, nil
}
