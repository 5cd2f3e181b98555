package domain

// A shop as supplied by a storefront list view.
// Coordinates are optional; shops without both of them cannot be routed.
type ShopLocation struct {
	ID  string
	Lat *float64
	Lon *float64
}

// Return the shop position and whether it is routable.
func (s ShopLocation) Coordinates() (Coordinates, bool) {
	if s.Lat == nil || s.Lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *s.Lat, Lon: *s.Lon}, true
}
