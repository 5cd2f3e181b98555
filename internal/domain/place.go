package domain

// Result of a forward geocoding lookup.
type Place struct {
	Coordinates
	DisplayName string
}
