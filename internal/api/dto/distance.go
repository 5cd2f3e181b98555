package dto

type CoordinatesRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type ShopRequest struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type DistancesRequest struct {
	Origin          CoordinatesRequest `json:"origin"`
	Shops           []ShopRequest      `json:"shops"`
	IncludeLocation bool               `json:"include_location"`
}

type DistancesResponse struct {
	Distances map[string]string `json:"distances"`
	Failed    []string          `json:"failed"`
	Location  string            `json:"location,omitempty"`
}
