package dto

type ReverseGeocodeResponse struct {
	Location string `json:"location"`
}

type SearchResponse struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}
