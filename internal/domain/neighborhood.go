package domain

// Neighborhood is a city sub-area returned by the comp provider.
type Neighborhood struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
