package models

// WeatherRequest is an inbound lookup request. PostalCode is validated at the
// HTTP boundary before it reaches the service layer; CountryCode is optional.
type WeatherRequest struct {
	PostalCode  string
	CountryCode string
}

// Coordinates is a resolved geographic position. Produced only by the
// geocoding client.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// WeatherResult holds current conditions plus today's min/max temperatures.
// FromCache is set by the service layer depending on retrieval path; it is
// not part of the cached value's identity.
type WeatherResult struct {
	CurrentTemp      float64 `json:"currentTemp"`
	MinTemp          float64 `json:"minTemp"`
	MaxTemp          float64 `json:"maxTemp"`
	ExtendedForecast string  `json:"extendedForecast"`
	FromCache        bool    `json:"fromCache"`
}
