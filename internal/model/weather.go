package model

// GeoLocationItem is the narrow location shape returned to clients.
type GeoLocationItem struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Condition describes a human readable weather condition.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Precipitation holds rain or snow volume in mm.
type Precipitation struct {
	OneHour    *float64 `json:"1h,omitempty"`
	ThreeHours *float64 `json:"3h,omitempty"`
}

// WeatherSample is the part shared by the current block and hourly entries.
// Dt is a Unix timestamp in seconds.
type WeatherSample struct {
	Dt         int64          `json:"dt"`
	Temp       float64        `json:"temp"`
	FeelsLike  float64        `json:"feels_like"`
	Pressure   float64        `json:"pressure"`
	Humidity   float64        `json:"humidity"`
	DewPoint   float64        `json:"dew_point"`
	UVI        float64        `json:"uvi"`
	Clouds     float64        `json:"clouds"`
	Visibility float64        `json:"visibility"`
	WindSpeed  float64        `json:"wind_speed"`
	WindDeg    float64        `json:"wind_deg"`
	WindGust   *float64       `json:"wind_gust,omitempty"`
	Rain       *Precipitation `json:"rain,omitempty"`
	Snow       *Precipitation `json:"snow,omitempty"`
	Weather    []Condition    `json:"weather"`
}

type CurrentWeather struct {
	WeatherSample
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

type HourlyWeather struct {
	WeatherSample
	// Pop is the probability of precipitation, 0..1.
	Pop float64 `json:"pop"`
}

// WeatherDocument is the normalized current + hourly forecast for a
// coordinate pair. It is also the value stored in the weather cache.
type WeatherDocument struct {
	Lat            float64         `json:"lat"`
	Lon            float64         `json:"lon"`
	Timezone       string          `json:"timezone"`
	TimezoneOffset int             `json:"timezone_offset"`
	Current        CurrentWeather  `json:"current"`
	Hourly         []HourlyWeather `json:"hourly"`
}
