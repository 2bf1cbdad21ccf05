package openweather

// The types below mirror the provider's wire format, including fields the
// API never exposes. They stay unexported: nothing outside this package
// sees the wide shape.

type geoRecord struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names,omitempty"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state,omitempty"`
}

type precipitation struct {
	OneHour    *float64 `json:"1h"`
	ThreeHours *float64 `json:"3h"`
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type sample struct {
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
	WindGust   *float64       `json:"wind_gust"`
	Rain       *precipitation `json:"rain"`
	Snow       *precipitation `json:"snow"`
	Weather    []condition    `json:"weather"`
}

type currentBlock struct {
	sample
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

type hourlyBlock struct {
	sample
	Pop float64 `json:"pop"`
}

type alert struct {
	SenderName  string   `json:"sender_name"`
	Event       string   `json:"event"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type oneCallResponse struct {
	Lat            float64       `json:"lat"`
	Lon            float64       `json:"lon"`
	Timezone       string        `json:"timezone"`
	TimezoneOffset int           `json:"timezone_offset"`
	Current        *currentBlock `json:"current"`
	Hourly         []hourlyBlock `json:"hourly"`
	Alerts         []alert       `json:"alerts,omitempty"`
}
