package openweather

import "github.com/gometeo/weatherlookup/internal/model"

func toGeoLocationItem(r geoRecord) model.GeoLocationItem {
	return model.GeoLocationItem{
		City:    r.Name,
		Country: r.Country,
		Lat:     r.Lat,
		Lon:     r.Lon,
	}
}

func toGeoLocationItems(records []geoRecord) []model.GeoLocationItem {
	items := make([]model.GeoLocationItem, 0, len(records))
	for _, r := range records {
		items = append(items, toGeoLocationItem(r))
	}
	return items
}

func toPrecipitation(p *precipitation) *model.Precipitation {
	if p == nil {
		return nil
	}
	return &model.Precipitation{OneHour: p.OneHour, ThreeHours: p.ThreeHours}
}

func toSample(s sample) model.WeatherSample {
	conditions := make([]model.Condition, 0, len(s.Weather))
	for _, c := range s.Weather {
		conditions = append(conditions, model.Condition{
			ID:          c.ID,
			Main:        c.Main,
			Description: c.Description,
			Icon:        c.Icon,
		})
	}

	return model.WeatherSample{
		Dt:         s.Dt,
		Temp:       s.Temp,
		FeelsLike:  s.FeelsLike,
		Pressure:   s.Pressure,
		Humidity:   s.Humidity,
		DewPoint:   s.DewPoint,
		UVI:        s.UVI,
		Clouds:     s.Clouds,
		Visibility: s.Visibility,
		WindSpeed:  s.WindSpeed,
		WindDeg:    s.WindDeg,
		WindGust:   s.WindGust,
		Rain:       toPrecipitation(s.Rain),
		Snow:       toPrecipitation(s.Snow),
		Weather:    conditions,
	}
}

func toWeatherDocument(r oneCallResponse) model.WeatherDocument {
	doc := model.WeatherDocument{
		Lat:            r.Lat,
		Lon:            r.Lon,
		Timezone:       r.Timezone,
		TimezoneOffset: r.TimezoneOffset,
		Hourly:         make([]model.HourlyWeather, 0, len(r.Hourly)),
	}
	if r.Current != nil {
		doc.Current = model.CurrentWeather{
			WeatherSample: toSample(r.Current.sample),
			Sunrise:       r.Current.Sunrise,
			Sunset:        r.Current.Sunset,
		}
	}
	for _, h := range r.Hourly {
		doc.Hourly = append(doc.Hourly, model.HourlyWeather{
			WeatherSample: toSample(h.sample),
			Pop:           h.Pop,
		})
	}
	return doc
}

// dropStaleHourly removes hourly samples at or before current.dt. Some
// provider responses repeat the current hour as the first hourly entry.
// This is data hygiene at fetch time, independent of forecast.WindowHourly.
func dropStaleHourly(doc model.WeatherDocument) model.WeatherDocument {
	kept := make([]model.HourlyWeather, 0, len(doc.Hourly))
	for _, h := range doc.Hourly {
		if h.Dt > doc.Current.Dt {
			kept = append(kept, h)
		}
	}
	doc.Hourly = kept
	return doc
}
