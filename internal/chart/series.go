package chart

import "github.com/i474232898/weather-history/internal/weather"

// Series is the ordered temperatures recorded for one city.
type Series struct {
	City   string    `json:"city"`
	Values []float64 `json:"values"`
}

// Group splits readings into one series per city. Cities appear in the order
// they are first seen and each series keeps row order; nothing is sorted by
// timestamp.
func Group(readings []weather.Reading) []Series {
	index := make(map[string]int)
	var out []Series

	for _, r := range readings {
		i, ok := index[r.City]
		if !ok {
			i = len(out)
			index[r.City] = i
			out = append(out, Series{City: r.City})
		}
		out[i].Values = append(out[i].Values, r.Temperature)
	}
	return out
}
