package model

import "time"

// TimeLayout is the bar timestamp format used everywhere in the engine,
// including the persisted cache file. Timestamps in this layout are
// string-sortable, so ordering and age filtering work on raw strings.
const TimeLayout = "2006.01.02 15:04:05"

// Bar represents one 5-minute OHLCV candle for the tracked instrument.
// Prices are float64 to match the persisted wire format ({time,o,h,l,c,v}).
type Bar struct {
	Time      string  `json:"time"` // bucket start, TimeLayout, interval-aligned
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    int64   `json:"v"`
	Synthetic bool    `json:"synthetic,omitempty"` // generated back-fill, never persisted
}

// HourKey returns the hour-level grouping key ("YYYY.MM.DD HH").
// Returns "" for malformed timestamps.
func (b *Bar) HourKey() string {
	if len(b.Time) < 13 {
		return ""
	}
	return b.Time[:13]
}

// DayKey returns the day-level grouping key ("YYYY.MM.DD").
// Returns "" for malformed timestamps.
func (b *Bar) DayKey() string {
	if len(b.Time) < 10 {
		return ""
	}
	return b.Time[:10]
}

// ParsedTime parses the bar timestamp in local time.
// Bar timestamps are market time, not UTC.
func (b *Bar) ParsedTime() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, b.Time, time.Local)
}

// Closes extracts the close series from a bar slice.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = bars[i].Close
	}
	return closes
}
