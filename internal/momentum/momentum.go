// Package momentum summarizes the last four hourly candles into a compact
// direction window. Real hourly bars are preferred; with only base bars
// available the hours are stitched from 12-bar chunks, and until enough
// history exists each missing hour is a COLLECTING placeholder.
package momentum

import (
	"math"

	"signal-enginev1/internal/model"
)

// Direction tags for a single hour and for the aggregate trend.
const (
	Up         = "UP"
	Down       = "DOWN"
	Flat       = "FLAT"
	Collecting = "COLLECTING"
)

const (
	windowHours  = 4
	barsPerHour  = 12
	minChunkBars = 6
	minBaseBars  = windowHours * barsPerHour
)

// Hour describes one hour of the window. Hour 1 is the most recent
// complete hour. Pointer fields stay nil on COLLECTING placeholders.
type Hour struct {
	Hour      int      `json:"hour"`
	Open      *float64 `json:"open"`
	Close     *float64 `json:"close"`
	High      float64  `json:"high,omitempty"`
	Low       float64  `json:"low,omitempty"`
	Price     *float64 `json:"price"`
	Change    float64  `json:"change"`
	Direction string   `json:"direction"`
}

// Window is the 4-hour momentum summary. Direction, Change and PriceHourAgo
// mirror the most recent hour; Trend is the majority vote of the window.
type Window struct {
	Direction    string   `json:"direction"`
	Change       float64  `json:"change"`
	PriceHourAgo *float64 `json:"price_1h_ago"`
	Current      float64  `json:"current"`
	DataPoints   int      `json:"data_points"`
	Hours        []Hour   `json:"hours"`
	Greens       int      `json:"greens"`
	Reds         int      `json:"reds"`
	Trend        string   `json:"trend"`
	Source       string   `json:"source,omitempty"`
}

// Build assembles the window from real hourly bars when at least four
// exist, from 12-bar chunks of base bars when at least 48 exist, and from
// placeholders otherwise.
func Build(current float64, bars, hourly []model.Bar) *Window {
	if len(hourly) >= windowHours {
		hours := make([]Hour, 0, windowHours)
		for h := 1; h <= windowHours; h++ {
			bar := hourly[len(hourly)-h]
			hours = append(hours, hourFromBar(h, bar.Open, bar.Close, bar.High, bar.Low))
		}
		w := summarize(current, hours, len(hourly))
		w.Source = "MT5_H1"
		return w
	}

	if len(bars) >= minBaseBars {
		hours := make([]Hour, 0, windowHours)
		for h := 1; h <= windowHours; h++ {
			start := len(bars) - h*barsPerHour
			chunk := bars[start : start+barsPerHour]
			if len(chunk) < minChunkBars {
				hours = append(hours, placeholder(h))
				continue
			}
			open := chunk[0].Open
			close := chunk[len(chunk)-1].Close
			high := chunk[0].High
			low := chunk[0].Low
			for _, b := range chunk[1:] {
				if b.High > high {
					high = b.High
				}
				if b.Low < low {
					low = b.Low
				}
			}
			hours = append(hours, hourFromBar(h, open, close, high, low))
		}
		return summarize(current, hours, len(bars))
	}

	hours := make([]Hour, 0, windowHours)
	for h := 1; h <= windowHours; h++ {
		hours = append(hours, placeholder(h))
	}
	return &Window{
		Direction:  Collecting,
		Current:    round2(current),
		DataPoints: len(bars),
		Hours:      hours,
		Trend:      Flat,
	}
}

func hourFromBar(h int, open, close, high, low float64) Hour {
	if open == 0 || close == 0 {
		return placeholder(h)
	}
	change := close - open
	direction := Flat
	if change > 0 {
		direction = Up
	} else if change < 0 {
		direction = Down
	}
	o := round2(open)
	c := round2(close)
	return Hour{
		Hour:      h,
		Open:      &o,
		Close:     &c,
		High:      round2(high),
		Low:       round2(low),
		Price:     &c,
		Change:    round2(change),
		Direction: direction,
	}
}

func placeholder(h int) Hour {
	return Hour{Hour: h, Direction: Collecting}
}

func summarize(current float64, hours []Hour, dataPoints int) *Window {
	greens := 0
	reds := 0
	for _, h := range hours {
		switch h.Direction {
		case Up:
			greens++
		case Down:
			reds++
		}
	}

	trend := Flat
	if greens > reds {
		trend = Up
	} else if reds > greens {
		trend = Down
	}

	latest := hours[0]
	return &Window{
		Direction:    latest.Direction,
		Change:       latest.Change,
		PriceHourAgo: latest.Close,
		Current:      round2(current),
		DataPoints:   dataPoints,
		Hours:        hours,
		Greens:       greens,
		Reds:         reds,
		Trend:        trend,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
