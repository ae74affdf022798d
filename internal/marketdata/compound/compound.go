// Package compound derives higher-timeframe bars from the 5-minute base
// series by grouping on truncated timestamp prefixes. A bucket only yields
// a derived bar once it holds a minimum number of base bars, so partial
// periods never masquerade as full candles.
package compound

import (
	"sort"

	"signal-enginev1/internal/model"
)

const (
	// minHourlyBars is the minimum base bars for a valid hourly candle.
	minHourlyBars = 3

	// minDailyBars is the minimum base bars for a meaningful daily candle.
	minDailyBars = 10
)

// Hourly derives hourly bars from the base series. Bucket key is the
// "YYYY.MM.DD HH" prefix; buckets with fewer than 3 base bars are skipped.
// Needs at least 12 base bars to produce anything.
func Hourly(bars []model.Bar) []model.Bar {
	if len(bars) < 12 {
		return nil
	}
	return derive(bars, minHourlyBars, func(b *model.Bar) string { return b.HourKey() }, ":00:00")
}

// Daily derives daily bars from the base series. Bucket key is the
// "YYYY.MM.DD" prefix; buckets with fewer than 10 base bars are skipped.
// Needs at least 50 base bars to produce anything.
func Daily(bars []model.Bar) []model.Bar {
	if len(bars) < 50 {
		return nil
	}
	return derive(bars, minDailyBars, func(b *model.Bar) string { return b.DayKey() }, " 00:00:00")
}

// derive groups bars by key, drops undersized buckets, and emits one bar
// per bucket in ascending key order: open of the first base bar, close of
// the last, high/low extremes, summed volume.
func derive(bars []model.Bar, minBucket int, key func(*model.Bar) string, suffix string) []model.Bar {
	buckets := make(map[string][]model.Bar)
	for i := range bars {
		k := key(&bars[i])
		if k == "" {
			continue
		}
		buckets[k] = append(buckets[k], bars[i])
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.Bar, 0, len(keys))
	for _, k := range keys {
		bucket := buckets[k]
		if len(bucket) < minBucket {
			continue
		}
		derived := model.Bar{
			Time:  k + suffix,
			Open:  bucket[0].Open,
			High:  bucket[0].High,
			Low:   bucket[0].Low,
			Close: bucket[len(bucket)-1].Close,
		}
		for _, b := range bucket {
			if b.High > derived.High {
				derived.High = b.High
			}
			if b.Low < derived.Low {
				derived.Low = b.Low
			}
			derived.Volume += b.Volume
		}
		out = append(out, derived)
	}
	return out
}
