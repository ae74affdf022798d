package model

import "time"

// Tick represents a single price observation from the acquisition layer.
// Ask may be zero when the upstream source only quotes a bid.
type Tick struct {
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Source string    `json:"source,omitempty"`
	TS     time.Time `json:"ts,omitempty"` // observation wall-clock time; zero = now
}

// Spread returns the bid/ask spread in pips (1 pip = 0.01).
func (t *Tick) Spread() float64 {
	if t.Ask <= 0 {
		return 0
	}
	return (t.Ask - t.Bid) * 100
}
