// Package variation flags ingredients whose raw price moved significantly
// between their two most recent observations.
package variation

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultWindow    = 14 * 24 * time.Hour
	DefaultThreshold = 5.0
	DefaultLimit     = 10
)

type Config struct {
	Window    time.Duration
	Threshold float64 // absolute percent, compared against the rounded value
	Limit     int     // <= 0 means unlimited
}

func DefaultConfig() Config {
	return Config{Window: DefaultWindow, Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Since is the first instant of the window. Observations are dated at
// midnight UTC, so the window starts at the beginning of a day.
func (c Config) Since(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(-c.Window)
}

type Observation struct {
	ID    uint
	Price float64
	Date  time.Time
}

// Series is the price history of one ingredient, in any order.
type Series struct {
	IngredientID uint
	Name         string
	Unit         string
	Observations []Observation
}

type Variation struct {
	IngredientID uint      `json:"ingredient_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Previous     float64   `json:"previous_price"`
	Current      float64   `json:"current_price"`
	Percent      float64   `json:"variation_pct"`
	Date         time.Time `json:"date"`

	raw float64
}

// Percent is the change from prev to cur rounded to one decimal.
// ok is false when prev is zero.
func Percent(prev, cur float64) (pct float64, ok bool) {
	raw, ok := rawPercent(prev, cur)
	if !ok {
		return 0, false
	}
	return round1(raw), true
}

func rawPercent(prev, cur float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// lastTwo returns the two newest observations, newest first. Same-date
// observations are ordered by id, the later insert being newer.
func lastTwo(obs []Observation) (cur, prev Observation, ok bool) {
	if len(obs) < 2 {
		return cur, prev, false
	}
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted[0], sorted[1], true
}

func build(s Series) (Variation, bool) {
	cur, prev, ok := lastTwo(s.Observations)
	if !ok {
		return Variation{}, false
	}
	raw, ok := rawPercent(prev.Price, cur.Price)
	if !ok {
		return Variation{}, false
	}
	return Variation{
		IngredientID: s.IngredientID,
		Name:         s.Name,
		Unit:         s.Unit,
		Previous:     prev.Price,
		Current:      cur.Price,
		Percent:      round1(raw),
		Date:         cur.Date,
		raw:          raw,
	}, true
}

// Latest reports the last change of one ingredient regardless of age or size.
func Latest(s Series) (Variation, bool) {
	return build(s)
}

// Detect keeps observations within cfg.Window of now, compares the newest two
// per ingredient and returns the significant moves, largest first.
func Detect(now time.Time, series []Series, cfg Config) []Variation {
	since := cfg.Since(now)
	out := make([]Variation, 0)
	for _, s := range series {
		recent := make([]Observation, 0, len(s.Observations))
		for _, o := range s.Observations {
			if !o.Date.Before(since) {
				recent = append(recent, o)
			}
		}
		v, ok := build(Series{IngredientID: s.IngredientID, Name: s.Name, Unit: s.Unit, Observations: recent})
		if !ok || math.Abs(v.Percent) < cfg.Threshold {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].raw), math.Abs(out[j].raw)
		if ai != aj {
			return ai > aj
		}
		return out[i].IngredientID < out[j].IngredientID
	})
	if cfg.Limit > 0 && len(out) > cfg.Limit {
		out = out[:cfg.Limit]
	}
	return out
}
