package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is an observation of a symbol's value at a point in time
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// SortPricePoints orders a series by timestamp ascending.
// Points sharing a timestamp keep their relative order.
func SortPricePoints(points []PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
}

// Latest returns the chronologically most recent point of an ascending series
func Latest(points []PricePoint) (PricePoint, bool) {
	if len(points) == 0 {
		return PricePoint{}, false
	}
	return points[len(points)-1], true
}

// Nearest returns the point closest in time to ts.
// Ties resolve to the earlier point.
func Nearest(points []PricePoint, ts time.Time) (PricePoint, bool) {
	if len(points) == 0 {
		return PricePoint{}, false
	}

	best := points[0]
	bestDistance := absDuration(points[0].Timestamp.Sub(ts))
	for _, p := range points[1:] {
		distance := absDuration(p.Timestamp.Sub(ts))
		if distance < bestDistance || (distance == bestDistance && p.Timestamp.Before(best.Timestamp)) {
			best = p
			bestDistance = distance
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
