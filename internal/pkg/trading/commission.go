// Package trading provides the commission and netting arithmetic shared by
// orders, the pair trader and single-leg recovery.
package trading

import "github.com/shopspring/decimal"

// Precision digit counts. Each call site names the one it rounds at.
const (
	// EpsilonPrecision absorbs float noise in derived order quantities.
	EpsilonPrecision = 10
	// RecoverySizePrecision is the floor applied to recovery order sizes.
	RecoverySizePrecision = 8
	// DefaultNetExposurePrecision is the floor applied to pair net exposure.
	DefaultNetExposurePrecision = 6
	// LegacyNetExposurePrecision is the coarser floor used by older trader
	// builds; kept so configs migrating from them can opt back in.
	LegacyNetExposurePrecision = 5
	// PricePrecision rounds limit prices to whole quote units.
	PricePrecision = 0
)

// AdjustedSize returns the base amount a fill of size represents. A buy whose
// commission is paid in the quote currency receives
// size*(1-c/100)/(1+c/100); everything else is unchanged.
func AdjustedSize(size float64, isBuy, paidByQuoted bool, commissionPercent float64) float64 {
	if !isBuy || !paidByQuoted {
		return size
	}
	return size * (1 - commissionPercent/100) / (1 + commissionPercent/100)
}

// FloorTo rounds v toward negative infinity at the given decimal places.
func FloorTo(v float64, places int) float64 {
	return decimal.NewFromFloat(v).RoundFloor(int32(places)).InexactFloat64()
}

// RoundTo rounds v half away from zero at the given decimal places.
func RoundTo(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// Commission is the fee charged for size traded at price.
func Commission(price, size, commissionPercent float64) float64 {
	if commissionPercent == 0 {
		return 0
	}
	return price * size * (commissionPercent / 100)
}

// WithinThreshold reports whether |v| <= threshold.
func WithinThreshold(v, threshold float64) bool {
	if v < 0 {
		v = -v
	}
	return v <= threshold
}
