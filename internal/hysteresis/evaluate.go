// Package hysteresis decides whether a threshold alert fires for a single target.
//
// A target has two boundaries: the threshold and the re-arm level (threshold + buffer).
// Prices at or above the re-arm level arm the target. Prices in the band between the
// two boundaries leave the armed flag untouched, so a price wobbling around the
// threshold cannot re-enable alerting. Prices below the threshold fire once while
// armed and then disarm. Independently, at most one alert fires per target within
// AlertWindow.
package hysteresis

import (
	"time"

	"github.com/hamed0406/pricealert/internal/domain"
)

// AlertWindow is the rolling throttle applied on top of the armed flag.
const AlertWindow = 24 * time.Hour

// Evaluate classifies price against threshold and buffer and returns whether an
// alert fires together with the record to persist. It has no side effects.
func Evaluate(price, threshold, buffer float64, prev domain.TargetState, now time.Time) (bool, domain.TargetState) {
	next := domain.TargetState{
		Armed:         prev.Armed,
		LastAlertAtMs: prev.LastAlertAtMs,
	}
	rearmAbove := threshold + buffer

	switch {
	case price >= rearmAbove:
		next.LastState = domain.ZoneAbove
		next.Armed = true
		return false, next

	case price >= threshold:
		// grey zone: armed passes through
		next.LastState = domain.ZoneAbove
		return false, next
	}

	next.LastState = domain.ZoneBelow
	nowMs := now.UnixMilli()
	if prev.Armed && !alertedWithin(prev.LastAlertAtMs, nowMs) {
		next.Armed = false
		next.LastAlertAtMs = &nowMs
		return true, next
	}
	next.Armed = false
	return false, next
}

func alertedWithin(lastMs *int64, nowMs int64) bool {
	if lastMs == nil {
		return false
	}
	return nowMs-*lastMs < AlertWindow.Milliseconds()
}
