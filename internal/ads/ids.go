package ads

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// newID produces opaque, prefixed identifiers such as "ban_9f2c41d08a6e13b7".
func newID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:8])
}

// ctrString renders a click-through rate as a 2-decimal percentage
// string, "0" when there are no impressions.
func ctrString(impressions, clicks int64) string {
	if impressions == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(clicks)/float64(impressions)*100, 'f', 2, 64)
}

// ctrValue is the numeric counterpart, used for sorting and thresholds.
func ctrValue(impressions, clicks int64) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

// percentString renders n/d*100 with the given decimal places, "0" when
// the denominator is zero.
func percentString(n, d int64, decimals int) string {
	if d == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(n)/float64(d)*100, 'f', decimals, 64)
}

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }
