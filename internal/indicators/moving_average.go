package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// SMA computes the simple moving average of the trailing period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma: period must be positive")
	}
	if len(closes) < period {
		return 0, fmt.Errorf("sma: need %d closes, have %d", period, len(closes))
	}
	mean, err := stats.Mean(closes[len(closes)-period:])
	if err != nil {
		return 0, fmt.Errorf("sma: %w", err)
	}
	return mean, nil
}
