package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Bands holds the Bollinger band levels for the trailing window.
type Bands struct {
	Upper         float64
	Lower         float64
	MovingAverage float64
}

// Bollinger computes bands over the trailing period closes with the given
// standard deviation multiplier.
func Bollinger(closes []float64, period int, numStdDev float64) (Bands, error) {
	if period <= 0 {
		return Bands{}, fmt.Errorf("bollinger: period must be positive")
	}
	if len(closes) < period {
		return Bands{}, fmt.Errorf("bollinger: need %d closes, have %d", period, len(closes))
	}

	window := closes[len(closes)-period:]
	ma, err := stats.Mean(window)
	if err != nil {
		return Bands{}, fmt.Errorf("bollinger: mean: %w", err)
	}
	sd, err := stats.StandardDeviation(window)
	if err != nil {
		return Bands{}, fmt.Errorf("bollinger: stddev: %w", err)
	}

	return Bands{
		Upper:         ma + numStdDev*sd,
		Lower:         ma - numStdDev*sd,
		MovingAverage: ma,
	}, nil
}
