package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const equalityThreshold = 1e-9

func TestRSI(t *testing.T) {
	t.Run("all winners", func(t *testing.T) {
		val, err := RSI([]float64{10, 11, 12, 15}, 2)
		require.NoError(t, err)
		assert.Equal(t, 100.0, val)
	})

	t.Run("all losers", func(t *testing.T) {
		val, err := RSI([]float64{15, 12, 11, 10}, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.0, val)
	})

	t.Run("alternating gains and losses", func(t *testing.T) {
		// deltas +1, -1 seed avgGain=avgLoss=0.5; the +1 update gives
		// avgGain=0.75, avgLoss=0.25, RS=3, RSI=75
		val, err := RSI([]float64{10, 11, 10, 11}, 2)
		require.NoError(t, err)
		assert.InDelta(t, 75.0, val, equalityThreshold)
	})

	t.Run("too few closes", func(t *testing.T) {
		_, err := RSI([]float64{100, 101}, 14)
		assert.Error(t, err)
	})
}

func TestSMA(t *testing.T) {
	t.Run("trailing window", func(t *testing.T) {
		val, err := SMA([]float64{1, 2, 3, 4, 5, 6}, 3)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, val, equalityThreshold)
	})

	t.Run("too few closes", func(t *testing.T) {
		_, err := SMA([]float64{1, 2}, 20)
		assert.Error(t, err)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("known window", func(t *testing.T) {
		// mean 5, population stddev 2
		closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
		b, err := Bollinger(closes, 8, 2)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, b.MovingAverage, equalityThreshold)
		assert.InDelta(t, 9.0, b.Upper, equalityThreshold)
		assert.InDelta(t, 1.0, b.Lower, equalityThreshold)
	})

	t.Run("uses only the trailing period", func(t *testing.T) {
		closes := []float64{1000, 1000, 2, 4, 4, 4, 5, 5, 7, 9}
		b, err := Bollinger(closes, 8, 2)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, b.MovingAverage, equalityThreshold)
	})

	t.Run("too few closes", func(t *testing.T) {
		_, err := Bollinger([]float64{1, 2, 3}, 20, 2)
		assert.Error(t, err)
	})
}
