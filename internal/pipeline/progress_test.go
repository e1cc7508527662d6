package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimatePercentStartsAtZero(t *testing.T) {
	require.Zero(t, EstimatePercent(0))
	require.Zero(t, EstimatePercent(-time.Second))
}

func TestEstimatePercentMonotonic(t *testing.T) {
	prev := 0.0
	for _, elapsed := range []time.Duration{time.Second, 4 * time.Second, 8 * time.Second, 30 * time.Second, 5 * time.Minute} {
		current := EstimatePercent(elapsed)
		require.Greater(t, current, prev)
		prev = current
	}
}

func TestEstimatePercentNeverReachesHundred(t *testing.T) {
	require.LessOrEqual(t, EstimatePercent(24*time.Hour), float64(99))
}
