package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyThresholds(t *testing.T) {
	require.Equal(t, "original", classify(0))
	require.Equal(t, "original", classify(20))
	require.Equal(t, "partial overlap", classify(20.1))
	require.Equal(t, "partial overlap", classify(60))
	require.Equal(t, "likely duplicate", classify(85))
}

func TestClamp01(t *testing.T) {
	require.Equal(t, 0.0, clamp01(-0.2))
	require.Equal(t, 0.5, clamp01(0.5))
	require.Equal(t, 1.0, clamp01(1.7))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "short", truncateRunes("short", 10))
	long := strings.Repeat("â", 250)
	truncated := truncateRunes(long, 200)
	require.Equal(t, 203, len([]rune(truncated)))
	require.True(t, strings.HasSuffix(truncated, "..."))
}
