package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestAggregateCallStats(t *testing.T) {
	stats := aggregateCallStats([]callStatRow{
		{Status: "completed", Sentiment: strPtr("positive"), DurationSec: intPtr(60)},
		{Status: "completed", Sentiment: strPtr("negative"), DurationSec: intPtr(120)},
		{Status: "completed"},
		{Status: "in_progress"},
		{Status: "failed", Sentiment: strPtr("neutral")},
	})

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Positive)
	assert.Equal(t, 1, stats.Negative)
	assert.InDelta(t, 90.0, stats.AvgDurationSec, 0.001)
}

func TestAggregateCallStatsEmpty(t *testing.T) {
	stats := aggregateCallStats(nil)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgDurationSec)
}

func TestWrapQueryErrorPassthrough(t *testing.T) {
	assert.NoError(t, wrapQueryError(nil))

	plain := errors.New("socket closed")
	assert.Same(t, plain, wrapQueryError(plain))
}
