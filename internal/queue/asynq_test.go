package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueueWeights(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]int
	}{
		{"", map[string]int{}},
		{"default", map[string]int{"default": 1}},
		{"critical=6, default=3,low=1", map[string]int{"critical": 6, "default": 3, "low": 1}},
		{"bad=zero,=4,x=-1", map[string]int{"bad": 1, "x": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQueueWeights(tt.in))
		})
	}
}

func TestAsynqOptions(t *testing.T) {
	assert.Empty(t, asynqOptions(EnqueueOption{}))
	assert.Len(t, asynqOptions(EnqueueOption{Queue: "suggestions", MaxRetry: 2}), 2)
}

func TestNewAsynqClientBadURL(t *testing.T) {
	_, err := NewAsynqClient("http://nope")
	require.Error(t, err)
}
