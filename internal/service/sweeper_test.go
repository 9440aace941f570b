package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFailer struct {
	calls chan time.Duration
	n     int
	err   error
}

func (c *countingFailer) FailStale(_ context.Context, idle time.Duration) (int, error) {
	if c.calls != nil {
		c.calls <- idle
	}
	return c.n, c.err
}

func TestNewSweeperValidates(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		idle     time.Duration
		wantErr  bool
	}{
		{"every five minutes", "*/5 * * * *", time.Minute, false},
		{"bad cron", "every tuesday", time.Minute, true},
		{"zero idle", "* * * * *", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSweeper(&countingFailer{}, tt.schedule, tt.idle)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSweeperNext(t *testing.T) {
	s, err := NewSweeper(&countingFailer{}, "*/5 * * * *", time.Minute)
	require.NoError(t, err)

	ref := time.Date(2024, 3, 1, 10, 2, 30, 0, time.UTC)
	next, err := s.Next(ref)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)), "got %s", next)
}

func TestSweeperSweep(t *testing.T) {
	s, err := NewSweeper(&countingFailer{n: 3}, "* * * * *", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Sweep(context.Background()))

	s, err = NewSweeper(&countingFailer{n: 3, err: errors.New("db down")}, "* * * * *", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Sweep(context.Background()))
}

func TestSweeperRunStops(t *testing.T) {
	s, err := NewSweeper(&countingFailer{}, "* * * * *", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
