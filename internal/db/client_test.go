//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPing(t *testing.T) {
	ctx := context.Background()

	d, err := testDB.Ping(ctx)
	require.NoError(t, err)
	assert.Greater(t, d, time.Duration(0))
}

func TestInitSchemaIdempotent(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testDB.InitSchema(ctx))
	result, err := testDB.Query(ctx, "INFO FOR DB", nil)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestClientRecordsQueryTiming(t *testing.T) {
	ctx := context.Background()
	collector := metrics.NewCollector()
	testDB.SetMetrics(collector)
	t.Cleanup(func() { testDB.SetMetrics(nil) })

	_, err := testDB.QueryListCalls(ctx, "metrics-co", 5)
	require.NoError(t, err)
	snap := collector.Snapshot()
	require.NotNil(t, snap.DBQuery)
	assert.Equal(t, int64(1), snap.DBQuery.Count)
}
