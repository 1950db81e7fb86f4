package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/contract-engine/api"
	"github.com/warp/contract-engine/store/sqlite"
)

func newTestSweeper(t *testing.T) *api.Sweeper {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return api.NewSweeper(store, api.NewHandler(store))
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	sw := newTestSweeper(t)
	sw.CheckInterval = time.Hour

	sw.Start()
	sw.Stop()

	// A shutdown path that fires twice must not panic on the stop channel.
	require.NotPanics(t, sw.Stop)
}

func TestSweeper_StopBeforeStart(t *testing.T) {
	sw := newTestSweeper(t)
	require.NotPanics(t, sw.Stop)
}

func TestSweeper_DisabledDoesNotStart(t *testing.T) {
	sw := newTestSweeper(t)
	sw.Enabled = false

	sw.Start()
	require.NotPanics(t, sw.Stop)
}
