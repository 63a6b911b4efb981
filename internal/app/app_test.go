package app

import (
	"testing"

	"suki-be/internal/config"
	"suki-be/internal/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{}

	t.Run("WithMetrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		a := New(cfg, db, metrics.New(reg, reg))

		assert.NotNil(t, a.Customers)
		assert.NotNil(t, a.Addresses)
		assert.NotNil(t, a.Couriers)
		assert.NotNil(t, a.Sync)
		assert.NotNil(t, a.Email)
		require.NotNil(t, a.Dispatcher)
	})

	t.Run("WithoutMetrics", func(t *testing.T) {
		a := New(cfg, db, nil)
		assert.NotNil(t, a.Sync)
	})
}
