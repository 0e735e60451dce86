package bootstrap

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStore_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(ctx, config.DatabaseConfig{Driver: config.DriverMemory}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Airports.Create(ctx, &domain.Airport{Code: "SVO", Name: "Sheremetyevo"}))

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		list, err := s.Airports.List(ctx)
		assert.Len(t, list, 1)
		return err
	})
	assert.NoError(t, err)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}
