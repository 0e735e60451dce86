package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockSeatStore struct {
	mock.Mock
}

func (m *MockSeatStore) ReserveSeats(ctx context.Context, flightID int64, n int) (int, error) {
	args := m.Called(ctx, flightID, n)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatStore) ReleaseSeats(ctx context.Context, flightID int64, n int) (int, error) {
	args := m.Called(ctx, flightID, n)
	return args.Int(0), args.Error(1)
}

func TestLedger_Reserve(t *testing.T) {
	store := &MockSeatStore{}
	ledger := NewLedger(store, zap.NewNop())
	ctx := context.Background()

	store.On("ReserveSeats", ctx, int64(4), 2).Return(148, nil).Once()

	left, err := ledger.Reserve(ctx, 4, 2)

	assert.NoError(t, err)
	assert.Equal(t, 148, left)
	store.AssertExpectations(t)
}

func TestLedger_RejectsNonPositiveCounts(t *testing.T) {
	store := &MockSeatStore{}
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	for _, n := range []int{0, -3} {
		_, err := ledger.Reserve(ctx, 4, n)
		assert.ErrorIs(t, err, domain.ErrCapacity)

		_, err = ledger.Release(ctx, 4, n)
		assert.ErrorIs(t, err, domain.ErrCapacity)
	}
	store.AssertNotCalled(t, "ReserveSeats", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "ReleaseSeats", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_ReserveCapacityError(t *testing.T) {
	store := &MockSeatStore{}
	ledger := NewLedger(store, zap.NewNop())
	ctx := context.Background()

	store.On("ReserveSeats", ctx, int64(4), 5).Return(0, domain.ErrCapacity).Once()

	_, err := ledger.Reserve(ctx, 4, 5)
	assert.ErrorIs(t, err, domain.ErrCapacity)
}

func TestLedger_Release(t *testing.T) {
	store := &MockSeatStore{}
	ledger := NewLedger(store, zap.NewNop())
	ctx := context.Background()

	store.On("ReleaseSeats", ctx, int64(4), 3).Return(150, nil).Once()

	left, err := ledger.Release(ctx, 4, 3)
	assert.NoError(t, err)
	assert.Equal(t, 150, left)

	expectedErr := errors.New("database down")
	store.On("ReleaseSeats", ctx, int64(5), 1).Return(0, expectedErr).Once()
	_, err = ledger.Release(ctx, 5, 1)
	assert.Equal(t, expectedErr, err)
	store.AssertExpectations(t)
}
