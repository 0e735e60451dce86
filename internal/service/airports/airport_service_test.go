package airports

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"svo", "SVO", false},
		{" Led ", "LED", false},
		{"SV", "", true},
		{"SVOX", "", true},
		{"S1O", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAirportService_CRUD(t *testing.T) {
	store := memory.NewStore()
	svc := NewAirportService(store.Airports(), nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateAirportInput{Code: "ovb", Name: "Tolmachevo", City: "Novosibirsk", Country: "Russia"})
	require.NoError(t, err)
	assert.Equal(t, "OVB", a.Code)

	_, err = svc.Create(ctx, CreateAirportInput{Code: "OVB", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = svc.Create(ctx, CreateAirportInput{Code: "KJA"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	byCode, err := svc.GetByCode(ctx, "ovb")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byCode.ID)

	city := "Novosibirsk-Ob"
	updated, err := svc.Update(ctx, a.ID, domain.AirportUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, city, updated.City)
	assert.Equal(t, "Tolmachevo", updated.Name)

	blank := "  "
	_, err = svc.Update(ctx, a.ID, domain.AirportUpdate{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), domain.ErrNotFound)
}

func TestAirportService_DeleteReferencedAirport(t *testing.T) {
	store := memory.NewStore()
	svc := NewAirportService(store.Airports(), nil)
	ctx := context.Background()

	dep, err := svc.Create(ctx, CreateAirportInput{Code: "SVO", Name: "Sheremetyevo"})
	require.NoError(t, err)
	arr, err := svc.Create(ctx, CreateAirportInput{Code: "LED", Name: "Pulkovo"})
	require.NoError(t, err)
	require.NoError(t, store.Flights().Create(ctx, &domain.Flight{
		FlightNumber:       "SU10",
		Airline:            "Aeroflot",
		DepartureAirportID: dep.ID,
		ArrivalAirportID:   arr.ID,
		DepartureTime:      time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		ArrivalTime:        time.Date(2026, 5, 1, 11, 30, 0, 0, time.UTC),
		TotalSeats:         100,
		AvailableSeats:     100,
		PriceCents:         5000,
	}))

	assert.ErrorIs(t, svc.Delete(ctx, dep.ID), domain.ErrInUse)
}
