package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-auction/internal/auctionerrors"
	model "delivery-auction/internal/models"
)

func TestMemoryOrders_ProvisionIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := NewMemoryOrders()
	dir.Provision([]model.Order{{OrderID: "order1", Status: model.OrderReadyForDelivery}})

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, dir.AssignDriver("order1", "driver1", now))

	// Re-provisioning must not reset the assigned order
	dir.Provision([]model.Order{{OrderID: "order1", Status: model.OrderReadyForDelivery}})

	order, err := dir.OrderByID("order1")
	require.NoError(t, err)
	require.Equal(t, "driver1", order.DeliveryPersonID)
	require.Equal(t, model.OrderInTransit, order.Status)
}

func TestMemoryOrders_AssignDriver(t *testing.T) {
	t.Parallel()

	dir := NewMemoryOrders()
	dir.Provision([]model.Order{{OrderID: "order1"}})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	awaiting, err := dir.IsAwaitingDriver("order1")
	require.NoError(t, err)
	require.True(t, awaiting)

	require.NoError(t, dir.AssignDriver("order1", "driver1", now))

	awaiting, err = dir.IsAwaitingDriver("order1")
	require.NoError(t, err)
	require.False(t, awaiting)

	// Assignment is one-shot
	err = dir.AssignDriver("order1", "driver2", now)
	require.Error(t, err)

	order, err := dir.OrderByID("order1")
	require.NoError(t, err)
	require.Equal(t, "driver1", order.DeliveryPersonID)
}

func TestMemoryOrders_UnknownOrder(t *testing.T) {
	t.Parallel()

	dir := NewMemoryOrders()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := dir.IsAwaitingDriver("orderX")
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))

	err = dir.AssignDriver("orderX", "driver1", now)
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))

	_, err = dir.OrderByID("orderX")
	require.True(t, errors.Is(err, auctionerrors.ErrOrderNotFound))
}
