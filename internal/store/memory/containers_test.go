package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

func newQRName(name, seat string) models.QRName {
	now := time.Now()
	return models.QRName{
		ID:        primitive.NewObjectID(),
		QRName:    name,
		SeatClass: seat,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateUpsertsOneContainerPerTheater(t *testing.T) {
	db := New()
	st := db.Store()
	ctx := context.Background()
	theater := primitive.NewObjectID()

	first, err := st.QRNames.Create(ctx, theater, newQRName("A1", "Gold"))
	require.NoError(t, err)
	assert.Len(t, first.Items, 1)
	assert.Equal(t, 1, first.Metadata.TotalItems)
	assert.Equal(t, 1, first.Metadata.ActiveItems)

	second, err := st.QRNames.Create(ctx, theater, newQRName("A2", "Gold"))
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, db.Count(store.QRNamesSpec.Collection))
}

func TestSetActiveIsNotRepeatable(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	theater := primitive.NewObjectID()
	item := newQRName("B1", "Silver")

	_, err := st.QRNames.Create(ctx, theater, item)
	require.NoError(t, err)

	deleted, err := st.QRNames.SetActive(ctx, theater, item.ID, false)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)

	before, err := st.QRNames.Load(ctx, theater)
	require.NoError(t, err)

	_, err = st.QRNames.SetActive(ctx, theater, item.ID, false)
	assert.ErrorIs(t, err, store.ErrAlreadyInactive)

	after, err := st.QRNames.Load(ctx, theater)
	require.NoError(t, err)
	assert.Equal(t, before.Metadata.ActiveItems, after.Metadata.ActiveItems)
	assert.Equal(t, before.Metadata.InactiveItems, after.Metadata.InactiveItems)
	assert.Equal(t, 1, after.Metadata.InactiveItems)

	restored, err := st.QRNames.SetActive(ctx, theater, item.ID, true)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)

	_, err = st.QRNames.SetActive(ctx, theater, item.ID, true)
	assert.ErrorIs(t, err, store.ErrAlreadyActive)
}

func TestUpdateAndExists(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	theater := primitive.NewObjectID()
	a, b := newQRName("C1", "Gold"), newQRName("C2", "Gold")
	for _, q := range []models.QRName{a, b} {
		_, err := st.QRNames.Create(ctx, theater, q)
		require.NoError(t, err)
	}

	updated, err := st.QRNames.Update(ctx, theater, b.ID, map[string]any{"seatClass": "Platinum"})
	require.NoError(t, err)
	assert.Equal(t, "Platinum", updated.SeatClass)
	assert.Equal(t, "C2", updated.QRName)

	exists, err := st.QRNames.Exists(ctx, theater, map[string]any{"qrName": "C1", "seatClass": "Gold"}, primitive.NilObjectID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.QRNames.Exists(ctx, theater, map[string]any{"qrName": "C1", "seatClass": "Gold"}, a.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.QRNames.Update(ctx, theater, primitive.NewObjectID(), map[string]any{"qrName": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.QRNames.Get(ctx, primitive.NewObjectID(), a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecrementStockNeverGoesNegative(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	theater := primitive.NewObjectID()
	p := models.Product{
		ID:        primitive.NewObjectID(),
		Name:      "Samosa",
		Inventory: models.ProductInventory{TrackStock: true, CurrentStock: 3},
		IsActive:  true,
	}
	_, err := st.Products.Create(ctx, theater, p)
	require.NoError(t, err)

	require.NoError(t, st.Products.DecrementStock(ctx, theater, p.ID, 2))
	assert.ErrorIs(t, st.Products.DecrementStock(ctx, theater, p.ID, 2), store.ErrInsufficientStock)

	got, err := st.Products.Get(ctx, theater, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Inventory.CurrentStock)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	theater := primitive.NewObjectID()

	err := st.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := st.QRNames.Create(ctx, theater, newQRName("D1", "Gold")); err != nil {
			return err
		}
		if _, err := st.Counters.Next(ctx, "k", theater, "20240101"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = st.QRNames.Load(ctx, theater)
	assert.ErrorIs(t, err, store.ErrNotFound)

	seq, err := st.Counters.Next(ctx, "k", theater, "20240101")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestOrdersAppendTracksMetadata(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	theater := primitive.NewObjectID()

	order := models.Order{
		ID:      primitive.NewObjectID(),
		Status:  models.OrderStatusPending,
		Pricing: models.OrderPricing{Total: 295},
	}
	stored, err := st.Orders.Append(ctx, theater, order)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)

	foundTheater, found, err := st.Orders.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, theater, foundTheater)
	assert.Equal(t, 295.0, found.Pricing.Total)

	updated, err := st.Orders.UpdateStatus(ctx, order.ID, models.OrderStatusReady, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, updated.Status)

	list, err := st.Orders.List(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, list)
}
