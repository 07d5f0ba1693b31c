package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/events"
	"canteen/internal/models"
	"canteen/internal/store"
	"canteen/internal/store/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type orderFixture struct {
	st        *store.Store
	orders    *Orders
	settings  *Settings
	publisher *capturePublisher
	theater   primitive.ObjectID
	popcorn   models.Product
	cola      models.Product
}

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	st := memory.NewStore()
	settings := NewSettings(st.Settings)
	pub := &capturePublisher{}
	f := &orderFixture{
		st:        st,
		orders:    NewOrders(st, settings, pub),
		settings:  settings,
		publisher: pub,
		theater:   primitive.NewObjectID(),
	}
	f.orders.SetClock(func() time.Time { return fixedNow })

	f.popcorn = f.addProduct(t, "Popcorn", 100, 10, true)
	f.cola = f.addProduct(t, "Cola", 50, 5, true)
	return f
}

func (f *orderFixture) addProduct(t *testing.T, name string, price float64, stock int, tracked bool) models.Product {
	t.Helper()
	p := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        name,
		CategoryID:  primitive.NewObjectID(),
		Pricing:     models.ProductPricing{BasePrice: price},
		Inventory:   models.ProductInventory{TrackStock: tracked, CurrentStock: stock},
		IsActive:    true,
		IsAvailable: true,
	}
	_, err := f.st.Products.Create(context.Background(), f.theater, p)
	require.NoError(t, err)
	return p
}

func (f *orderFixture) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.st.Products.Get(context.Background(), f.theater, id)
	require.NoError(t, err)
	return p.Inventory.CurrentStock
}

func requireBusiness(t *testing.T, err error, code string, status int) {
	t.Helper()
	be, ok := AsBusiness(err)
	require.True(t, ok, "expected business error, got %v", err)
	assert.Equal(t, code, be.Code)
	assert.Equal(t, status, be.Status)
}

func TestPlaceOrderPricesAndDecrementsStock(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items: []LineItem{
			{ProductID: f.popcorn.ID, Quantity: 2},
			{ProductID: f.cola.ID, Quantity: 1},
		},
		Customer: models.OrderCustomer{QRName: "Screen 1", Seat: "A4"},
	})
	require.NoError(t, err)

	assert.Equal(t, 250.0, order.Pricing.Subtotal)
	assert.Equal(t, 45.0, order.Pricing.TaxAmount)
	assert.Equal(t, 295.0, order.Pricing.Total)
	assert.Equal(t, "ORD-20240115-0001", order.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "cash", order.Payment.Method)
	assert.Equal(t, "qr_order", order.OrderType)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 200.0, order.Items[0].TotalPrice)

	assert.Equal(t, 8, f.stockOf(t, f.popcorn.ID))
	assert.Equal(t, 4, f.stockOf(t, f.cola.ID))
	assert.Equal(t, []string{events.OrderPlaced}, f.publisher.types())
}

func TestPlaceOrderUsesSalePrice(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.st.Products.Update(context.Background(), f.theater, f.popcorn.ID, map[string]any{
		"pricing": models.ProductPricing{BasePrice: 100, SaleEnabled: true, SalePrice: 80},
	})
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: f.popcorn.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, order.Items[0].UnitPrice)
	assert.Equal(t, 14.0, order.Pricing.TaxAmount)
	assert.Equal(t, 94.0, order.Pricing.Total)
}

func TestPlaceOrderInsufficientStockLeavesStateUntouched(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items: []LineItem{
			{ProductID: f.popcorn.ID, Quantity: 1},
			{ProductID: f.cola.ID, Quantity: 6},
		},
	})
	requireBusiness(t, err, CodeInsufficientStock, http.StatusBadRequest)

	assert.Equal(t, 10, f.stockOf(t, f.popcorn.ID))
	assert.Equal(t, 5, f.stockOf(t, f.cola.ID))
	orders, err := f.st.Orders.List(context.Background(), f.theater)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.publisher.types())

	next, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: f.cola.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240115-0001", next.OrderNumber)
	assert.Equal(t, 0, f.stockOf(t, f.cola.ID))
}

func TestPlaceOrderSkipsUntrackedStock(t *testing.T) {
	f := newOrderFixture(t)
	water := f.addProduct(t, "Water", 20, 0, false)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: water.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, order.Pricing.Subtotal)
	assert.Equal(t, 0, f.stockOf(t, water.ID))
}

func TestPlaceOrderRejections(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   PlaceOrderInput
		code string
	}{
		{"no items", PlaceOrderInput{Theater: f.theater}, CodeInvalidProduct},
		{"zero quantity", PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.cola.ID}}}, CodeInvalidProduct},
		{"unknown product", PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: primitive.NewObjectID(), Quantity: 1}}}, CodeInvalidProduct},
		{"unknown theater", PlaceOrderInput{Theater: primitive.NewObjectID(), Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}}, CodeNoProducts},
		{"bad payment", PlaceOrderInput{Theater: f.theater, PaymentMethod: "barter", Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}}, CodeInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.PlaceOrder(ctx, tt.in)
			requireBusiness(t, err, tt.code, http.StatusBadRequest)
		})
	}

	_, err := f.st.Products.SetActive(ctx, f.theater, f.cola.ID, false)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}})
	requireBusiness(t, err, CodeProductUnavailable, http.StatusBadRequest)
}

func TestPlaceOrderWhenOrderingDisabled(t *testing.T) {
	f := newOrderFixture(t)
	disabled := false
	_, err := f.settings.UpdateGeneral(context.Background(), GeneralPatch{OrderingEnabled: &disabled})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: f.cola.ID, Quantity: 1}},
	})
	requireBusiness(t, err, CodeOrderingDisabled, http.StatusServiceUnavailable)
	assert.Equal(t, 5, f.stockOf(t, f.cola.ID))
}

func TestPlaceOrderRespectsMaxOrderItems(t *testing.T) {
	f := newOrderFixture(t)
	limit := 1
	_, err := f.settings.UpdateGeneral(context.Background(), GeneralPatch{MaxOrderItems: &limit})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items: []LineItem{
			{ProductID: f.popcorn.ID, Quantity: 1},
			{ProductID: f.cola.ID, Quantity: 1},
		},
	})
	requireBusiness(t, err, CodeTooManyItems, http.StatusBadRequest)
}

func TestConcurrentOrdersGetUniqueNumbers(t *testing.T) {
	f := newOrderFixture(t)
	const n = 20
	_, err := f.st.Products.Update(context.Background(), f.theater, f.popcorn.ID, map[string]any{"inventory.currentStock": n})
	require.NoError(t, err)

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
				Theater: f.theater,
				Items:   []LineItem{{ProductID: f.popcorn.ID, Quantity: 1}},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- order.OrderNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("ORD-20240115-%04d", i)])
	}
	assert.Equal(t, 0, f.stockOf(t, f.popcorn.ID))

	_, err = f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: f.popcorn.ID, Quantity: 1}},
	})
	requireBusiness(t, err, CodeInsufficientStock, http.StatusBadRequest)
}

func TestOrderNumbersRestartEachDay(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	in := PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}}

	first, err := f.orders.PlaceOrder(ctx, in)
	require.NoError(t, err)
	f.orders.SetClock(func() time.Time { return fixedNow.Add(24 * time.Hour) })
	second, err := f.orders.PlaceOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "ORD-20240115-0001", first.OrderNumber)
	assert.Equal(t, "ORD-20240116-0001", second.OrderNumber)
}

func TestUpdateStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Theater: f.theater,
		Items:   []LineItem{{ProductID: f.cola.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	own := f.theater
	staff := Caller{UserID: primitive.NewObjectID(), Username: "kiosk", Role: models.UserTypeTheaterUser, Theater: &own}
	updated, err := f.orders.UpdateStatus(ctx, staff, order.ID, models.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, updated.Status)
	assert.Equal(t, []string{events.OrderPlaced, events.OrderStatusChanged}, f.publisher.types())

	other := primitive.NewObjectID()
	stranger := Caller{Role: models.UserTypeTheaterAdmin, Theater: &other}
	_, err = f.orders.UpdateStatus(ctx, stranger, order.ID, models.OrderStatusServed)
	requireBusiness(t, err, CodeAccessDenied, http.StatusForbidden)

	_, err = f.orders.UpdateStatus(ctx, staff, primitive.NewObjectID(), models.OrderStatusServed)
	requireBusiness(t, err, CodeOrderNotFound, http.StatusNotFound)

	_, err = f.orders.UpdateStatus(ctx, staff, order.ID, "lost")
	requireBusiness(t, err, CodeInvalidStatus, http.StatusBadRequest)

	admin := Caller{Role: models.UserTypeSuperAdmin}
	_, err = f.orders.UpdateStatus(ctx, admin, order.ID, models.OrderStatusServed)
	require.NoError(t, err)
}

func TestListOrdersFiltersAndPaginates(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	in := PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.popcorn.ID, Quantity: 1}}}

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		at := fixedNow.Add(time.Duration(i) * time.Hour)
		f.orders.SetClock(func() time.Time { return at })
		o, err := f.orders.PlaceOrder(ctx, in)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := f.orders.UpdateStatus(ctx, Caller{Role: models.UserTypeSuperAdmin}, ids[0], models.OrderStatusCompleted)
	require.NoError(t, err)

	page, total, err := f.orders.List(ctx, f.theater, OrderFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	pending, total, err := f.orders.List(ctx, f.theater, OrderFilter{Status: models.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, pending, 2)

	r, err := ParseDateRange("2024-01-16", "", f.orders.Location(ctx))
	require.NoError(t, err)
	none, total, err := f.orders.List(ctx, f.theater, OrderFilter{Range: r})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestOrderDaysFollowSettingsTimezone(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	// 01:00 on 16 Oct in Asia/Kolkata is still 15 Oct in UTC.
	f.orders.SetClock(func() time.Time { return time.Date(2025, 10, 15, 19, 30, 0, 0, time.UTC) })

	order, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, "ORD-20251016-0001", order.OrderNumber)

	r, err := ParseDateRange("2025-10-16", "2025-10-16", f.orders.Location(ctx))
	require.NoError(t, err)
	found, total, err := f.orders.List(ctx, f.theater, OrderFilter{Range: r})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, order.ID, found[0].ID)

	r, err = ParseDateRange("2025-10-15", "2025-10-15", f.orders.Location(ctx))
	require.NoError(t, err)
	_, total, err = f.orders.List(ctx, f.theater, OrderFilter{Range: r})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestParseDateRangeInLocation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	r, err := ParseDateRange("2025-10-16", "2025-10-16", kolkata)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 15, 18, 30, 0, 0, time.UTC), r.From.UTC())
	assert.Equal(t, time.Date(2025, 10, 16, 18, 29, 59, 999999999, time.UTC), r.To.UTC())

	utc, err := ParseDateRange("2025-10-16", "", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC), utc.From)
	assert.True(t, utc.To.IsZero())

	_, err = ParseDateRange("16/10/2025", "", kolkata)
	requireBusiness(t, err, CodeInvalidDate, http.StatusBadRequest)
}
