package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

func sampleOrders() (primitive.ObjectID, primitive.ObjectID, []models.Order) {
	popcorn, cola := primitive.NewObjectID(), primitive.NewObjectID()
	orders := []models.Order{
		{
			ID:          primitive.NewObjectID(),
			OrderNumber: "ORD-20240115-0001",
			Items: []models.OrderItem{
				{ProductID: popcorn, Name: "Popcorn", Quantity: 2, UnitPrice: 100, TotalPrice: 200},
				{ProductID: cola, Name: "Cola", Quantity: 1, UnitPrice: 50, TotalPrice: 50},
			},
			Pricing:      models.OrderPricing{Subtotal: 250, TaxAmount: 45, Total: 295},
			Payment:      models.OrderPayment{Method: "cash"},
			Status:       models.OrderStatusCompleted,
			CustomerInfo: models.OrderCustomer{Name: "Ada", QRName: "Screen 1", Seat: "A4"},
			CreatedAt:    fixedNow,
		},
		{
			ID:           primitive.NewObjectID(),
			OrderNumber:  "ORD-20240115-0002",
			Items:        []models.OrderItem{{ProductID: cola, Name: "Cola", Quantity: 3, UnitPrice: 50, TotalPrice: 150}},
			Pricing:      models.OrderPricing{Subtotal: 150, TaxAmount: 27, Total: 177},
			Payment:      models.OrderPayment{Method: "upi"},
			Status:       models.OrderStatusCancelled,
			CustomerInfo: models.OrderCustomer{QRName: "Screen 2"},
			CreatedAt:    fixedNow.Add(time.Hour),
		},
	}
	return popcorn, cola, orders
}

func TestSummarizeSkipsCancelledRevenue(t *testing.T) {
	popcorn, _, orders := sampleOrders()
	sum := Summarize(orders)

	assert.Equal(t, 2, sum.TotalOrders)
	assert.Equal(t, 295.0, sum.TotalRevenue)
	assert.Equal(t, 295.0, sum.AverageOrderValue)
	assert.Equal(t, 1, sum.StatusBreakdown[models.OrderStatusCancelled])
	assert.Equal(t, 1, sum.PaymentBreakdown["upi"])
	require.Len(t, sum.TopProducts, 2)
	assert.Equal(t, popcorn.Hex(), sum.TopProducts[0].ProductID)
	assert.Equal(t, 200.0, sum.TopProducts[0].Revenue)
}

func TestScopeOrdersTrimsItemsAndReprices(t *testing.T) {
	popcorn, cola, orders := sampleOrders()
	snacks := primitive.NewObjectID().Hex()
	categories := map[primitive.ObjectID]ProductCategory{
		popcorn: {ID: snacks, Name: "Snacks"},
		cola:    {ID: primitive.NewObjectID().Hex(), Name: "Drinks"},
	}

	byCategory := ScopeOrders(orders, models.StaffAccess{Categories: models.StringList{"snacks"}}, categories)
	require.Len(t, byCategory, 1)
	require.Len(t, byCategory[0].Items, 1)
	assert.Equal(t, 200.0, byCategory[0].Pricing.Subtotal)
	assert.Equal(t, 36.0, byCategory[0].Pricing.TaxAmount)
	assert.Equal(t, 236.0, byCategory[0].Pricing.Total)

	bySection := ScopeOrders(orders, models.StaffAccess{Sections: models.StringList{"Screen 2"}}, categories)
	require.Len(t, bySection, 1)
	assert.Equal(t, "ORD-20240115-0002", bySection[0].OrderNumber)

	byProduct := ScopeOrders(orders, models.StaffAccess{Products: models.StringList{cola.Hex()}}, categories)
	assert.Len(t, byProduct, 2)

	assert.Len(t, orders[0].Items, 2)
}

func TestFullReportRequiresAdmin(t *testing.T) {
	f := newOrderFixture(t)
	reports := NewReports(f.st, f.settings)
	own := f.theater

	_, err := reports.Full(context.Background(), Caller{Role: models.UserTypeTheaterUser, Theater: &own}, f.theater, ReportFilter{})
	requireBusiness(t, err, CodeAccessDenied, http.StatusForbidden)

	other := primitive.NewObjectID()
	_, err = reports.Full(context.Background(), Caller{Role: models.UserTypeTheaterAdmin, Theater: &other}, f.theater, ReportFilter{})
	requireBusiness(t, err, CodeAccessDenied, http.StatusForbidden)
}

func TestMySalesNeedsAssignments(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	reports := NewReports(f.st, f.settings)
	own := f.theater

	bare, err := f.st.Users.Create(ctx, models.User{Email: "bare@example.com", Username: "bare", UserType: models.UserTypeTheaterUser, Theater: &own, IsActive: true})
	require.NoError(t, err)
	_, err = reports.MySales(ctx, Caller{UserID: bare.ID, Role: models.UserTypeTheaterUser, Theater: &own}, f.theater, ReportFilter{})
	requireBusiness(t, err, CodeNoDataAccess, http.StatusForbidden)

	seller, err := f.st.Users.Create(ctx, models.User{
		Email: "cola@example.com", Username: "cola", UserType: models.UserTypeTheaterUser, Theater: &own, IsActive: true,
		Access: models.StaffAccess{Products: models.StringList{"Cola"}},
	})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{Theater: f.theater, Items: []LineItem{
		{ProductID: f.popcorn.ID, Quantity: 2},
		{ProductID: f.cola.ID, Quantity: 1},
	}})
	require.NoError(t, err)

	report, err := reports.MySales(ctx, Caller{UserID: seller.ID, Role: models.UserTypeTheaterUser, Theater: &own}, f.theater, ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, ReportMySales, report.Type)
	require.Len(t, report.Orders, 1)
	require.Len(t, report.Orders[0].Items, 1)
	assert.Equal(t, "Cola", report.Orders[0].Items[0].Name)
	assert.Equal(t, 59.0, report.Summary.TotalRevenue)
}

func TestReportCSV(t *testing.T) {
	_, _, orders := sampleOrders()
	report := Report{
		Type:        ReportFull,
		TheaterID:   "65a000000000000000000001",
		GeneratedAt: fixedNow,
		Period:      "All time",
		Summary:     Summarize(orders),
		Orders:      orders,
	}
	assert.Equal(t, "full-report-65a000000000000000000001-2024-01-15.csv", report.CSVFilename())

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")

	assert.Equal(t, `"Report","Full Sales Report"`, lines[0])
	assert.Equal(t, `"Total Revenue","295.00"`, lines[5])
	assert.Equal(t, "", lines[6])
	assert.Equal(t, `"Order ID","Date","Customer","Items","Category","Total","Status","Payment Method"`, lines[7])
	assert.Equal(t, `"ORD-20240115-0001","2024-01-15 10:00","Ada / Screen 1 / Seat A4","Popcorn x2; Cola x1","","295.00","completed","cash"`, lines[8])
	assert.Len(t, lines, 10)
}

func TestReportCSVUsesSettingsTimezone(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 15, 19, 30, 0, 0, time.UTC)
	f.orders.SetClock(func() time.Time { return at })
	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{Theater: f.theater, Items: []LineItem{{ProductID: f.cola.ID, Quantity: 1}}})
	require.NoError(t, err)

	report, err := NewReports(f.st, f.settings).Full(ctx, Caller{Role: models.UserTypeSuperAdmin}, f.theater, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, report.Orders, 1)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	assert.Contains(t, buf.String(), `"ORD-20251016-0001","2025-10-16 01:00"`)
}
