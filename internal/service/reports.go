package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

const (
	ReportFull    = "full-report"
	ReportMySales = "my-sales"
)

type ProductSales struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

type Summary struct {
	TotalOrders       int            `json:"totalOrders"`
	TotalRevenue      float64        `json:"totalRevenue"`
	AverageOrderValue float64        `json:"averageOrderValue"`
	StatusBreakdown   map[string]int `json:"statusBreakdown"`
	PaymentBreakdown  map[string]int `json:"paymentBreakdown"`
	TopProducts       []ProductSales `json:"topProducts"`
}

type Report struct {
	Type        string         `json:"type"`
	TheaterID   string         `json:"theaterId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Period      string         `json:"period"`
	Summary     Summary        `json:"summary"`
	Orders      []models.Order `json:"orders"`

	categories map[primitive.ObjectID]string
	loc        *time.Location
}

type ReportFilter struct {
	Status string
	Range  DateRange
}

type Reports struct {
	store    *store.Store
	settings *Settings
	now      func() time.Time
}

func NewReports(st *store.Store, settings *Settings) *Reports {
	return &Reports{store: st, settings: settings, now: time.Now}
}

// Location is the timezone report dates are filtered and rendered in.
func (s *Reports) Location(ctx context.Context) *time.Location {
	return s.settings.Location(ctx)
}

// Full reports every order of the theater. Only theater admins of that
// theater and super admins may see it.
func (s *Reports) Full(ctx context.Context, caller Caller, theater primitive.ObjectID, f ReportFilter) (Report, error) {
	if !caller.IsSuperAdmin() && !(caller.IsTheaterAdmin() && caller.CanAccessTheater(theater)) {
		return Report{}, forbidden(CodeAccessDenied, "only theater admins can view the full report")
	}
	orders, err := s.store.Orders.List(ctx, theater)
	if err != nil {
		return Report{}, err
	}
	return s.build(ctx, ReportFull, theater, filterOrders(orders, f.Status, f.Range), f)
}

// MySales reports only the orders, and the items within them, that fall
// under the caller's assigned categories, products and sections.
func (s *Reports) MySales(ctx context.Context, caller Caller, theater primitive.ObjectID, f ReportFilter) (Report, error) {
	if err := caller.RequireTheater(theater); err != nil {
		return Report{}, err
	}
	user, err := s.store.Users.FindByID(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Report{}, forbidden(CodeNoDataAccess, "no sales data is assigned to you")
	}
	if err != nil {
		return Report{}, err
	}
	if user.Access.Empty() {
		return Report{}, forbidden(CodeNoDataAccess, "no categories, products or sections are assigned to you")
	}

	orders, err := s.store.Orders.List(ctx, theater)
	if err != nil {
		return Report{}, err
	}
	categories, err := s.productCategories(ctx, theater)
	if err != nil {
		return Report{}, err
	}
	scoped := ScopeOrders(filterOrders(orders, f.Status, f.Range), user.Access, categories)
	return s.build(ctx, ReportMySales, theater, scoped, f)
}

// ScopeOrders keeps the items an access assignment allows, drops orders left
// empty and recomputes their pricing. categories maps product ids to their
// category id and name.
func ScopeOrders(orders []models.Order, access models.StaffAccess, categories map[primitive.ObjectID]ProductCategory) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if len(access.Sections) > 0 && !matchesSection(o.CustomerInfo, access.Sections) {
			continue
		}
		items := make([]models.OrderItem, 0, len(o.Items))
		subtotal := decimal.Zero
		for _, item := range o.Items {
			if len(access.Products) > 0 &&
				!access.Products.Contains(item.ProductID.Hex()) && !access.Products.Contains(item.Name) {
				continue
			}
			if len(access.Categories) > 0 {
				cat := categories[item.ProductID]
				if !access.Categories.Contains(cat.ID) && !access.Categories.Contains(cat.Name) {
					continue
				}
			}
			items = append(items, item)
			subtotal = subtotal.Add(decimal.NewFromFloat(item.TotalPrice))
		}
		if len(items) == 0 {
			continue
		}
		if len(items) != len(o.Items) {
			totals := ComputeTotals(subtotal)
			o.Items = items
			o.Pricing.Subtotal = toFloat(totals.Subtotal)
			o.Pricing.TaxAmount = toFloat(totals.Tax)
			o.Pricing.Total = toFloat(totals.Total)
		}
		out = append(out, o)
	}
	return out
}

func matchesSection(c models.OrderCustomer, sections models.StringList) bool {
	for _, v := range []string{c.Section, c.QRName, c.Seat} {
		if v != "" && sections.Contains(v) {
			return true
		}
	}
	return false
}

// ProductCategory is the category a product belongs to.
type ProductCategory struct {
	ID   string
	Name string
}

func (s *Reports) productCategories(ctx context.Context, theater primitive.ObjectID) (map[primitive.ObjectID]ProductCategory, error) {
	out := map[primitive.ObjectID]ProductCategory{}
	products, err := s.store.Products.Load(ctx, theater)
	if errors.Is(err, store.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	names := map[primitive.ObjectID]string{}
	cats, err := s.store.Categories.Load(ctx, theater)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	for _, c := range cats.Items {
		names[c.ID] = c.CategoryName
	}
	for _, p := range products.Items {
		out[p.ID] = ProductCategory{ID: p.CategoryID.Hex(), Name: names[p.CategoryID]}
	}
	return out, nil
}

func (s *Reports) build(ctx context.Context, kind string, theater primitive.ObjectID, orders []models.Order, f ReportFilter) (Report, error) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	cats, err := s.productCategories(ctx, theater)
	if err != nil {
		return Report{}, err
	}
	names := make(map[primitive.ObjectID]string, len(cats))
	for id, c := range cats {
		names[id] = c.Name
	}
	return Report{
		Type:        kind,
		TheaterID:   theater.Hex(),
		GeneratedAt: s.now(),
		Period:      f.Range.Label(),
		Summary:     Summarize(orders),
		Orders:      orders,
		categories:  names,
		loc:         s.Location(ctx),
	}, nil
}

// Summarize aggregates totals, breakdowns and the ten best-selling products.
func Summarize(orders []models.Order) Summary {
	sum := Summary{
		TotalOrders:      len(orders),
		StatusBreakdown:  map[string]int{},
		PaymentBreakdown: map[string]int{},
		TopProducts:      []ProductSales{},
	}
	revenue := decimal.Zero
	byProduct := map[primitive.ObjectID]*ProductSales{}
	productRevenue := map[primitive.ObjectID]decimal.Decimal{}
	for _, o := range orders {
		sum.StatusBreakdown[o.Status]++
		sum.PaymentBreakdown[o.Payment.Method]++
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		revenue = revenue.Add(decimal.NewFromFloat(o.Pricing.Total))
		for _, item := range o.Items {
			ps, ok := byProduct[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID.Hex(), Name: item.Name}
				byProduct[item.ProductID] = ps
			}
			ps.Quantity += item.Quantity
			productRevenue[item.ProductID] = productRevenue[item.ProductID].Add(decimal.NewFromFloat(item.TotalPrice))
		}
	}
	sum.TotalRevenue = toFloat(revenue)
	billable := len(orders) - sum.StatusBreakdown[models.OrderStatusCancelled]
	if billable > 0 {
		sum.AverageOrderValue = toFloat(revenue.Div(decimal.NewFromInt(int64(billable))))
	}

	for id, ps := range byProduct {
		ps.Revenue = toFloat(productRevenue[id])
		sum.TopProducts = append(sum.TopProducts, *ps)
	}
	sort.Slice(sum.TopProducts, func(i, j int) bool {
		a, b := sum.TopProducts[i], sum.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(sum.TopProducts) > 10 {
		sum.TopProducts = sum.TopProducts[:10]
	}
	return sum
}

// CSVFilename is the attachment name for a report download.
func (r Report) CSVFilename() string {
	return fmt.Sprintf("%s-%s-%s.csv", r.Type, r.TheaterID, r.local(r.GeneratedAt).Format("2006-01-02"))
}

func (r Report) local(t time.Time) time.Time {
	if r.loc == nil {
		return t.UTC()
	}
	return t.In(r.loc)
}

var reportTitles = map[string]string{
	ReportFull:    "Full Sales Report",
	ReportMySales: "My Sales Report",
}

// WriteCSV writes the metadata block, a blank line, the header and one row
// per order. Every field is double-quoted.
func (r Report) WriteCSV(w io.Writer) error {
	rows := [][]string{
		{"Report", reportTitles[r.Type]},
		{"Theater", r.TheaterID},
		{"Generated At", r.local(r.GeneratedAt).Format("2006-01-02 15:04:05")},
		{"Period", r.Period},
		{"Total Orders", fmt.Sprintf("%d", r.Summary.TotalOrders)},
		{"Total Revenue", fmt.Sprintf("%.2f", r.Summary.TotalRevenue)},
		nil,
		{"Order ID", "Date", "Customer", "Items", "Category", "Total", "Status", "Payment Method"},
	}
	for _, o := range r.Orders {
		rows = append(rows, []string{
			o.OrderNumber,
			r.local(o.CreatedAt).Format("2006-01-02 15:04"),
			customerLabel(o.CustomerInfo),
			itemsLabel(o.Items),
			r.categoryLabel(o.Items),
			fmt.Sprintf("%.2f", o.Pricing.Total),
			o.Status,
			o.Payment.Method,
		})
	}

	var b strings.Builder
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func customerLabel(c models.OrderCustomer) string {
	parts := make([]string, 0, 3)
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if c.QRName != "" {
		parts = append(parts, c.QRName)
	}
	if c.Seat != "" {
		parts = append(parts, "Seat "+c.Seat)
	}
	if len(parts) == 0 {
		return "Walk-in"
	}
	return strings.Join(parts, " / ")
}

func itemsLabel(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, "; ")
}

func (r Report) categoryLabel(items []models.OrderItem) string {
	seen := map[string]bool{}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := r.categories[item.ProductID]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}
