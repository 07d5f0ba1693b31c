package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/events"
	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/store"
)

type LineItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

type PlaceOrderInput struct {
	Theater             primitive.ObjectID
	Items               []LineItem
	Customer            models.OrderCustomer
	TableNumber         string
	SpecialInstructions string
	OrderType           string
	PaymentMethod       string
	Staff               *models.StaffInfo
}

type OrderFilter struct {
	Status string
	Range  DateRange
	Page   int64
	Limit  int64
}

type Orders struct {
	store     *store.Store
	settings  *Settings
	publisher events.Publisher
	now       func() time.Time
}

func NewOrders(st *store.Store, settings *Settings, publisher events.Publisher) *Orders {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Orders{store: st, settings: settings, publisher: publisher, now: time.Now}
}

// SetClock overrides the time source, used by tests that pin order numbers.
func (s *Orders) SetClock(now func() time.Time) {
	s.now = now
}

// Location is the timezone order days are numbered and filtered in.
func (s *Orders) Location(ctx context.Context) *time.Location {
	return s.settings.Location(ctx)
}

// PlaceOrder validates every line against the theater's products, then
// decrements stock, takes the next daily sequence number and appends the
// order inside one transaction.
func (s *Orders) PlaceOrder(ctx context.Context, in PlaceOrderInput) (models.Order, error) {
	log := logger.For("order")

	if len(in.Items) == 0 {
		return models.Order{}, badRequest(CodeInvalidProduct, "at least one item is required")
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return models.Order{}, badRequest(CodeInvalidProduct, "quantity must be greater than zero")
		}
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = "cash"
	}
	if !models.IsValidPaymentMethod(method) {
		return models.Order{}, badRequest(CodeInvalidPayment, "payment method %q is not supported", in.PaymentMethod)
	}

	cfg, err := s.settings.General(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if !cfg.OrderingEnabled {
		return models.Order{}, &BusinessError{Code: CodeOrderingDisabled, Message: "ordering is currently disabled", Status: http.StatusServiceUnavailable}
	}
	if len(in.Items) > cfg.MaxOrderItems {
		return models.Order{}, badRequest(CodeTooManyItems, "an order may contain at most %d items", cfg.MaxOrderItems)
	}

	var placed models.Order
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		order, tracked, err := s.priceOrder(ctx, in, now)
		if err != nil {
			return err
		}
		order.Payment = models.OrderPayment{Method: method, Status: "pending"}

		for _, item := range tracked {
			err := s.store.Products.DecrementStock(ctx, in.Theater, item.ProductID, item.Quantity)
			if errors.Is(err, store.ErrInsufficientStock) {
				return badRequest(CodeInsufficientStock, "insufficient stock for product %s", item.ProductID.Hex())
			}
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		day := now.In(settingsLocation(cfg)).Format("20060102")
		seq, err := s.store.Counters.Next(ctx, in.Theater.Hex()+":"+day, in.Theater, day)
		if err != nil {
			return fmt.Errorf("order sequence: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("ORD-%s-%04d", day, seq)

		placed, err = s.store.Orders.Append(ctx, in.Theater, order)
		if err != nil {
			return fmt.Errorf("append order: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	log.WithFields(logrus.Fields{
		"theater":     in.Theater.Hex(),
		"orderNumber": placed.OrderNumber,
		"total":       placed.Pricing.Total,
	}).Info("order placed")
	s.publish(ctx, events.OrderPlaced, in.Theater, placed)
	return placed, nil
}

// priceOrder rejects the request on the first invalid line and returns the
// priced order plus the lines whose stock must be decremented.
func (s *Orders) priceOrder(ctx context.Context, in PlaceOrderInput, now time.Time) (models.Order, []LineItem, error) {
	products, err := s.store.Products.Load(ctx, in.Theater)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, nil, badRequest(CodeNoProducts, "no products found for this theater")
	}
	if err != nil {
		return models.Order{}, nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	tracked := make([]LineItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for _, line := range in.Items {
		product, ok := products.Find(line.ProductID)
		if !ok {
			return models.Order{}, nil, badRequest(CodeInvalidProduct, "product %s not found", line.ProductID.Hex())
		}
		if !product.IsActive || !product.IsAvailable {
			return models.Order{}, nil, badRequest(CodeProductUnavailable, "%s is not available", product.Name)
		}
		if !product.HasStockFor(line.Quantity) {
			return models.Order{}, nil, badRequest(CodeInsufficientStock, "insufficient stock for %s", product.Name)
		}

		lineTotal := LineTotal(product.UnitPrice(), line.Quantity)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   line.Quantity,
			UnitPrice:  product.UnitPrice(),
			TotalPrice: toFloat(lineTotal),
		})
		if product.Inventory.TrackStock {
			tracked = append(tracked, line)
		}
	}

	totals := ComputeTotals(subtotal)
	orderType := in.OrderType
	if orderType == "" {
		orderType = "qr_order"
	}
	return models.Order{
		ID:    primitive.NewObjectID(),
		Items: items,
		Pricing: models.OrderPricing{
			Subtotal:  toFloat(totals.Subtotal),
			TaxAmount: toFloat(totals.Tax),
			Total:     toFloat(totals.Total),
			Currency:  "INR",
		},
		Status:              models.OrderStatusPending,
		OrderType:           orderType,
		CustomerInfo:        in.Customer,
		TableNumber:         in.TableNumber,
		SpecialInstructions: in.SpecialInstructions,
		StaffInfo:           in.Staff,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, tracked, nil
}

// List returns a page of the theater's orders, newest first, and the number
// of orders matching the filter.
func (s *Orders) List(ctx context.Context, theater primitive.ObjectID, f OrderFilter) ([]models.Order, int64, error) {
	all, err := s.store.Orders.List(ctx, theater)
	if err != nil {
		return nil, 0, err
	}
	matched := filterOrders(all, f.Status, f.Range)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Limit <= 0 {
		return matched, total, nil
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.Limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// UpdateStatus changes one order's status after checking the caller's
// theater.
func (s *Orders) UpdateStatus(ctx context.Context, caller Caller, orderID primitive.ObjectID, status string) (models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		be := badRequest(CodeInvalidStatus, "status must be one of %s", strings.Join(models.OrderStatuses, ", "))
		be.Details = map[string]any{"validStatuses": models.OrderStatuses}
		return models.Order{}, be
	}

	theater, _, err := s.store.Orders.Find(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, &BusinessError{Code: CodeOrderNotFound, Message: "order not found", Status: http.StatusNotFound}
	}
	if err != nil {
		return models.Order{}, err
	}
	if err := caller.RequireTheater(theater); err != nil {
		return models.Order{}, err
	}

	updated, err := s.store.Orders.UpdateStatus(ctx, orderID, status, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, &BusinessError{Code: CodeOrderNotFound, Message: "order not found", Status: http.StatusNotFound}
	}
	if err != nil {
		return models.Order{}, err
	}

	logger.For("order").WithFields(logrus.Fields{
		"order":  orderID.Hex(),
		"status": status,
		"by":     caller.Username,
	}).Info("order status updated")
	s.publish(ctx, events.OrderStatusChanged, theater, updated)
	return updated, nil
}

func (s *Orders) publish(ctx context.Context, eventType string, theater primitive.ObjectID, order models.Order) {
	ev := events.NewOrderEvent(eventType)
	ev.TheaterID = theater.Hex()
	ev.OrderID = order.ID.Hex()
	ev.OrderNumber = order.OrderNumber
	ev.Status = order.Status
	ev.Total = order.Pricing.Total
	ev.ItemCount = len(order.Items)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		logger.For("order").WithError(err).Warnf("publish %s failed", eventType)
	}
}

func filterOrders(orders []models.Order, status string, r DateRange) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if !r.Contains(o.CreatedAt) {
			continue
		}
		out = append(out, o)
	}
	return out
}
