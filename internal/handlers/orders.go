package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/middleware"
	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

/* =========================
   REQUEST DTOs
========================= */

type placeOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type placeOrderCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Seat    string `json:"seat"`
	QRName  string `json:"qrName"`
	Section string `json:"section"`
}

type placeOrderRequest struct {
	TheaterID           string                    `json:"theaterId" binding:"required"`
	Items               []placeOrderItemRequest   `json:"items" binding:"required,min=1,dive"`
	CustomerInfo        placeOrderCustomerRequest `json:"customerInfo"`
	TableNumber         string                    `json:"tableNumber"`
	QRName              string                    `json:"qrName"`
	Seat                string                    `json:"seat"`
	SpecialInstructions string                    `json:"specialInstructions"`
	OrderType           string                    `json:"orderType"`
	PaymentMethod       string                    `json:"paymentMethod"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

/* =========================
   PLACE ORDER
========================= */

// PlaceOrder is public; OptionalAuth attaches staff details when a token
// was sent. Cached menus and reports are dropped after the sale.
func PlaceOrder(st *store.Store, orders *service.Orders, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/theater"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), st); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		in, err := req.toInput()
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if caller, ok := middleware.CallerFrom(c); ok {
			in.Staff = &models.StaffInfo{StaffID: caller.UserID, Username: caller.Username, Role: caller.Role}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.PlaceOrder(ctx, in)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		inv.drop(c, "menu", "reports")
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Order placed successfully",
			"data":    order,
		})
	}
}

func (r placeOrderRequest) toInput() (service.PlaceOrderInput, error) {
	theater, err := primitive.ObjectIDFromHex(strings.TrimSpace(r.TheaterID))
	if err != nil {
		return service.PlaceOrderInput{}, &service.BusinessError{Code: service.CodeTheaterIDRequired, Message: "theaterId is invalid", Status: http.StatusBadRequest}
	}

	items := make([]service.LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		pid, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return service.PlaceOrderInput{}, &service.BusinessError{Code: service.CodeInvalidProduct, Message: "invalid productId " + item.ProductID, Status: http.StatusBadRequest}
		}
		items = append(items, service.LineItem{ProductID: pid, Quantity: item.Quantity})
	}

	customer := models.OrderCustomer{
		Name:    strings.TrimSpace(r.CustomerInfo.Name),
		Phone:   strings.TrimSpace(r.CustomerInfo.Phone),
		Seat:    strings.TrimSpace(r.CustomerInfo.Seat),
		QRName:  strings.TrimSpace(r.CustomerInfo.QRName),
		Section: strings.TrimSpace(r.CustomerInfo.Section),
	}
	if customer.QRName == "" {
		customer.QRName = strings.TrimSpace(r.QRName)
	}
	if customer.Seat == "" {
		customer.Seat = strings.TrimSpace(r.Seat)
	}

	return service.PlaceOrderInput{
		Theater:             theater,
		Items:               items,
		Customer:            customer,
		TableNumber:         strings.TrimSpace(r.TableNumber),
		SpecialInstructions: strings.TrimSpace(r.SpecialInstructions),
		OrderType:           strings.TrimSpace(r.OrderType),
		PaymentMethod:       r.PaymentMethod,
	}, nil
}

/* =========================
   LIST ORDERS
========================= */

// MyOrders lists the orders of the caller's theater. Super admins pick the
// theater with ?theaterId=.
func MyOrders(orders *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/my-orders"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		theater, err := caller.ResolveTheater(strings.TrimSpace(c.Query("theaterId")))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		listOrders(c, route, orders, theater)
	}
}

func TheaterOrders(orders *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/theater/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		listOrders(c, route, orders, theater)
	}
}

func listOrders(c *gin.Context, route string, orders *service.Orders, theater primitive.ObjectID) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	dates, err := service.ParseDateRange(c.Query("startDate"), c.Query("endDate"), orders.Location(ctx))
	if err != nil {
		respondServiceError(c, route, err)
		return
	}

	list, total, err := orders.List(ctx, theater, service.OrderFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Range:  dates,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, route, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       list,
		"pagination": paginationMeta(page, limit, total),
	})
}

/* =========================
   UPDATE STATUS
========================= */

func UpdateOrderStatus(orders *service.Orders, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:orderId/status"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		orderID, ok := objectIDParam(c, route, "orderId")
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.UpdateStatus(ctx, caller, orderID, strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		inv.drop(c, "reports")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order status updated",
			"data":    order,
		})
	}
}
