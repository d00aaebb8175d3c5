package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/pkg/pagination"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := callerID(c)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	var req transport.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_order_error", err)
	}

	order, err := h.Svc.CreateOrder(ctx, req, userID)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	userID, err := callerID(c)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}

	page := pagination.ParseIntDefault(c.QueryParam("page"), 1)
	size := pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultSize)

	list, err := h.Svc.ListOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	userID, err := callerID(c)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_order_error", err)
	}

	view, err := h.Svc.GetOrder(ctx, userID, orderID)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	orderID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}

	var req transport.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_order_status_error", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, orderID, req)
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}

	l.Info("update_order_status_success", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}
