package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/pkg/pagination"
	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/tracking"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderService struct {
	Repo   Store
	Window time.Duration
	Now    func() time.Time
}

func (svc *OrderService) now() time.Time {
	if svc.Now != nil {
		return svc.Now()
	}
	return time.Now().UTC()
}

func (svc *OrderService) window() time.Duration {
	if svc.Window > 0 {
		return svc.Window
	}
	return eligibility.DefaultWindow
}

func (svc *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, userID uuid.UUID) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if req.Shipping.IsNegative() {
		return nil, fmt.Errorf("%w: shipping must be >= 0", ErrValidation)
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))

	for i := range req.Items {
		in := req.Items[i]
		if in.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, fmt.Errorf("%w: name required", ErrValidation)
		}
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}

		item := models.OrderItem{
			ProductID:    in.ProductID,
			NameSnapshot: strings.TrimSpace(in.Name),
			UnitPrice:    in.UnitPrice,
			Quantity:     in.Quantity,
		}
		subtotal = subtotal.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		UserID:   userID,
		Status:   models.OrderStatusPending,
		Subtotal: subtotal,
		Shipping: req.Shipping,
		Total:    subtotal.Add(req.Shipping),
		Notes:    req.Notes,
		Items:    items,
	}
	return svc.Repo.CreateOrder(ctx, order)
}

func (svc *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*transport.OrderList, error) {
	offset, limit := pagination.Calculate(page, size)
	orders, total, err := svc.Repo.ListOrders(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	views, err := svc.views(ctx, userID, orders)
	if err != nil {
		return nil, err
	}
	page, size = pagination.Normalize(page, size)
	return &transport.OrderList{Items: views, Total: total, Page: page, Size: size}, nil
}

func (svc *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*transport.OrderView, error) {
	order, err := svc.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		return nil, err
	}
	views, err := svc.views(ctx, userID, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views decorates orders with capacities, returns and the return CTA. Capacity lookup fails open.
func (svc *OrderService) views(ctx context.Context, userID uuid.UUID, orders []models.Order) ([]transport.OrderView, error) {
	l := logging.FromContext(ctx)
	views := make([]transport.OrderView, 0, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	var itemIDs, orderIDs []uuid.UUID
	var allItems []models.OrderItem
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		for _, it := range o.Items {
			itemIDs = append(itemIDs, it.ID)
			allItems = append(allItems, it)
		}
	}

	loaded, capsErr := svc.Repo.ReturnableCaps(ctx, userID, itemIDs)
	caps, degraded := eligibility.CapsOrFull(loaded, capsErr, allItems)
	if degraded {
		l.Warn("returnable_caps_unavailable", "reason", "falling back to purchased quantities", "error", capsErr)
	}

	returns, err := svc.Repo.ListReturnsByOrders(ctx, userID, orderIDs)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[uuid.UUID][]models.Return, len(orders))
	for _, r := range returns {
		byOrder[r.OrderID] = append(byOrder[r.OrderID], r)
	}

	now := svc.now()
	for _, o := range orders {
		rs := byOrder[o.ID]
		if rs == nil {
			rs = []models.Return{}
		}
		ocaps := eligibility.ReleasePending(caps, rs)
		oc := make([]eligibility.Capacity, 0, len(o.Items))
		for _, it := range o.Items {
			c, ok := ocaps[it.ID]
			if !ok {
				c = eligibility.NewCapacity(it.ID, it.Quantity, 0)
			}
			oc = append(oc, c)
		}
		views = append(views, transport.OrderView{
			Order:        o,
			TrackingLink: tracking.Link(firstNonEmpty(o.Carrier, o.CourierName), o.TrackingNumber, o.TrackingURL),
			Capacities:   oc,
			Returns:      rs,
			Aggregate:    eligibility.Aggregate(rs),
			CTA:          eligibility.Evaluate(o, ocaps, rs, now, svc.window()),
		})
	}
	return views, nil
}

// UpdateStatus is the admin status change. Cancelled and delivered orders are final.
func (svc *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req transport.UpdateOrderStatusRequest) (*models.Order, error) {
	status := models.OrderStatus(req.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, req.Status)
	}

	current, err := svc.Repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		return nil, err
	}
	if current.Status == models.OrderStatusCancelled || current.Status == models.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, current.Status)
	}

	return svc.Repo.UpdateOrderStatus(ctx, orderID, repo.OrderStatusUpdate{
		Status:         status,
		Carrier:        req.Carrier,
		CourierName:    req.CourierName,
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		At:             svc.now(),
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
