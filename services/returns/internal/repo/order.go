package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrder returns ErrNotFound when the order does not belong to userID.
func (r *GormRepo) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *GormRepo) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

type OrderStatusUpdate struct {
	Status         models.OrderStatus
	Carrier        *string
	CourierName    *string
	TrackingNumber *string
	TrackingURL    *string
	At             time.Time
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, upd OrderStatusUpdate) (*models.Order, error) {
	fields := map[string]any{"status": upd.Status}
	switch upd.Status {
	case models.OrderStatusShipped:
		fields["shipped_at"] = upd.At
	case models.OrderStatusDelivered:
		fields["delivered_at"] = upd.At
	}
	if upd.Carrier != nil {
		fields["carrier"] = *upd.Carrier
	}
	if upd.CourierName != nil {
		fields["courier_name"] = *upd.CourierName
	}
	if upd.TrackingNumber != nil {
		fields["tracking_number"] = *upd.TrackingNumber
	}
	if upd.TrackingURL != nil {
		fields["tracking_url"] = *upd.TrackingURL
	}

	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetOrderByID(ctx, orderID)
}

func (r *GormRepo) OrderItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.OrderItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.OrderItem
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}
