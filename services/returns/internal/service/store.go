package service

import (
	"context"

	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/google/uuid"
)

// Store is the relational store as the services see it. *repo.GormRepo implements it.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, upd repo.OrderStatusUpdate) (*models.Order, error)
	OrderItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.OrderItem, error)

	ReturnableCaps(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]eligibility.Capacity, error)
	ReplaceReturnLines(ctx context.Context, ret *models.Return, build repo.LineBuilder) ([]models.ReturnItem, error)

	FindPendingReturn(ctx context.Context, userID, orderID uuid.UUID) (*models.Return, error)
	CreateReturn(ctx context.Context, ret *models.Return) error
	UpdatePendingHeader(ctx context.Context, ret *models.Return) error
	FindReturnItem(ctx context.Context, returnID, orderItemID uuid.UUID) (*models.ReturnItem, error)
	SetEvidenceImages(ctx context.Context, itemID uuid.UUID, urls []string) error
	CompleteSubmission(ctx context.Context, returnID uuid.UUID, event *models.ReturnEvent) error

	ListReturnsByOrders(ctx context.Context, userID uuid.UUID, orderIDs []uuid.UUID) ([]models.Return, error)
	GetReturn(ctx context.Context, id uuid.UUID) (*models.Return, error)
	TransitionReturn(ctx context.Context, id uuid.UUID, from, to models.ReturnStatus, event *models.ReturnEvent) error
	UpdateAdminNotes(ctx context.Context, id uuid.UUID, notes string) error
	ListEvents(ctx context.Context, returnID uuid.UUID) ([]models.ReturnEvent, error)
	ListReturns(ctx context.Context, f repo.ReturnFilter) ([]models.Return, int64, error)
	CreateReplacement(ctx context.Context, ret *models.Return, order *models.Order, ship repo.ReplacementShipment) error
}

var _ Store = (*repo.GormRepo)(nil)

// Indexer is the full-text index of returns. A nil Indexer disables indexing and search.
type Indexer interface {
	IndexReturn(ctx context.Context, ret models.Return) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}
