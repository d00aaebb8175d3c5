package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FindPendingReturn returns the newest unfinished submission for the order, or ErrNotFound.
func (r *GormRepo) FindPendingReturn(ctx context.Context, userID, orderID uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND order_id = ? AND submission_state = ?", userID, orderID, models.SubmissionPending).
		Order("created_at DESC").
		First(&ret).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

func (r *GormRepo) CreateReturn(ctx context.Context, ret *models.Return) error {
	return r.DB.WithContext(ctx).Omit("Items").Create(ret).Error
}

// UpdatePendingHeader refreshes resolution and notes of a resumed submission.
func (r *GormRepo) UpdatePendingHeader(ctx context.Context, ret *models.Return) error {
	return r.DB.WithContext(ctx).Model(&models.Return{}).
		Where("id = ? AND submission_state = ?", ret.ID, models.SubmissionPending).
		Updates(map[string]any{"resolution": ret.Resolution, "notes": ret.Notes}).Error
}

// FindReturnItem resolves a line id by its composite key.
func (r *GormRepo) FindReturnItem(ctx context.Context, returnID, orderItemID uuid.UUID) (*models.ReturnItem, error) {
	var item models.ReturnItem
	err := r.DB.WithContext(ctx).
		Where("return_id = ? AND order_item_id = ?", returnID, orderItemID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *GormRepo) SetEvidenceImages(ctx context.Context, itemID uuid.UUID, urls []string) error {
	res := r.DB.WithContext(ctx).Model(&models.ReturnItem{}).
		Where("id = ?", itemID).
		Update("evidence_images", models.ImageURLs(urls))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteSubmission flips the header to complete and appends the first timeline entry.
func (r *GormRepo) CompleteSubmission(ctx context.Context, returnID uuid.UUID, event *models.ReturnEvent) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Return{}).
			Where("id = ? AND submission_state = ?", returnID, models.SubmissionPending).
			Update("submission_state", models.SubmissionComplete)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		event.ReturnID = returnID
		return tx.Create(event).Error
	})
}

func (r *GormRepo) ListReturnsByOrders(ctx context.Context, userID uuid.UUID, orderIDs []uuid.UUID) ([]models.Return, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var out []models.Return
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND order_id IN ?", userID, orderIDs).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *GormRepo) GetReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	if err := r.DB.WithContext(ctx).Preload("Items").First(&ret, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

// TransitionReturn moves a return from one status to another. The update is conditional on the
// current status so two admins cannot both apply a transition from the same state.
func (r *GormRepo) TransitionReturn(ctx context.Context, id uuid.UUID, from, to models.ReturnStatus, event *models.ReturnEvent) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Return{}).
			Where("id = ? AND status = ? AND submission_state = ?", id, from, models.SubmissionComplete).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		event.ReturnID = id
		event.Status = to
		return tx.Create(event).Error
	})
}

func (r *GormRepo) UpdateAdminNotes(ctx context.Context, id uuid.UUID, notes string) error {
	res := r.DB.WithContext(ctx).Model(&models.Return{}).Where("id = ?", id).Update("admin_notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) ListEvents(ctx context.Context, returnID uuid.UUID) ([]models.ReturnEvent, error) {
	var out []models.ReturnEvent
	err := r.DB.WithContext(ctx).Where("return_id = ?", returnID).Order("created_at ASC").Find(&out).Error
	return out, err
}

type ReturnFilter struct {
	Status         models.ReturnStatus
	Query          string
	IDs            []uuid.UUID
	SortField      string
	Desc           bool
	Limit          int
	Offset         int
	IncludePending bool
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"status":     "status",
	"rma_code":   "rma_code",
	"updated_at": "updated_at",
}

// ListReturns serves the admin listing. IDs, when set, restrict the result to a search hit list.
func (r *GormRepo) ListReturns(ctx context.Context, f ReturnFilter) ([]models.Return, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Return{})
	if !f.IncludePending {
		q = q.Where("submission_state = ?", models.SubmissionComplete)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return nil, 0, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(rma_code) LIKE ? OR LOWER(notes) LIKE ? OR LOWER(admin_notes) LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortField]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var out []models.Return
	q = q.Preload("Items").Order(fmt.Sprintf("%s %s", col, dir))
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type ReplacementShipment struct {
	Carrier     string
	AWB         string
	TrackingURL string
	Note        string
	At          time.Time
	CreatedBy   *uuid.UUID
}

// CreateReplacement writes the replacement order, links it to the return and moves the return
// from received to replacement_shipped, all in one transaction.
func (r *GormRepo) CreateReplacement(ctx context.Context, ret *models.Return, order *models.Order, ship ReplacementShipment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create replacement order: %w", err)
		}

		res := tx.Model(&models.Return{}).
			Where("id = ? AND status = ?", ret.ID, models.ReturnReceived).
			Updates(map[string]any{
				"status":                   models.ReturnReplacementShipped,
				"replacement_order_id":     order.ID,
				"replacement_carrier":      ship.Carrier,
				"replacement_awb":          ship.AWB,
				"replacement_tracking_url": ship.TrackingURL,
				"replacement_shipped_at":   ship.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		return tx.Create(&models.ReturnEvent{
			ReturnID:  ret.ID,
			Status:    models.ReturnReplacementShipped,
			Note:      ship.Note,
			CreatedBy: ship.CreatedBy,
			CreatedAt: ship.At,
		}).Error
	})
}
