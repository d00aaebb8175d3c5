package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const capsQuery = `
SELECT oi.id AS order_item_id,
       oi.quantity AS purchased,
       COALESCE(SUM(CASE WHEN r.id IS NULL THEN 0 ELSE ri.quantity END), 0) AS already_returned
FROM order_items oi
JOIN orders o ON o.id = oi.order_id AND o.user_id = ?
LEFT JOIN return_items ri ON ri.order_item_id = oi.id
LEFT JOIN returns r ON r.id = ri.return_id AND r.status NOT IN ? AND r.id <> ?
WHERE oi.id IN ?
GROUP BY oi.id, oi.quantity`

type capRow struct {
	OrderItemID     uuid.UUID
	Purchased       int
	AlreadyReturned int
}

func releasing() []string {
	out := make([]string, 0, len(models.ReturnStatusesReleasingCapacity))
	for _, s := range models.ReturnStatusesReleasingCapacity {
		out = append(out, string(s))
	}
	return out
}

// ReturnableCaps counts every line of a return that is not rejected or cancelled,
// whatever its submission state. Items the user does not own are absent from the result.
func (r *GormRepo) ReturnableCaps(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]eligibility.Capacity, error) {
	return returnableCaps(r.DB.WithContext(ctx), userID, itemIDs, uuid.Nil)
}

func returnableCaps(db *gorm.DB, userID uuid.UUID, itemIDs []uuid.UUID, excludeReturn uuid.UUID) (map[uuid.UUID]eligibility.Capacity, error) {
	caps := make(map[uuid.UUID]eligibility.Capacity, len(itemIDs))
	if len(itemIDs) == 0 {
		return caps, nil
	}

	var rows []capRow
	if err := db.Raw(capsQuery, userID, releasing(), excludeReturn, itemIDs).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("returnable caps: %w", err)
	}
	for _, row := range rows {
		caps[row.OrderItemID] = eligibility.NewCapacity(row.OrderItemID, row.Purchased, row.AlreadyReturned)
	}
	return caps, nil
}

// LineBuilder turns authoritative capacities into the lines to insert.
type LineBuilder func(caps map[uuid.UUID]eligibility.Capacity) ([]models.ReturnItem, error)

// ReplaceReturnLines is the atomic capacity check of a submission. Inside one transaction it locks
// the order's item rows, drops any lines left on ret by an earlier attempt, recomputes capacity and
// inserts whatever build returns. Concurrent submissions for the same order serialize on the row locks.
func (r *GormRepo) ReplaceReturnLines(ctx context.Context, ret *models.Return, build LineBuilder) ([]models.ReturnItem, error) {
	var inserted []models.ReturnItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", ret.OrderID).
			Order("id").
			Find(&items).Error; err != nil {
			return fmt.Errorf("lock order items: %w", err)
		}

		if err := tx.Where("return_id = ?", ret.ID).Delete(&models.ReturnItem{}).Error; err != nil {
			return fmt.Errorf("clear previous lines: %w", err)
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		caps, err := returnableCaps(tx, ret.UserID, ids, ret.ID)
		if err != nil {
			return err
		}

		lines, err := build(caps)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].ReturnID = ret.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("insert return lines: %w", err)
		}
		inserted = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}
