// Package eligibility decides whether an order can start a return and how many units of each item remain returnable.
// Everything here is pure: the same inputs always produce the same answer.
package eligibility

import (
	"fmt"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
)

const DefaultWindow = 7 * 24 * time.Hour

type Capacity struct {
	OrderItemID     uuid.UUID `json:"order_item_id"`
	Purchased       int       `json:"purchased"`
	AlreadyReturned int       `json:"already_returned"`
	Remaining       int       `json:"remaining"`
}

func NewCapacity(itemID uuid.UUID, purchased, alreadyReturned int) Capacity {
	return Capacity{
		OrderItemID:     itemID,
		Purchased:       purchased,
		AlreadyReturned: alreadyReturned,
		Remaining:       max(0, purchased-alreadyReturned),
	}
}

// CapsOrFull falls back to the full purchased quantity of every item when caps could not be loaded.
// degraded reports that the fallback was taken so the caller can log it.
func CapsOrFull(caps map[uuid.UUID]Capacity, err error, items []models.OrderItem) (out map[uuid.UUID]Capacity, degraded bool) {
	if err == nil && caps != nil {
		return caps, false
	}
	out = make(map[uuid.UUID]Capacity, len(items))
	for _, it := range items {
		out[it.ID] = NewCapacity(it.ID, it.Quantity, 0)
	}
	return out, true
}

// ReleasePending hands back the units held by lines of pending submissions. Those submissions belong to the
// order's owner and are resumed, lines replaced, by the next submit, so the customer may pick the units again.
// caps is not modified.
func ReleasePending(caps map[uuid.UUID]Capacity, returns []models.Return) map[uuid.UUID]Capacity {
	out := make(map[uuid.UUID]Capacity, len(caps))
	for id, c := range caps {
		out[id] = c
	}
	for _, r := range returns {
		if r.SubmissionState != models.SubmissionPending {
			continue
		}
		for _, it := range r.Items {
			c, ok := out[it.OrderItemID]
			if !ok {
				continue
			}
			out[it.OrderItemID] = NewCapacity(c.OrderItemID, c.Purchased, max(0, c.AlreadyReturned-it.Quantity))
		}
	}
	return out
}

// RemainingFor looks item up in caps and treats a missing entry as fully returnable.
func RemainingFor(caps map[uuid.UUID]Capacity, item models.OrderItem) int {
	if c, ok := caps[item.ID]; ok {
		return c.Remaining
	}
	return item.Quantity
}

func RemainingForOrder(caps map[uuid.UUID]Capacity, items []models.OrderItem) int {
	total := 0
	for _, it := range items {
		total += max(0, RemainingFor(caps, it))
	}
	return total
}

func WithinWindow(deliveredAt *time.Time, now time.Time, window time.Duration) bool {
	if deliveredAt == nil {
		return false
	}
	return now.Sub(*deliveredAt) <= window
}

type AggregateStatus string

const (
	AggregateNone         AggregateStatus = "none"
	AggregateOpen         AggregateStatus = "open"
	AggregateCompleted    AggregateStatus = "completed"
	AggregateRejectedOnly AggregateStatus = "rejected_only"
)

// Aggregate summarizes the submitted returns of one order: completed beats open beats rejected_only.
// Pending submissions are ignored; cancelled returns count as rejected.
func Aggregate(returns []models.Return) AggregateStatus {
	var seen, open, completed bool
	for _, r := range returns {
		if r.SubmissionState != models.SubmissionComplete {
			continue
		}
		seen = true
		switch {
		case r.Status.Completed():
			completed = true
		case r.Status.Open():
			open = true
		}
	}
	switch {
	case !seen:
		return AggregateNone
	case completed:
		return AggregateCompleted
	case open:
		return AggregateOpen
	default:
		return AggregateRejectedOnly
	}
}

func hasOpen(returns []models.Return) bool {
	for _, r := range returns {
		if r.SubmissionState == models.SubmissionComplete && r.Status.Open() {
			return true
		}
	}
	return false
}

type Variant string

const (
	VariantDisabled   Variant = "disabled"
	VariantInProgress Variant = "in_progress"
	VariantCompleted  Variant = "completed"
	VariantActive     Variant = "active"
)

const (
	LabelWindowClosed    = "Return Window Closed"
	LabelAlreadyReturned = "Already Returned"
	LabelInProgress      = "Return In Progress"
	LabelCompleted       = "Return Completed"
	LabelEligible        = "Return or Replace Items"
)

type CTA struct {
	Disabled bool    `json:"disabled"`
	Label    string  `json:"label"`
	Tooltip  string  `json:"tooltip"`
	Variant  Variant `json:"variant"`
}

// Evaluate applies the return gate in order: window, remaining quantity, open return, completed return.
func Evaluate(order models.Order, caps map[uuid.UUID]Capacity, returns []models.Return, now time.Time, window time.Duration) CTA {
	days := int(window / (24 * time.Hour))

	if !WithinWindow(order.DeliveredAt, now, window) {
		return CTA{Disabled: true, Label: LabelWindowClosed, Tooltip: fmt.Sprintf("Returns allowed within %d days of delivery", days), Variant: VariantDisabled}
	}
	if RemainingForOrder(caps, order.Items) <= 0 {
		return CTA{Disabled: true, Label: LabelAlreadyReturned, Tooltip: "All items are already returned", Variant: VariantDisabled}
	}
	if hasOpen(returns) {
		return CTA{Disabled: true, Label: LabelInProgress, Tooltip: "Your return request is being processed", Variant: VariantInProgress}
	}
	if Aggregate(returns) == AggregateCompleted {
		return CTA{Disabled: true, Label: LabelCompleted, Tooltip: "A return has already been completed for this order", Variant: VariantCompleted}
	}
	return CTA{Disabled: false, Label: LabelEligible, Tooltip: fmt.Sprintf("Eligible within %d days of delivery", days), Variant: VariantActive}
}
