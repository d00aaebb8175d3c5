package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Skotchmaster/returns/pkg/events"
	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/pkg/pagination"
	"github.com/Skotchmaster/returns/services/returns/internal/export"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/tracking"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxSearchHits bounds how many search hits feed the SQL listing.
const maxSearchHits = 1000

var adminTransitions = map[models.ReturnStatus][]models.ReturnStatus{
	models.ReturnRequested:          {models.ReturnApproved, models.ReturnRejected},
	models.ReturnApproved:           {models.ReturnInTransit},
	models.ReturnInTransit:          {models.ReturnReceived},
	models.ReturnReceived:           {models.ReturnRefunded, models.ReturnReplacementShipped},
	models.ReturnReplacementShipped: {models.ReturnReplaced},
}

func CanTransition(from, to models.ReturnStatus) bool {
	return slices.Contains(adminTransitions[from], to)
}

type AdminService struct {
	Repo   Store
	Events events.Publisher
	Index  Indexer
	Now    func() time.Time
}

func (svc *AdminService) now() time.Time {
	if svc.Now != nil {
		return svc.Now()
	}
	return time.Now().UTC()
}

type ListQuery struct {
	Status string
	Query  string
	Sort   string
	Order  string
	Page   int
	Size   int
	// IncludePending also lists submissions that stopped before completing.
	IncludePending bool
}

func (svc *AdminService) filter(ctx context.Context, q ListQuery) (repo.ReturnFilter, error) {
	f := repo.ReturnFilter{SortField: q.Sort, Desc: !strings.EqualFold(q.Order, "asc"), IncludePending: q.IncludePending}
	if q.Status != "" && q.Status != "all" {
		st := models.ReturnStatus(q.Status)
		if !st.Valid() {
			return f, fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
		}
		f.Status = st
	}

	text := strings.TrimSpace(q.Query)
	if text == "" {
		return f, nil
	}
	// Pending submissions are indexed only once they complete.
	if svc.Index != nil && !q.IncludePending {
		_, ids, err := svc.Index.Search(ctx, text, 0, maxSearchHits)
		if err == nil {
			if ids == nil {
				ids = []uuid.UUID{}
			}
			f.IDs = ids
			return f, nil
		}
		logging.FromContext(ctx).Warn("search_error", "reason", "falling back to sql", "error", err)
	}
	f.Query = text
	return f, nil
}

// ListReturns filters by status and free text. Text goes to the search index when one is configured.
func (svc *AdminService) ListReturns(ctx context.Context, q ListQuery) (*transport.ReturnList, error) {
	f, err := svc.filter(ctx, q)
	if err != nil {
		return nil, err
	}
	f.Offset, f.Limit = pagination.Calculate(q.Page, q.Size)

	items, total, err := svc.Repo.ListReturns(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Return{}
	}
	page, size := pagination.Normalize(q.Page, q.Size)
	return &transport.ReturnList{Items: items, Total: total, Page: page, Size: size}, nil
}

func (svc *AdminService) getReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	ret, err := svc.Repo.GetReturn(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: return", ErrNotFound)
		}
		return nil, err
	}
	return ret, nil
}

func (svc *AdminService) TransitionStatus(ctx context.Context, adminID, returnID uuid.UUID, req transport.ReturnStatusRequest) (*models.Return, error) {
	to := models.ReturnStatus(req.Status)
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	ret, err := svc.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.SubmissionState != models.SubmissionComplete {
		return nil, fmt.Errorf("%w: submission not complete", ErrInvalidTransition)
	}
	if !CanTransition(ret.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ret.Status, to)
	}

	ev := &models.ReturnEvent{Note: req.Note, CreatedBy: &adminID, CreatedAt: svc.now()}
	if err := svc.Repo.TransitionReturn(ctx, ret.ID, ret.Status, to, ev); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: return changed, reload and retry", ErrInvalidTransition)
		}
		return nil, err
	}

	updated, err := svc.getReturn(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	announce(ctx, svc.Events, svc.Index, events.TypeReturnStatusChanged, *updated, svc.now())
	return updated, nil
}

func (svc *AdminService) UpdateNotes(ctx context.Context, returnID uuid.UUID, notes string) (*models.Return, error) {
	if err := svc.Repo.UpdateAdminNotes(ctx, returnID, notes); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: return", ErrNotFound)
		}
		return nil, err
	}
	ret, err := svc.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if svc.Index != nil {
		if err := svc.Index.IndexReturn(ctx, *ret); err != nil {
			logging.FromContext(ctx).Warn("index_return_error", "return_id", ret.ID, "error", err)
		}
	}
	return ret, nil
}

func (svc *AdminService) Events(ctx context.Context, returnID uuid.UUID) ([]models.ReturnEvent, error) {
	if _, err := svc.getReturn(ctx, returnID); err != nil {
		return nil, err
	}
	evs, err := svc.Repo.ListEvents(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if evs == nil {
		evs = []models.ReturnEvent{}
	}
	return evs, nil
}

// CreateReplacement ships replacement units for a received return. Quantities are capped by what was
// returned; an empty item list replaces every returned unit.
func (svc *AdminService) CreateReplacement(ctx context.Context, adminID, returnID uuid.UUID, req transport.ReplacementRequest) (*models.Order, error) {
	if req.Shipping.IsNegative() {
		return nil, fmt.Errorf("%w: shipping must be >= 0", ErrValidation)
	}

	ret, err := svc.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Status != models.ReturnReceived {
		return nil, fmt.Errorf("%w: replacement needs a received return, got %s", ErrInvalidTransition, ret.Status)
	}

	original, err := svc.Repo.GetOrderByID(ctx, ret.OrderID)
	if err != nil {
		return nil, err
	}
	byItem := make(map[uuid.UUID]models.OrderItem, len(original.Items))
	for _, it := range original.Items {
		byItem[it.ID] = it
	}

	wanted := make(map[uuid.UUID]int, len(ret.Items))
	if len(req.Items) == 0 {
		for _, ri := range ret.Items {
			wanted[ri.ID] = ri.Quantity
		}
	} else {
		for _, in := range req.Items {
			wanted[in.ReturnItemID] += in.Quantity
		}
	}

	subtotal := decimal.Zero
	var items []models.OrderItem
	for _, ri := range ret.Items {
		qty := min(max(wanted[ri.ID], 0), ri.Quantity)
		if qty == 0 {
			continue
		}
		src, ok := byItem[ri.OrderItemID]
		if !ok {
			return nil, fmt.Errorf("order item %s missing from order %s", ri.OrderItemID, original.ID)
		}
		it := models.OrderItem{
			ProductID:    src.ProductID,
			NameSnapshot: src.NameSnapshot,
			UnitPrice:    src.UnitPrice,
			Quantity:     qty,
		}
		subtotal = subtotal.Add(it.LineTotal())
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: select at least one item to replace", ErrValidation)
	}

	note := req.Note
	if note == "" {
		note = "Replacement for RMA " + ret.RMACode
	}
	link := tracking.Link(req.Carrier, req.AWB, req.TrackingURL)
	now := svc.now()

	order := &models.Order{
		UserID:         ret.UserID,
		Status:         models.OrderStatusProcessing,
		Subtotal:       subtotal,
		Shipping:       req.Shipping,
		Total:          subtotal.Add(req.Shipping),
		Carrier:        req.Carrier,
		TrackingNumber: req.AWB,
		TrackingURL:    link,
		Notes:          note,
		Items:          items,
	}
	if link != "" || req.AWB != "" {
		order.ShippedAt = &now
	}

	err = svc.Repo.CreateReplacement(ctx, ret, order, repo.ReplacementShipment{
		Carrier:     req.Carrier,
		AWB:         req.AWB,
		TrackingURL: link,
		Note:        note,
		At:          now,
		CreatedBy:   &adminID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: return changed, reload and retry", ErrInvalidTransition)
		}
		return nil, err
	}

	if updated, err := svc.getReturn(ctx, ret.ID); err == nil {
		announce(ctx, svc.Events, svc.Index, events.TypeReplacementShipped, *updated, now)
	}
	return order, nil
}

// Export writes every return matching q, ignoring paging.
func (svc *AdminService) Export(ctx context.Context, q ListQuery, w io.Writer) error {
	f, err := svc.filter(ctx, q)
	if err != nil {
		return err
	}
	rets, _, err := svc.Repo.ListReturns(ctx, f)
	if err != nil {
		return err
	}

	var itemIDs []uuid.UUID
	for _, r := range rets {
		for _, it := range r.Items {
			itemIDs = append(itemIDs, it.OrderItemID)
		}
	}
	orderItems, err := svc.Repo.OrderItemsByIDs(ctx, itemIDs)
	if err != nil {
		return err
	}
	price := make(map[uuid.UUID]decimal.Decimal, len(orderItems))
	for _, oi := range orderItems {
		price[oi.ID] = oi.UnitPrice
	}

	rows := make([]export.Row, 0, len(rets))
	for _, r := range rets {
		amount := decimal.Zero
		for _, it := range r.Items {
			amount = amount.Add(price[it.OrderItemID].Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		rows = append(rows, export.Row{Return: r, Amount: amount})
	}
	return export.WriteXLSX(w, rows)
}
