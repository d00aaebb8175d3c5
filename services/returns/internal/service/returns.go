package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/returns/pkg/blob"
	"github.com/Skotchmaster/returns/pkg/events"
	"github.com/Skotchmaster/returns/pkg/lock"
	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/google/uuid"
)

const (
	DefaultLockTTL           = 2 * time.Minute
	DefaultUploadConcurrency = 3
)

type ReturnService struct {
	Repo   Store
	Drafts draft.Store
	Blobs  blob.Store
	Events events.Publisher
	Locker lock.Locker
	Index  Indexer

	Window            time.Duration
	LockTTL           time.Duration
	UploadConcurrency int
	Now               func() time.Time
}

func (svc *ReturnService) now() time.Time {
	if svc.Now != nil {
		return svc.Now()
	}
	return time.Now().UTC()
}

func (svc *ReturnService) window() time.Duration {
	if svc.Window > 0 {
		return svc.Window
	}
	return eligibility.DefaultWindow
}

type orderState struct {
	order   *models.Order
	caps    map[uuid.UUID]eligibility.Capacity
	returns []models.Return
	cta     eligibility.CTA
}

func (svc *ReturnService) loadOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := svc.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

func (svc *ReturnService) state(ctx context.Context, userID, orderID uuid.UUID) (*orderState, error) {
	order, err := svc.loadOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ID)
	}
	loaded, capsErr := svc.Repo.ReturnableCaps(ctx, userID, ids)
	caps, degraded := eligibility.CapsOrFull(loaded, capsErr, order.Items)
	if degraded {
		logging.FromContext(ctx).Warn("returnable_caps_unavailable",
			"order_id", orderID, "reason", "falling back to purchased quantities", "error", capsErr)
	}

	returns, err := svc.Repo.ListReturnsByOrders(ctx, userID, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}

	caps = eligibility.ReleasePending(caps, returns)
	return &orderState{
		order:   order,
		caps:    caps,
		returns: returns,
		cta:     eligibility.Evaluate(*order, caps, returns, svc.now(), svc.window()),
	}, nil
}

func (svc *ReturnService) ListOrderReturns(ctx context.Context, userID, orderID uuid.UUID) ([]models.Return, error) {
	if _, err := svc.loadOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return svc.Repo.ListReturnsByOrders(ctx, userID, []uuid.UUID{orderID})
}

// StartDraft (re)initializes the draft for an order that passes the return gate.
func (svc *ReturnService) StartDraft(ctx context.Context, userID, orderID uuid.UUID) (*draft.Draft, error) {
	st, err := svc.state(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	d, ok := draft.New(*st.order, st.caps, st.cta)
	if !ok {
		return nil, &IneligibleError{Label: st.cta.Label}
	}
	if err := svc.Drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (svc *ReturnService) GetDraft(ctx context.Context, userID, orderID uuid.UUID) (*draft.Draft, error) {
	d, err := svc.Drafts.Load(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, draft.ErrNoDraft) {
			return nil, ErrNoDraft
		}
		return nil, err
	}
	return d, nil
}

func (svc *ReturnService) mutateDraft(ctx context.Context, userID, orderID uuid.UUID, fn func(d *draft.Draft) error) (*draft.Draft, error) {
	d, err := svc.GetDraft(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		if errors.Is(err, draft.ErrInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}
	if err := svc.Drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (svc *ReturnService) UpdateDraft(ctx context.Context, userID, orderID uuid.UUID, req transport.DraftPatchRequest) (*draft.Draft, error) {
	return svc.mutateDraft(ctx, userID, orderID, func(d *draft.Draft) error {
		if req.Resolution != nil {
			if err := d.SetResolution(models.Resolution(*req.Resolution)); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			d.SetNotes(*req.Notes)
		}
		return nil
	})
}

// UpdateDraftLine applies selection before quantity so a single call can select and size a line.
func (svc *ReturnService) UpdateDraftLine(ctx context.Context, userID, orderID, itemID uuid.UUID, req transport.DraftLinePatchRequest) (*draft.Draft, error) {
	return svc.mutateDraft(ctx, userID, orderID, func(d *draft.Draft) error {
		if req.Selected != nil {
			if err := d.Toggle(itemID, *req.Selected); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			if err := d.SetQuantity(itemID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.ReasonCode != nil {
			if err := d.SetReason(itemID, models.ReasonCode(*req.ReasonCode)); err != nil {
				return err
			}
		}
		if req.ConditionNote != nil {
			if err := d.SetConditionNote(itemID, *req.ConditionNote); err != nil {
				return err
			}
		}
		return nil
	})
}

func (svc *ReturnService) AttachImage(ctx context.Context, userID, orderID, itemID uuid.UUID, name string, data []byte) (*draft.Draft, error) {
	return svc.mutateDraft(ctx, userID, orderID, func(d *draft.Draft) error {
		_, err := d.AttachImage(itemID, name, data)
		return err
	})
}

func (svc *ReturnService) RemoveImage(ctx context.Context, userID, orderID, itemID uuid.UUID, name string) (*draft.Draft, error) {
	return svc.mutateDraft(ctx, userID, orderID, func(d *draft.Draft) error {
		return d.RemoveImage(itemID, name)
	})
}

func (svc *ReturnService) DiscardDraft(ctx context.Context, userID, orderID uuid.UUID) error {
	return svc.Drafts.Delete(ctx, userID, orderID)
}

// Cancel lets the customer withdraw a return that has not been reviewed yet.
func (svc *ReturnService) Cancel(ctx context.Context, userID, returnID uuid.UUID) (*models.Return, error) {
	ret, err := svc.Repo.GetReturn(ctx, returnID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: return", ErrNotFound)
		}
		return nil, err
	}
	if ret.UserID != userID {
		return nil, fmt.Errorf("%w: return", ErrNotFound)
	}
	if ret.Status != models.ReturnRequested || ret.SubmissionState != models.SubmissionComplete {
		return nil, fmt.Errorf("%w: %s return cannot be cancelled", ErrInvalidTransition, ret.Status)
	}

	ev := &models.ReturnEvent{Note: "Cancelled by customer", CreatedBy: &userID, CreatedAt: svc.now()}
	if err := svc.Repo.TransitionReturn(ctx, ret.ID, models.ReturnRequested, models.ReturnCancelled, ev); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: return changed, reload and retry", ErrInvalidTransition)
		}
		return nil, err
	}

	updated, err := svc.Repo.GetReturn(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	svc.announce(ctx, events.TypeReturnCancelled, *updated)
	return updated, nil
}

// announce publishes and indexes a return after its state is committed. Failures are logged only.
func (svc *ReturnService) announce(ctx context.Context, eventType string, ret models.Return) {
	announce(ctx, svc.Events, svc.Index, eventType, ret, svc.now())
}

func announce(ctx context.Context, pub events.Publisher, idx Indexer, eventType string, ret models.Return, at time.Time) {
	l := logging.FromContext(ctx).With("return_id", ret.ID, "rma_code", ret.RMACode)
	if pub != nil {
		err := pub.PublishReturnEvent(ctx, events.ReturnEvent{
			Type:       eventType,
			ReturnID:   ret.ID,
			RMACode:    ret.RMACode,
			OrderID:    ret.OrderID,
			UserID:     ret.UserID,
			Status:     string(ret.Status),
			OccurredAt: at,
		})
		if err != nil {
			l.Warn("publish_event_error", "type", eventType, "error", err)
		}
	}
	if idx != nil {
		if err := idx.IndexReturn(ctx, ret); err != nil {
			l.Warn("index_return_error", "error", err)
		}
	}
}
