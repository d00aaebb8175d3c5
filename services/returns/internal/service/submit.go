package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/returns/pkg/blob"
	"github.com/Skotchmaster/returns/pkg/events"
	"github.com/Skotchmaster/returns/pkg/lock"
	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func submitLockKey(userID, orderID uuid.UUID) string {
	return fmt.Sprintf("returns:submit:%s:%s", userID, orderID)
}

func NewRMACode(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RMA-%s-%s", at.Format("20060102"), suffix)
}

// Submit persists the stored draft as a return:
//  1. header in pending state, or the pending header of an earlier failed attempt
//  2. lines clamped to authoritative capacity, inside one transaction
//  3. evidence uploads per line
//  4. evidence URLs patched onto each line
//  5. header marked complete
//
// Any failure stops the sequence and is returned as is. The header stays pending and the draft is
// kept, so calling Submit again resumes the same header.
func (svc *ReturnService) Submit(ctx context.Context, userID, orderID uuid.UUID) (*models.Return, error) {
	l := logging.FromContext(ctx).With("op", "returns.submit", "order_id", orderID)

	d, err := svc.GetDraft(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !d.CanSubmit() {
		return nil, ErrNothingSelected
	}

	locker := svc.Locker
	if locker == nil {
		locker = lock.Noop{}
	}
	ttl := svc.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	release, err := locker.Acquire(ctx, submitLockKey(userID, orderID), ttl)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, ErrSubmissionInProgress
		}
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			l.Warn("release_lock_error", "error", err)
		}
	}()

	order, err := svc.loadOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	returns, err := svc.Repo.ListReturnsByOrders(ctx, userID, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	// Capacity is enforced by the transactional insert below, so only window and return status gate here.
	if cta := eligibility.Evaluate(*order, nil, returns, svc.now(), svc.window()); cta.Disabled {
		return nil, &IneligibleError{Label: cta.Label}
	}

	ret, err := svc.header(ctx, userID, orderID, d)
	if err != nil {
		return nil, err
	}
	l = l.With("return_id", ret.ID, "rma_code", ret.RMACode)

	lines, err := svc.Repo.ReplaceReturnLines(ctx, ret, clampLines(d))
	if err != nil {
		l.Warn("submit_lines_error", "error", err)
		return nil, err
	}

	inserted := make(map[uuid.UUID]bool, len(lines))
	for _, li := range lines {
		inserted[li.OrderItemID] = true
	}

	for _, dl := range d.Lines {
		if !inserted[dl.OrderItemID] || len(dl.Images) == 0 {
			continue
		}
		item, err := svc.Repo.FindReturnItem(ctx, ret.ID, dl.OrderItemID)
		if err != nil {
			l.Warn("submit_lookup_line_error", "order_item_id", dl.OrderItemID, "error", err)
			return nil, linesReplaced(fmt.Errorf("find return line: %w", err))
		}
		urls, err := svc.uploadLine(ctx, userID, ret.RMACode, item.ID, dl.Images)
		if err != nil {
			l.Warn("submit_upload_error", "return_item_id", item.ID, "error", err)
			return nil, err
		}
		if len(urls) > 0 {
			if err := svc.Repo.SetEvidenceImages(ctx, item.ID, urls); err != nil {
				l.Warn("submit_patch_images_error", "return_item_id", item.ID, "error", err)
				return nil, linesReplaced(fmt.Errorf("attach evidence: %w", err))
			}
		}
	}

	ev := &models.ReturnEvent{Status: models.ReturnRequested, Note: "Return requested", CreatedBy: &userID, CreatedAt: svc.now()}
	if err := svc.Repo.CompleteSubmission(ctx, ret.ID, ev); err != nil {
		return nil, linesReplaced(fmt.Errorf("complete submission: %w", err))
	}

	if err := svc.Drafts.Delete(ctx, userID, orderID); err != nil {
		l.Warn("delete_draft_error", "error", err)
	}

	full, err := svc.Repo.GetReturn(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	svc.announce(ctx, events.TypeReturnRequested, *full)
	l.Info("return_submitted", "lines", len(full.Items))
	return full, nil
}

// linesReplaced reports a header whose lines vanished or whose state moved after this attempt wrote them:
// another submit for the same order resumed it. Only possible when the submit lock is a no-op.
func linesReplaced(err error) error {
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrStaleStatus) {
		return fmt.Errorf("%w: %v", ErrSubmissionInProgress, err)
	}
	return err
}

func (svc *ReturnService) header(ctx context.Context, userID, orderID uuid.UUID, d *draft.Draft) (*models.Return, error) {
	ret, err := svc.Repo.FindPendingReturn(ctx, userID, orderID)
	switch {
	case err == nil:
		ret.Resolution = d.Resolution
		ret.Notes = d.Notes
		if err := svc.Repo.UpdatePendingHeader(ctx, ret); err != nil {
			return nil, fmt.Errorf("resume return: %w", err)
		}
		logging.FromContext(ctx).Info("submission_resumed", "return_id", ret.ID)
		return ret, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	ret = &models.Return{
		RMACode:         NewRMACode(svc.now()),
		UserID:          userID,
		OrderID:         orderID,
		Resolution:      d.Resolution,
		Status:          models.ReturnRequested,
		SubmissionState: models.SubmissionPending,
		Notes:           d.Notes,
	}
	if err := svc.Repo.CreateReturn(ctx, ret); err != nil {
		return nil, fmt.Errorf("create return: %w", err)
	}
	return ret, nil
}

// clampLines re-clamps every selected line to the capacity read inside the transaction.
func clampLines(d *draft.Draft) repo.LineBuilder {
	return func(caps map[uuid.UUID]eligibility.Capacity) ([]models.ReturnItem, error) {
		var out []models.ReturnItem
		for _, dl := range d.Selected() {
			c, ok := caps[dl.OrderItemID]
			if !ok {
				continue
			}
			qty := min(dl.Quantity, c.Remaining)
			if qty <= 0 {
				continue
			}
			out = append(out, models.ReturnItem{
				OrderItemID:    dl.OrderItemID,
				ProductID:      dl.ProductID,
				Quantity:       qty,
				ReasonCode:     dl.Reason,
				ConditionNote:  dl.ConditionNote,
				EvidenceImages: models.ImageURLs{},
			})
		}
		if len(out) == 0 {
			return nil, ErrNothingSelected
		}
		return out, nil
	}
}

// uploadLine stores one line's attachments under <user>/<rma>/<line>/<nanos>_<name>. URLs keep attachment order.
func (svc *ReturnService) uploadLine(ctx context.Context, userID uuid.UUID, rma string, itemID uuid.UUID, images []draft.Attachment) ([]string, error) {
	limit := svc.UploadConcurrency
	if limit <= 0 {
		limit = DefaultUploadConcurrency
	}
	base := svc.now().UnixNano()
	urls := make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, img := range images {
		key := fmt.Sprintf("%s/%s/%s/%d_%s", userID, rma, itemID, base+int64(i), blob.SanitizeName(img.Name))
		g.Go(func() error {
			url, err := svc.Blobs.Put(gctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
