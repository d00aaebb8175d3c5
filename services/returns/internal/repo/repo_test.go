package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingHeader(t *testing.T, r *repo.GormRepo, o *models.Order) *models.Return {
	t.Helper()
	ret := &models.Return{
		RMACode:         "RMA-" + uuid.NewString()[:13],
		UserID:          o.UserID,
		OrderID:         o.ID,
		Resolution:      models.ResolutionRefund,
		Status:          models.ReturnRequested,
		SubmissionState: models.SubmissionPending,
	}
	require.NoError(t, r.CreateReturn(context.Background(), ret))
	return ret
}

func want(o *models.Order, qty int) repo.LineBuilder {
	return func(caps map[uuid.UUID]eligibility.Capacity) ([]models.ReturnItem, error) {
		it := o.Items[0]
		q := min(qty, caps[it.ID].Remaining)
		if q <= 0 {
			return nil, nil
		}
		return []models.ReturnItem{{OrderItemID: it.ID, ProductID: it.ProductID, Quantity: q, ReasonCode: models.ReasonDamaged}}, nil
	}
}

func TestReturnableCaps(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	user := uuid.New()

	o := testutil.SeedOrder(t, r, user, time.Hour,
		testutil.Item{Name: "Mala", Qty: 3, Price: "499"},
		testutil.Item{Name: "Yantra", Qty: 2, Price: "1200.50"},
	)
	first, second := o.Items[0].ID, o.Items[1].ID

	testutil.SeedReturn(t, r, o, models.ReturnRequested, map[uuid.UUID]int{first: 1})
	testutil.SeedReturn(t, r, o, models.ReturnRefunded, map[uuid.UUID]int{first: 1, second: 2})
	testutil.SeedReturn(t, r, o, models.ReturnRejected, map[uuid.UUID]int{first: 1})
	testutil.SeedReturn(t, r, o, models.ReturnCancelled, map[uuid.UUID]int{second: 1})

	caps, err := r.ReturnableCaps(ctx, user, []uuid.UUID{first, second})
	require.NoError(t, err)

	assert.Equal(t, eligibility.Capacity{OrderItemID: first, Purchased: 3, AlreadyReturned: 2, Remaining: 1}, caps[first])
	assert.Equal(t, eligibility.Capacity{OrderItemID: second, Purchased: 2, AlreadyReturned: 2, Remaining: 0}, caps[second])
}

func TestReturnableCaps_OwnerFilter(t *testing.T) {
	r := testutil.NewRepo(t)
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 1, Price: "10"})

	caps, err := r.ReturnableCaps(context.Background(), uuid.New(), []uuid.UUID{o.Items[0].ID})
	require.NoError(t, err)
	assert.Empty(t, caps)
}

func TestReplaceReturnLines_ClampsToCapacity(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 3, Price: "499"})

	firstRet := pendingHeader(t, r, o)
	lines, err := r.ReplaceReturnLines(ctx, firstRet, want(o, 2))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	secondRet := pendingHeader(t, r, o)
	lines, err = r.ReplaceReturnLines(ctx, secondRet, want(o, 2))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestReplaceReturnLines_ResumeReplacesOwnLines(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 3, Price: "499"})

	ret := pendingHeader(t, r, o)
	_, err := r.ReplaceReturnLines(ctx, ret, want(o, 3))
	require.NoError(t, err)

	// a retry sees its own earlier lines as free capacity
	lines, err := r.ReplaceReturnLines(ctx, ret, want(o, 3))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	var count int64
	require.NoError(t, r.DB.Model(&models.ReturnItem{}).Where("return_id = ?", ret.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestReplaceReturnLines_ConcurrentSubmissionsNeverOverReturn(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	user := uuid.New()
	o := testutil.SeedOrder(t, r, user, time.Hour, testutil.Item{Name: "Mala", Qty: 3, Price: "499"})

	headers := make([]*models.Return, 4)
	for i := range headers {
		headers[i] = pendingHeader(t, r, o)
	}

	var wg sync.WaitGroup
	for _, h := range headers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ReplaceReturnLines(ctx, h, want(o, 2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	caps, err := r.ReturnableCaps(ctx, user, []uuid.UUID{o.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 3, caps[o.Items[0].ID].AlreadyReturned)
	assert.Equal(t, 0, caps[o.Items[0].ID].Remaining)
}

func TestFindReturnItemAndEvidence(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 3, Price: "499"})

	ret := pendingHeader(t, r, o)
	_, err := r.ReplaceReturnLines(ctx, ret, want(o, 1))
	require.NoError(t, err)

	item, err := r.FindReturnItem(ctx, ret.ID, o.Items[0].ID)
	require.NoError(t, err)

	require.NoError(t, r.SetEvidenceImages(ctx, item.ID, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}))
	item, err = r.FindReturnItem(ctx, ret.ID, o.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageURLs{"https://cdn/a.jpg", "https://cdn/b.jpg"}, item.EvidenceImages)

	_, err = r.FindReturnItem(ctx, ret.ID, uuid.New())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCompleteSubmissionAndTransition(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 1, Price: "10"})
	ret := pendingHeader(t, r, o)

	pending, err := r.FindPendingReturn(ctx, o.UserID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, ret.ID, pending.ID)

	require.NoError(t, r.CompleteSubmission(ctx, ret.ID, &models.ReturnEvent{Status: models.ReturnRequested, CreatedAt: testutil.Now}))
	assert.ErrorIs(t, r.CompleteSubmission(ctx, ret.ID, &models.ReturnEvent{Status: models.ReturnRequested}), repo.ErrStaleStatus)

	_, err = r.FindPendingReturn(ctx, o.UserID, o.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.TransitionReturn(ctx, ret.ID, models.ReturnRequested, models.ReturnApproved, &models.ReturnEvent{CreatedAt: testutil.Now.Add(time.Minute)}))
	err = r.TransitionReturn(ctx, ret.ID, models.ReturnRequested, models.ReturnRejected, &models.ReturnEvent{})
	assert.ErrorIs(t, err, repo.ErrStaleStatus)

	evs, err := r.ListEvents(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, models.ReturnRequested, evs[0].Status)
	assert.Equal(t, models.ReturnApproved, evs[1].Status)
}

func TestListReturns_Filters(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), time.Hour, testutil.Item{Name: "Mala", Qty: 5, Price: "10"})
	item := o.Items[0].ID

	a := testutil.SeedReturn(t, r, o, models.ReturnRequested, map[uuid.UUID]int{item: 1})
	b := testutil.SeedReturn(t, r, o, models.ReturnRejected, map[uuid.UUID]int{item: 1})
	require.NoError(t, r.UpdateAdminNotes(ctx, b.ID, "Customer sent a Broken seal photo"))
	pendingHeader(t, r, o)

	all, total, err := r.ListReturns(ctx, repo.ReturnFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	byStatus, _, err := r.ListReturns(ctx, repo.ReturnFilter{Status: models.ReturnRequested})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	byText, _, err := r.ListReturns(ctx, repo.ReturnFilter{Query: "broken SEAL"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, b.ID, byText[0].ID)

	byIDs, _, err := r.ListReturns(ctx, repo.ReturnFilter{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, byIDs)

	withPending, total, err := r.ListReturns(ctx, repo.ReturnFilter{IncludePending: true, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, withPending, 1)
}

func TestUpdateOrderStatus_StampsTimes(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	o := testutil.SeedOrder(t, r, uuid.New(), -1, testutil.Item{Name: "Mala", Qty: 1, Price: "10"})

	carrier, awb := "Delhivery", "DL123"
	at := testutil.Now.Add(time.Hour)
	got, err := r.UpdateOrderStatus(ctx, o.ID, repo.OrderStatusUpdate{Status: models.OrderStatusDelivered, Carrier: &carrier, TrackingNumber: &awb, At: at})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.Equal(at))
	assert.Equal(t, "Delhivery", got.Carrier)

	_, err = r.UpdateOrderStatus(ctx, uuid.New(), repo.OrderStatusUpdate{Status: models.OrderStatusPaid, At: at})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
