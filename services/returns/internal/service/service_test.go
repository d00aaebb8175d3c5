package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/returns/pkg/blob"
	"github.com/Skotchmaster/returns/pkg/events"
	"github.com/Skotchmaster/returns/pkg/lock"
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
	"github.com/Skotchmaster/returns/services/returns/internal/testutil"
	"github.com/google/uuid"
)

type recorder struct {
	mu     sync.Mutex
	events []events.ReturnEvent
}

func (r *recorder) PublishReturnEvent(_ context.Context, e events.ReturnEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexReturn(_ context.Context, ret models.Return) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, ret.ID)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

type env struct {
	repo    *repo.GormRepo
	blobs   *blob.Memory
	drafts  *draft.MemoryStore
	pub     *recorder
	index   *fakeIndex
	orders  *service.OrderService
	returns *service.ReturnService
	admin   *service.AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	r := testutil.NewRepo(t)
	e := &env{
		repo:   r,
		blobs:  blob.NewMemory(),
		drafts: draft.NewMemoryStore(),
		pub:    &recorder{},
		index:  &fakeIndex{},
	}
	e.orders = &service.OrderService{Repo: r, Now: testutil.Clock}
	e.returns = &service.ReturnService{
		Repo:   r,
		Drafts: e.drafts,
		Blobs:  e.blobs,
		Events: e.pub,
		Locker: lock.Noop{},
		Index:  e.index,
		Now:    testutil.Clock,
	}
	e.admin = &service.AdminService{Repo: r, Events: e.pub, Index: e.index, Now: testutil.Clock}
	return e
}

// threeMalas is a delivered order, one hour old, with a single line of three units.
func (e *env) threeMalas(t *testing.T, user uuid.UUID) *models.Order {
	return testutil.SeedOrder(t, e.repo, user, time.Hour, testutil.Item{Name: "Rudraksha Mala", Qty: 3, Price: "499"})
}

func ptr[T any](v T) *T { return &v }
