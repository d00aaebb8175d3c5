// Package testutil builds in-memory stores and fixtures for the returns service tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Now = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func Clock() time.Time { return Now }

// NewRepo opens a private in-memory database. One connection keeps every query on the same database.
func NewRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: Clock,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

type Item struct {
	Name  string
	Qty   int
	Price string
}

// SeedOrder stores a delivered order placed by userID. deliveredAgo < 0 leaves it undelivered.
func SeedOrder(t *testing.T, r *repo.GormRepo, userID uuid.UUID, deliveredAgo time.Duration, items ...Item) *models.Order {
	t.Helper()

	o := &models.Order{
		UserID:   userID,
		Status:   models.OrderStatusDelivered,
		Subtotal: decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
	}
	if deliveredAgo >= 0 {
		at := Now.Add(-deliveredAgo)
		o.DeliveredAt = &at
	} else {
		o.Status = models.OrderStatusShipped
	}
	for _, it := range items {
		price := decimal.RequireFromString(it.Price)
		oi := models.OrderItem{ProductID: uuid.New(), NameSnapshot: it.Name, UnitPrice: price, Quantity: it.Qty}
		o.Items = append(o.Items, oi)
		o.Subtotal = o.Subtotal.Add(oi.LineTotal())
	}
	o.Total = o.Subtotal

	_, err := r.CreateOrder(context.Background(), o)
	require.NoError(t, err)
	return o
}

// SeedReturn stores a completed return with one line per (item, qty) pair.
func SeedReturn(t *testing.T, r *repo.GormRepo, o *models.Order, status models.ReturnStatus, lines map[uuid.UUID]int) *models.Return {
	t.Helper()

	ret := &models.Return{
		RMACode:         "RMA-" + uuid.NewString()[:13],
		UserID:          o.UserID,
		OrderID:         o.ID,
		Resolution:      models.ResolutionRefund,
		Status:          status,
		SubmissionState: models.SubmissionComplete,
	}
	for _, it := range o.Items {
		q, ok := lines[it.ID]
		if !ok {
			continue
		}
		ret.Items = append(ret.Items, models.ReturnItem{
			OrderItemID:    it.ID,
			ProductID:      it.ProductID,
			Quantity:       q,
			ReasonCode:     models.ReasonDamaged,
			EvidenceImages: models.ImageURLs{},
		})
	}
	require.NoError(t, r.DB.Create(ret).Error)
	return ret
}

// PNG encodes a tiny valid image; shade varies the bytes.
func PNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: shade, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
