package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrStaleStatus = errors.New("status changed concurrently")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
