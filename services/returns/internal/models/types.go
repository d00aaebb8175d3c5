package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ImageURLs is a text[] column on postgres and a text column elsewhere.
// Both encodings use the postgres array literal, e.g. {"a","b"}.
type ImageURLs []string

func (ImageURLs) GormDataType() string {
	return "text[]"
}

func (ImageURLs) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (u ImageURLs) Value() (driver.Value, error) {
	if u == nil {
		u = ImageURLs{}
	}
	return pq.StringArray(u).Value()
}

func (u *ImageURLs) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*u = ImageURLs(arr)
	return nil
}
