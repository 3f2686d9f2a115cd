package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const sourceMenuQuery = `
SELECT DISTINCT
	menu_id,
	menu_name,
	is_active
FROM source_menu_table
WHERE is_active = ?
  AND outlet_code = ?
ORDER BY menu_id`

// SourceMenuRepo reads menus from the source (MySQL) catalog.
type SourceMenuRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewSourceMenuRepo(db *gorm.DB, timeout time.Duration) *SourceMenuRepo {
	return &SourceMenuRepo{db: db, timeout: timeout}
}

// FetchSourceMenus returns the distinct active menus of outletCode.
func (r *SourceMenuRepo) FetchSourceMenus(ctx context.Context, outletCode string) ([]SourceMenu, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var records []SourceMenu
	if err := r.db.WithContext(ctx).Raw(sourceMenuQuery, true, outletCode).Scan(&records).Error; err != nil {
		return nil, classifyDBError(fmt.Sprintf("fetch source menus for outlet %s", outletCode), err)
	}
	return records, nil
}
