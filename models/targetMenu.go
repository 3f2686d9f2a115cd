package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const targetMenuQuery = `
SELECT DISTINCT
	menu_item_id AS menu_id,
	menu_item_name AS menu_name
FROM target_menu_table
WHERE is_active = ?
  AND outlet_code = ?
ORDER BY menu_id`

// TargetMenuRepo reads menus from the target (PostgreSQL) catalog.
type TargetMenuRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewTargetMenuRepo(db *gorm.DB, timeout time.Duration) *TargetMenuRepo {
	return &TargetMenuRepo{db: db, timeout: timeout}
}

// FetchTargetMenus returns the distinct active menus of outletCode.
func (r *TargetMenuRepo) FetchTargetMenus(ctx context.Context, outletCode string) ([]TargetMenu, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var records []TargetMenu
	if err := r.db.WithContext(ctx).Raw(targetMenuQuery, true, outletCode).Scan(&records).Error; err != nil {
		return nil, classifyDBError(fmt.Sprintf("fetch target menus for outlet %s", outletCode), err)
	}
	return records, nil
}
