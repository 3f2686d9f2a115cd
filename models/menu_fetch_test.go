package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every new connection would get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedSourceMenus(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE source_menu_table (
		menu_id INTEGER,
		menu_name TEXT,
		is_active INTEGER,
		outlet_code TEXT
	)`).Error)
	rows := [][]any{
		{2, "Fries", 1, "OUTLET_01"},
		{1, "Burger", 1, "OUTLET_01"},
		{2, "Fries", 1, "OUTLET_01"}, // exact duplicate
		{4, "Shake", 0, "OUTLET_01"}, // inactive
		{5, "Tea", 1, "OUTLET_02"},   // other outlet
		{6, nil, 1, "OUTLET_01"},
	}
	for _, r := range rows {
		require.NoError(t, db.Exec("INSERT INTO source_menu_table (menu_id, menu_name, is_active, outlet_code) VALUES (?, ?, ?, ?)", r...).Error)
	}
}

func seedTargetMenus(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE target_menu_table (
		menu_item_id TEXT,
		menu_item_name TEXT,
		is_active BOOLEAN,
		outlet_code TEXT
	)`).Error)
	rows := [][]any{
		{"1", "Hamburger", true, "OUTLET_01"},
		{"3", "Soda", true, "OUTLET_01"},
		{"3", "Soda", true, "OUTLET_01"},
		{"9", "Retired", false, "OUTLET_01"},
		{"7", "Coffee", true, "OUTLET_03"},
	}
	for _, r := range rows {
		require.NoError(t, db.Exec("INSERT INTO target_menu_table (menu_item_id, menu_item_name, is_active, outlet_code) VALUES (?, ?, ?, ?)", r...).Error)
	}
}

func TestFetchSourceMenus(t *testing.T) {
	db := openTestDB(t)
	seedSourceMenus(t, db)
	repo := NewSourceMenuRepo(db, time.Second)

	menus, err := repo.FetchSourceMenus(context.Background(), "OUTLET_01")
	require.NoError(t, err)
	require.Len(t, menus, 3)

	assert.Equal(t, "1", menus[0].MenuId)
	assert.Equal(t, "Burger", utils.DereferencePtr(menus[0].MenuName))
	assert.True(t, menus[0].IsActive)
	assert.Equal(t, "2", menus[1].MenuId)
	assert.Equal(t, "Fries", utils.DereferencePtr(menus[1].MenuName))
	assert.Equal(t, "6", menus[2].MenuId)
	assert.Nil(t, menus[2].MenuName)
}

func TestFetchSourceMenus_UnknownOutletIsEmpty(t *testing.T) {
	db := openTestDB(t)
	seedSourceMenus(t, db)

	menus, err := NewSourceMenuRepo(db, 0).FetchSourceMenus(context.Background(), "OUTLET_99")
	require.NoError(t, err)
	assert.Empty(t, menus)
}

func TestFetchTargetMenus(t *testing.T) {
	db := openTestDB(t)
	seedTargetMenus(t, db)

	menus, err := NewTargetMenuRepo(db, time.Second).FetchTargetMenus(context.Background(), "OUTLET_01")
	require.NoError(t, err)
	require.Len(t, menus, 2)
	assert.Equal(t, "1", menus[0].MenuId)
	assert.Equal(t, "Hamburger", utils.DereferencePtr(menus[0].MenuName))
	assert.Equal(t, "3", menus[1].MenuId)
	assert.Equal(t, "Soda", utils.DereferencePtr(menus[1].MenuName))
}

func TestFetch_MissingTableIsQueryError(t *testing.T) {
	db := openTestDB(t)

	_, err := NewSourceMenuRepo(db, 0).FetchSourceMenus(context.Background(), "OUTLET_01")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrorQuery)
	assert.Contains(t, err.Error(), "OUTLET_01")

	_, err = NewTargetMenuRepo(db, 0).FetchTargetMenus(context.Background(), "OUTLET_01")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrorQuery)
}

func TestFetch_CanceledContext(t *testing.T) {
	db := openTestDB(t)
	seedSourceMenus(t, db)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSourceMenuRepo(db, 0).FetchSourceMenus(ctx, "OUTLET_01")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, utils.ErrorQuery)
}
