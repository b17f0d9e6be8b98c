package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB は全テーブルを作成したメモリ上の SQLite データベースを用意します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to initialize test database")

	// every pooled connection to :memory: would open its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db), "failed to migrate tables")
	return db
}

// seedProduct は商品行を作成して返します。
func seedProduct(t *testing.T, db *gorm.DB, m ProductModel) ProductModel {
	t.Helper()

	if m.Name == "" {
		m.Name = "widget"
	}
	require.NoError(t, db.Create(&m).Error, "failed to seed product")
	return m
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

var baseDay = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
