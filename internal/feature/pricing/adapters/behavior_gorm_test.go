package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBehaviorRepository_Increments は同日のイベントが同じ行に加算されることを検証します。
func TestBehaviorRepository_Increments(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewBehaviorRepository(db)
	ctx := context.Background()
	morning := baseDay.Add(9 * time.Hour)
	evening := baseDay.Add(21 * time.Hour)

	require.NoError(t, repo.AddOrder(ctx, 1, morning, 40))
	require.NoError(t, repo.AddOrder(ctx, 1, evening, 60))
	require.NoError(t, repo.AddCancellation(ctx, 1, evening))
	require.NoError(t, repo.AddView(ctx, 1, morning, true))
	require.NoError(t, repo.AddView(ctx, 1, morning, false))
	require.NoError(t, repo.AddToCart(ctx, 1, morning))
	require.NoError(t, repo.AddOrder(ctx, 1, baseDay.AddDate(0, 0, 1), 10))

	var salesRows int64
	require.NoError(t, db.Model(&SalesMetricModel{}).Count(&salesRows).Error)
	assert.Equal(t, int64(2), salesRows, "one row per product and day")

	sales, err := repo.DailySales(ctx, 1, baseDay, baseDay)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 2, sales[0].OrdersCount)
	assert.Equal(t, 1, sales[0].CancelledCount)
	assert.InDelta(t, 100.0, sales[0].Revenue, 1e-9)
	assert.True(t, baseDay.Equal(sales[0].Date))

	demand, err := repo.DailyDemand(ctx, 1, baseDay, baseDay)
	require.NoError(t, err)
	require.Len(t, demand, 1)
	assert.Equal(t, 2, demand[0].Views)
	assert.Equal(t, 1, demand[0].UniqueViews)
	assert.Equal(t, 1, demand[0].AddToCart)
	assert.Equal(t, 2, demand[0].Purchases)
}

// TestBehaviorRepository_DailyRange は日次の集計が期間で絞り込まれることを検証します。
func TestBehaviorRepository_DailyRange(t *testing.T) {
	t.Parallel()
	repo := NewBehaviorRepository(setupTestDB(t))
	ctx := context.Background()

	for i := range 10 {
		require.NoError(t, repo.AddOrder(ctx, 1, baseDay.AddDate(0, 0, -i), float64(i)))
	}
	require.NoError(t, repo.AddOrder(ctx, 2, baseDay, 5))

	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{name: "last 7 days inclusive", from: baseDay.AddDate(0, 0, -6), to: baseDay.Add(15 * time.Hour), want: 7},
		{name: "single day", from: baseDay, to: baseDay, want: 1},
		{name: "before any data", from: baseDay.AddDate(0, 0, -30), to: baseDay.AddDate(0, 0, -20), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.DailySales(ctx, 1, tt.from, tt.to)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i-1].Date.Before(got[i].Date), "oldest first")
			}
		})
	}
}
