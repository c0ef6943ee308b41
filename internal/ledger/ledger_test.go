package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repricer-service/internal/models"
)

func record(itemID, sku string, oldPrice, newPrice float64) *models.PriceChangeRecord {
	return &models.PriceChangeRecord{
		ItemID:   itemID,
		SKU:      sku,
		OldPrice: decimal.NewFromFloat(oldPrice),
		NewPrice: decimal.NewFromFloat(newPrice),
		Status:   models.ChangeStatusCompleted,
	}
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	rec := record("item-1", "", 84.50, 82.00)
	require.NoError(t, l.Record(ctx, rec))

	assert.Equal(t, int64(1), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	rec2 := record("item-1", "", 82.00, 81.00)
	require.NoError(t, l.Record(ctx, rec2))
	assert.Equal(t, int64(2), rec2.ID)
}

func TestLatestReturnsNewestForItemAndSKU(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, record("item-1", "", 84.50, 82.00)))
	require.NoError(t, l.Record(ctx, record("item-1", "SKU-A", 50.00, 48.00)))
	require.NoError(t, l.Record(ctx, record("item-1", "", 82.00, 81.00)))

	latest, err := l.Latest(ctx, "item-1", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.NewPrice.Equal(decimal.NewFromFloat(81.00)))

	variant, err := l.Latest(ctx, "item-1", "SKU-A")
	require.NoError(t, err)
	require.NotNil(t, variant)
	assert.True(t, variant.NewPrice.Equal(decimal.NewFromFloat(48.00)))
}

func TestLatestNilWhenAbsent(t *testing.T) {
	l := NewMemoryLedger()

	latest, err := l.Latest(context.Background(), "nope", "")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStoredRecordsAreImmutable(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	rec := record("item-1", "", 10, 9)
	require.NoError(t, l.Record(ctx, rec))

	// Mutating the caller's copy after recording must not change history.
	rec.NewPrice = decimal.NewFromInt(999)

	latest, err := l.Latest(ctx, "item-1", "")
	require.NoError(t, err)
	assert.True(t, latest.NewPrice.Equal(decimal.NewFromInt(9)))
}

func TestHistoryPaginatesNewestFirst(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		rec := record("item-1", "", float64(100+i-1), float64(100+i))
		rec.CreatedAt = time.Date(2026, 8, i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, l.Record(ctx, rec))
	}
	require.NoError(t, l.Record(ctx, record("other", "", 5, 4)))

	page1, total, err := l.History(ctx, "item-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	assert.True(t, page1[0].NewPrice.Equal(decimal.NewFromInt(105)), "newest first")
	assert.True(t, page1[1].NewPrice.Equal(decimal.NewFromInt(104)))

	page3, total, err := l.History(ctx, "item-1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page3, 1)
	assert.True(t, page3[0].NewPrice.Equal(decimal.NewFromInt(101)))

	empty, total, err := l.History(ctx, "item-1", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, empty)
}

func TestHistoryDefaultsPageAndLimit(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, l.Record(ctx, record("item-1", "", 10, float64(10+i))))
	}

	page, total, err := l.History(ctx, "item-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page, 20)
}

func TestSummaryAggregates(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	newPrices := []float64{82.00, 79.50, 85.25}
	for i, p := range newPrices {
		rec := record("item-1", "", 84.50, p)
		rec.CreatedAt = time.Date(2026, 8, 10+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, l.Record(ctx, rec))
	}
	require.NoError(t, l.Record(ctx, record("other", "", 5, 4)))

	summary, err := l.Summary(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	assert.True(t, summary.MinNewPrice.Decimal.Equal(decimal.NewFromFloat(79.50)))
	assert.True(t, summary.MaxNewPrice.Decimal.Equal(decimal.NewFromFloat(85.25)))
	assert.True(t, summary.AvgNewPrice.Decimal.Equal(decimal.NewFromFloat(82.25)),
		fmt.Sprintf("got %s", summary.AvgNewPrice.Decimal))
	require.NotNil(t, summary.FirstAt)
	require.NotNil(t, summary.LastAt)
	assert.True(t, summary.FirstAt.Before(*summary.LastAt))
}

func TestSummaryEmptyItem(t *testing.T) {
	l := NewMemoryLedger()

	summary, err := l.Summary(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Count)
	assert.False(t, summary.AvgNewPrice.Valid)
	assert.Nil(t, summary.FirstAt)
}
