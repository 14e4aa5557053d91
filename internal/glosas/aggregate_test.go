package glosas

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregateNoData(t *testing.T) {
	stats := Aggregate(Classify(nil), Window{}, 0)
	require.Equal(t, NoDataMessage, stats.NoData)
	require.True(t, stats.IntegrityOK)
	require.Empty(t, stats.ByEntity)
	require.Empty(t, stats.ByStatus)
	require.Empty(t, stats.Trend)
	require.Equal(t, GranularityNone, stats.Granularity)
}

func TestAggregateKPIs(t *testing.T) {
	stats := Aggregate(Classify(mixedFixture()), Window{}, 0)

	require.Empty(t, stats.NoData)
	require.True(t, stats.IntegrityOK)
	require.Equal(t, 5, stats.TotalInvoices)
	require.Equal(t, 5, stats.Categorized)
	require.Equal(t, 1, stats.T1)
	require.Equal(t, 1, stats.T2)
	require.Equal(t, 1, stats.T3)
	require.Equal(t, 1, stats.T4)
	require.Equal(t, 1, stats.Mixed)

	require.InDelta(t, 1550.0, stats.TotalValue, 0.001)
	require.InDelta(t, 1000.0, stats.FiledValue, 0.001)
	require.InDelta(t, 550.0, stats.UnfiledValue, 0.001)

	require.Equal(t, []EntityCount{
		{Entity: "EPS NORTE", Invoices: 2},
		{Entity: "EPS SUR", Invoices: 2},
	}, stats.ByEntity)
	require.Equal(t, []StatusCount{
		{Status: "C1", Items: 4},
		{Status: "C3", Items: 1},
		{Status: "AI", Items: 1},
	}, stats.ByStatus)

	require.Equal(t, GranularityDaily, stats.Granularity)
	require.Equal(t, []TrendPoint{{Period: "2024-01-05T00:00:00", Count: 5}}, stats.Trend)
}

func TestAggregateEntityLimit(t *testing.T) {
	items := make([]LineItem, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, item("X", fmt.Sprint(i), "1", withEntity(fmt.Sprintf("E%02d", i%17))))
	}
	stats := Aggregate(Classify(items), Window{}, 0)
	require.Len(t, stats.ByEntity, DefaultEntityLimit)
	require.Equal(t, "E00", stats.ByEntity[0].Entity)
	require.Equal(t, 2, stats.ByEntity[0].Invoices)

	stats = Aggregate(Classify(items), Window{}, 3)
	require.Len(t, stats.ByEntity, 3)
}

func TestAggregateUsesRequestedWindowForTrend(t *testing.T) {
	window := Window{
		From: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
	}
	stats := Aggregate(Classify(mixedFixture()), window, 0)
	require.Equal(t, GranularityMonthly, stats.Granularity)
	require.Equal(t, []TrendPoint{
		{Period: "2023-11-01T00:00:00", Count: 0},
		{Period: "2023-12-01T00:00:00", Count: 0},
		{Period: "2024-01-01T00:00:00", Count: 5},
		{Period: "2024-02-01T00:00:00", Count: 0},
	}, stats.Trend)
}
