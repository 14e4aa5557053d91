package glosas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReshapeEmpty(t *testing.T) {
	rows := Reshape(nil)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestReshapeMixedInvoice(t *testing.T) {
	items := mixedFixture()[:3]
	rows := Reshape(items)
	require.Len(t, rows, 4)

	summary := rows[0]
	require.Equal(t, RowSummary, summary.Kind)
	require.Equal(t, "S1100", summary.Invoice)
	require.EqualValues(t, 3, *summary.TotalItems)
	require.EqualValues(t, 2, *summary.FolderFiled)
	require.EqualValues(t, 0, *summary.FolderUnfiled)
	require.EqualValues(t, 0, *summary.NoFolderFiled)
	require.EqualValues(t, 1, *summary.NoFolderUnfiled)
	require.Nil(t, summary.FolderID)
	require.Nil(t, summary.FilingDate)
	require.Nil(t, summary.Status)

	for _, row := range rows[1:] {
		require.Equal(t, RowDetail, row.Kind)
		require.Nil(t, row.TotalItems)
		require.NotNil(t, row.Status)
	}
	require.Nil(t, rows[3].FolderID, "item without folder keeps a null folder")
}

func TestReshapeRowCountLaw(t *testing.T) {
	items := mixedFixture()
	rows := Reshape(items)
	require.Len(t, rows, uniqueInvoiceCount(items)+len(items))
	require.Len(t, FilterKind(rows, RowSummary), uniqueInvoiceCount(items))
}

func TestReshapeDetailRoundTrip(t *testing.T) {
	items := mixedFixture()
	details := FilterKind(Reshape(items), RowDetail)
	require.Len(t, details, len(items))

	type fingerprint struct {
		id     string
		entity string
		value  float64
		folder int64
		filed  bool
		status string
	}
	want := make(map[fingerprint]int)
	for _, li := range items {
		want[fingerprint{li.InvoiceID(), li.Entity, li.ItemValue, li.FolderID, li.HasFilingDate(), li.Status}]++
	}
	got := make(map[fingerprint]int)
	for _, row := range details {
		var folder int64
		if row.FolderID != nil {
			folder = *row.FolderID
		}
		got[fingerprint{row.InvoiceID(), row.Entity, row.Value, folder, row.FilingDate != nil, *row.Status}]++
	}
	require.Equal(t, want, got)
}

func TestReshapeSummaryAggregates(t *testing.T) {
	items := []LineItem{
		item("A", "1", "9", withObjected(day(2024, time.March, 4)), withBalance(700)),
		item("A", "1", "9", withObjected(nil), withBalance(700)),
		item("A", "1", "9", withObjected(day(2024, time.March, 2)), withBalance(700)),
	}
	items[0].ResponseDate = day(2024, time.April, 1)
	items[2].ResponseDate = day(2024, time.April, 9)

	summary := FilterKind(Reshape(items), RowSummary)[0]
	require.Equal(t, *day(2024, time.March, 2), *summary.ObjectionDate)
	require.Equal(t, *day(2024, time.April, 9), *summary.ResponseDate)
	require.Equal(t, 700.0, summary.Value)
}

func TestReshapeOrdering(t *testing.T) {
	items := []LineItem{
		item("B", "2", "1"),
		item("A", "10", "1", withObjected(day(2024, time.May, 2)), withStatus("AI")),
		item("A", "10", "1", withObjected(day(2024, time.May, 2)), withStatus("C2")),
		item("A", "10", "1", withObjected(nil)),
		item("A", "9", "1"),
	}
	rows := Reshape(items)

	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.Invoice+"/"+string(row.Kind))
	}
	require.Equal(t, []string{
		"A9/" + string(RowSummary), "A9/" + string(RowDetail),
		"A10/" + string(RowSummary), "A10/" + string(RowDetail), "A10/" + string(RowDetail), "A10/" + string(RowDetail),
		"B2/" + string(RowSummary), "B2/" + string(RowDetail),
	}, labels)

	// Details of A10: nil objection date first, then C2 before AI on a tie.
	require.Nil(t, rows[3].ObjectionDate)
	require.Equal(t, "C2", *rows[4].Status)
	require.Equal(t, "AI", *rows[5].Status)
}

func TestReportRowGet(t *testing.T) {
	rows := Reshape(mixedFixture()[:1])
	summary, detail := rows[0], rows[1]

	require.Equal(t, "S1100", summary.Get(ColInvoiceLabel))
	require.Nil(t, summary.Get(ColFolderID))
	require.EqualValues(t, 1, summary.Get(ColTotalItems))
	require.EqualValues(t, 5, detail.Get(ColFolderID))
	require.Equal(t, "C1", detail.Get(ColStatus))
	require.Nil(t, detail.Get("unknown"))
	require.Len(t, ReportSchema, 17)
}
