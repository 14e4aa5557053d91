package glosas

import (
	"sort"
	"strings"
	"time"
)

// Reshape turns line items into the ordered summary/detail report: one
// summary row per invoice followed by that invoice's detail rows.
func Reshape(items []LineItem) []ReportRow {
	if len(items) == 0 {
		return []ReportRow{}
	}

	rows := make([]ReportRow, 0, len(items)+len(items)/2)
	rows = append(rows, summarize(items)...)
	for _, item := range items {
		rows = append(rows, detailRow(item))
	}
	sortReport(rows)
	return rows
}

type summaryAcc struct {
	row   ReportRow
	total int64
	cc    int64
	cn    int64
	nc    int64
	nn    int64
}

func summarize(items []LineItem) []ReportRow {
	order := make([]invoiceKey, 0)
	groups := make(map[invoiceKey]*summaryAcc)
	for _, item := range items {
		label := item.InvoiceLabel()
		gid := item.key()
		acc, ok := groups[gid]
		if !ok {
			acc = &summaryAcc{row: ReportRow{
				NotificationDate: item.NotificationDate,
				Invoice:          label,
				DocID:            item.DocID,
				Entity:           item.Entity,
				Value:            item.WalletBalance,
				ItemType:         item.ItemType,
				Kind:             RowSummary,
				key:              item.key(),
			}}
			groups[gid] = acc
			order = append(order, gid)
		}
		acc.row.ObjectionDate = minTime(acc.row.ObjectionDate, item.ObjectionDate)
		acc.row.ResponseDate = maxTime(acc.row.ResponseDate, item.ResponseDate)
		acc.total++
		folder, filed := item.HasFolder(), item.HasFilingDate()
		switch {
		case folder && filed:
			acc.cc++
		case folder:
			acc.cn++
		case filed:
			acc.nc++
		default:
			acc.nn++
		}
	}

	out := make([]ReportRow, 0, len(order))
	for _, gid := range order {
		acc := groups[gid]
		row := acc.row
		row.TotalItems = int64Ptr(acc.total)
		row.FolderFiled = int64Ptr(acc.cc)
		row.FolderUnfiled = int64Ptr(acc.cn)
		row.NoFolderFiled = int64Ptr(acc.nc)
		row.NoFolderUnfiled = int64Ptr(acc.nn)
		out = append(out, row)
	}
	return out
}

func detailRow(item LineItem) ReportRow {
	row := ReportRow{
		NotificationDate: item.NotificationDate,
		Invoice:          item.InvoiceLabel(),
		DocID:            item.DocID,
		Entity:           item.Entity,
		ObjectionDate:    item.ObjectionDate,
		ResponseDate:     item.ResponseDate,
		FilingDate:       item.FilingDate,
		Value:            item.ItemValue,
		ItemType:         item.ItemType,
		Kind:             RowDetail,
		key:              item.key(),
	}
	if item.HasFolder() {
		row.FolderID = int64Ptr(item.FolderID)
	}
	status := item.Status
	row.Status = &status
	return row
}

func sortReport(rows []ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := compareKeys(a.key, b.key); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Invoice, b.Invoice); c != 0 {
			return c < 0
		}
		if ra, rb := a.Kind.rank(), b.Kind.rank(); ra != rb {
			return ra < rb
		}
		if c := compareTimes(a.ObjectionDate, b.ObjectionDate); c != 0 {
			return c < 0
		}
		return rowStatusRank(a) < rowStatusRank(b)
	})
}

func rowStatusRank(r ReportRow) int {
	if r.Status == nil {
		return 99
	}
	return statusRank(*r.Status)
}

// compareTimes orders nil before any value.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}

func minTime(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.Before(*cur) {
		return next
	}
	return cur
}

func maxTime(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		return next
	}
	return cur
}

func int64Ptr(v int64) *int64 {
	return &v
}
