package glosas

import "time"

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type itemOpt func(*LineItem)

func withFolder(id int64) itemOpt       { return func(li *LineItem) { li.FolderID = id } }
func withFiled(t *time.Time) itemOpt    { return func(li *LineItem) { li.FilingDate = t } }
func withNotified(t *time.Time) itemOpt { return func(li *LineItem) { li.NotificationDate = t } }
func withObjected(t *time.Time) itemOpt { return func(li *LineItem) { li.ObjectionDate = t } }
func withStatus(s string) itemOpt       { return func(li *LineItem) { li.Status = s } }
func withEntity(e string) itemOpt       { return func(li *LineItem) { li.Entity = e } }
func withBalance(v float64) itemOpt     { return func(li *LineItem) { li.WalletBalance = v } }
func withValue(v float64) itemOpt       { return func(li *LineItem) { li.ItemValue = v } }

func item(series, number, doc string, opts ...itemOpt) LineItem {
	li := LineItem{
		Series:           series,
		InvoiceNumber:    number,
		DocID:            doc,
		Entity:           "EPS SUR",
		Status:           string(StatusC1),
		NotificationDate: day(2024, time.January, 5),
		ObjectionDate:    day(2024, time.January, 3),
		ItemType:         "MED",
	}
	for _, opt := range opts {
		opt(&li)
	}
	return li
}

// mixedFixture covers every category once: T1, T2, T3, T4 and a Mixed
// invoice with three disagreeing items.
func mixedFixture() []LineItem {
	filed := day(2024, time.January, 10)
	return []LineItem{
		item("S1", "100", "D1", withFolder(5), withFiled(filed)),
		item("S1", "100", "D1", withFolder(5), withFiled(day(2024, time.January, 12))),
		item("S1", "100", "D1"),
		item("S2", "7", "D2", withFolder(9), withFiled(filed), withBalance(1000)),
		item("S2", "7", "D2", withFolder(9), withFiled(filed), withBalance(1000)),
		item("S3", "8", "D3", withFolder(4), withBalance(200), withEntity("EPS NORTE")),
		item("S4", "9", "D4", withBalance(300), withEntity("EPS NORTE"), withStatus("C3")),
		item("S5", "10", "D5", withFiled(filed), withBalance(50), withStatus("AI")),
	}
}

func uniqueInvoiceCount(items []LineItem) int {
	seen := make(map[invoiceKey]struct{})
	for _, item := range items {
		seen[item.key()] = struct{}{}
	}
	return len(seen)
}
