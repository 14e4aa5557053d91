package glosas

import (
	"strconv"
	"strings"
	"time"
)

// Status is the workflow code carried by each glosa item.
type Status string

// Valid status codes. Rows outside this set never reach classification.
const (
	StatusAI Status = "AI"
	StatusC1 Status = "C1"
	StatusC2 Status = "C2"
	StatusC3 Status = "C3"
	StatusCO Status = "CO"
)

// ValidStatuses lists the closed set of accepted status codes.
var ValidStatuses = []Status{StatusAI, StatusC1, StatusC2, StatusC3, StatusCO}

// Valid reports whether s belongs to the accepted status set.
func (s Status) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// statusRank orders statuses C1 < C2 < C3 < CO < AI < anything else.
func statusRank(s string) int {
	switch Status(s) {
	case StatusC1:
		return 1
	case StatusC2:
		return 2
	case StatusC3:
		return 3
	case StatusCO:
		return 4
	case StatusAI:
		return 5
	default:
		return 99
	}
}

// Category is the processing bucket an invoice falls into.
type Category string

const (
	// CategoryT1 invoices have a folder and a filing date on every item.
	CategoryT1 Category = "T1"
	// CategoryT2 invoices have a folder and no filing date on every item.
	CategoryT2 Category = "T2"
	// CategoryT3 invoices have neither folder nor filing date on any item.
	CategoryT3 Category = "T3"
	// CategoryT4 invoices have a filing date but no folder on every item.
	CategoryT4 Category = "T4"
	// CategoryMixed invoices have items that disagree.
	CategoryMixed Category = "Mixtas"
)

// PureCategories are the categories decided by item purity.
var PureCategories = []Category{CategoryT1, CategoryT2, CategoryT3, CategoryT4}

// Categories lists every category in report order.
var Categories = []Category{CategoryT1, CategoryT2, CategoryT3, CategoryT4, CategoryMixed}

// ParseCategory resolves a category name as used by API callers.
func ParseCategory(raw string) (Category, bool) {
	value := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(value, string(c)) {
			return c, true
		}
	}
	if strings.EqualFold(value, "mixed") || strings.EqualFold(value, "mixta") {
		return CategoryMixed, true
	}
	return "", false
}

// SheetName is the workbook sheet title for the category.
func (c Category) SheetName() string {
	switch c {
	case CategoryT1:
		return "Radicadas"
	case CategoryT2:
		return "Con CC y Sin FR"
	case CategoryT3:
		return "Sin CC y Sin FR"
	case CategoryT4:
		return "Sin CC y Con FR"
	default:
		return "Mixtas"
	}
}

// LineItem is a single glosa row as delivered by the loader.
type LineItem struct {
	NotificationDate *time.Time `json:"fecha_notificacion"`
	ObjectionDate    *time.Time `json:"fecha_gl"`
	Entity           string     `json:"nom_entidad"`
	Series           string     `json:"fc_serie"`
	InvoiceNumber    string     `json:"fc_docn"`
	DocID            string     `json:"gl_docn"`
	ItemValue        float64    `json:"vr_glosa"`
	ItemType         string     `json:"tipo"`
	ResponseDate     *time.Time `json:"freg"`
	FolderID         int64      `json:"gr_docn"`
	FilingDate       *time.Time `json:"fecha_rep"`
	Status           string     `json:"estatus1"`
	WalletBalance    float64    `json:"saldocartera"`
}

// InvoiceID joins the grouping key into the display identifier. Grouping
// uses the composite key, so ids that render alike stay distinct invoices.
func (li LineItem) InvoiceID() string {
	return li.Series + "-" + li.InvoiceNumber + "-" + li.DocID
}

// InvoiceLabel is the human readable invoice reference (series + number).
func (li LineItem) InvoiceLabel() string {
	return li.Series + li.InvoiceNumber
}

// HasFolder reports whether the item carries a collection folder.
func (li LineItem) HasFolder() bool {
	return li.FolderID != 0
}

// HasFilingDate reports whether the item has been filed.
func (li LineItem) HasFilingDate() bool {
	return li.FilingDate != nil
}

// Category returns the item-level condition the item satisfies.
func (li LineItem) Category() Category {
	switch {
	case li.HasFolder() && li.HasFilingDate():
		return CategoryT1
	case li.HasFolder():
		return CategoryT2
	case !li.HasFilingDate():
		return CategoryT3
	default:
		return CategoryT4
	}
}

func (li LineItem) key() invoiceKey {
	return invoiceKey{Series: li.Series, Number: li.InvoiceNumber, DocID: li.DocID}
}

// invoiceKey is the composite grouping key of an invoice.
type invoiceKey struct {
	Series string
	Number string
	DocID  string
}

func (k invoiceKey) id() string {
	return k.Series + "-" + k.Number + "-" + k.DocID
}

func compareKeys(a, b invoiceKey) int {
	if c := strings.Compare(a.Series, b.Series); c != 0 {
		return c
	}
	if c := compareNumeric(a.Number, b.Number); c != 0 {
		return c
	}
	return compareNumeric(a.DocID, b.DocID)
}

// compareNumeric compares integer-looking strings by value and falls back to
// lexical order otherwise.
func compareNumeric(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
	}
	return strings.Compare(a, b)
}

// Window is an optional inclusive notification-date window. A zero Window
// means "all data".
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether no window was requested.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Bounds expands the window to full-day limits: From at 00:00:00 and To at
// 23:59:59.
func (w Window) Bounds() (time.Time, time.Time) {
	from := truncateDay(w.From)
	to := truncateDay(w.To).Add(24*time.Hour - time.Second)
	return from, to
}

// Days returns the whole number of days between From and To.
func (w Window) Days() int {
	return int(truncateDay(w.To).Sub(truncateDay(w.From)).Hours() / 24)
}

// String renders the window for cache keys and file names.
func (w Window) String() string {
	if w.IsZero() {
		return "all"
	}
	return w.From.Format(dateLayout) + "_a_" + w.To.Format(dateLayout)
}

const dateLayout = "2006-01-02"

// ParseWindow parses a pair of YYYY-MM-DD strings. Both empty yields the zero
// Window; one without the other is rejected.
func ParseWindow(from, to string) (Window, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return Window{}, nil
	}
	if from == "" {
		return Window{}, newValidationError("fecha_inicio", "la fecha de inicio es requerida junto con la fecha de fin")
	}
	if to == "" {
		return Window{}, newValidationError("fecha_fin", "la fecha de fin es requerida junto con la fecha de inicio")
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return Window{}, newValidationError("fecha_inicio", "formato de fecha invalido, use YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return Window{}, newValidationError("fecha_fin", "formato de fecha invalido, use YYYY-MM-DD")
	}
	if end.Before(start) {
		return Window{}, newValidationError("fecha_fin", "la fecha de fin no puede ser anterior a la fecha de inicio")
	}
	return Window{From: start, To: end}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
