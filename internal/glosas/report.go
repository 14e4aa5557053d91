package glosas

import "time"

// RowKind distinguishes invoice summary rows from item detail rows.
type RowKind string

const (
	RowSummary RowKind = "Resumen Factura"
	RowDetail  RowKind = "Detalle Ítem"
)

func (k RowKind) rank() int {
	if k == RowSummary {
		return 0
	}
	return 1
}

// ColumnType is the value type of a report column.
type ColumnType int

const (
	TypeDate ColumnType = iota
	TypeString
	TypeInt
	TypeMoney
)

// Column describes one report column.
type Column struct {
	Name   string
	Header string
	Type   ColumnType
}

// Report column names.
const (
	ColInvoiceLabel  = "FACTURA"
	ColRowKind       = "TipoFila"
	ColTotalItems    = "Total_Items_Factura"
	ColFolderFiled   = "Items_ConCC_ConFR"
	ColFolderUnfiled = "Items_ConCC_SinFR"
	ColNoFolderFiled = "Items_SinCC_ConFR"
	ColNoFolderNone  = "Items_SinCC_SinFR"
)

// ReportSchema is the fixed, ordered column set shared by summary and detail
// rows.
var ReportSchema = []Column{
	{Name: ColNotificationDate, Header: "Fecha Notificación", Type: TypeDate},
	{Name: ColInvoiceLabel, Header: "Factura", Type: TypeString},
	{Name: ColDocID, Header: "No. Paciente (Gl_docn)", Type: TypeString},
	{Name: ColEntity, Header: "Entidad", Type: TypeString},
	{Name: ColObjectionDate, Header: "Fecha Objeción", Type: TypeDate},
	{Name: ColResponseDate, Header: "Fecha Contestación", Type: TypeDate},
	{Name: ColFolderID, Header: "Cuenta de Cobro", Type: TypeInt},
	{Name: ColFilingDate, Header: "Fecha Radicado", Type: TypeDate},
	{Name: ColStatus, Header: "Estatus", Type: TypeString},
	{Name: ColItemValue, Header: "Valor Glosa Ítem", Type: TypeMoney},
	{Name: ColItemType, Header: "Tipo Ítem", Type: TypeString},
	{Name: ColRowKind, Header: "Tipo de Fila", Type: TypeString},
	{Name: ColTotalItems, Header: "Total Ítems en Factura", Type: TypeInt},
	{Name: ColFolderFiled, Header: "Ítems Con CC y Con FR", Type: TypeInt},
	{Name: ColFolderUnfiled, Header: "Ítems Con CC y Sin FR", Type: TypeInt},
	{Name: ColNoFolderFiled, Header: "Ítems Sin CC y Con FR", Type: TypeInt},
	{Name: ColNoFolderNone, Header: "Ítems Sin CC y Sin FR", Type: TypeInt},
}

// ReportRow is one row of the summary/detail report. Nil pointers are nulls:
// summary rows leave folder, filing date and status nil, detail rows leave
// the aggregate counts nil.
type ReportRow struct {
	NotificationDate *time.Time `json:"fecha_notificacion"`
	Invoice          string     `json:"FACTURA"`
	DocID            string     `json:"gl_docn"`
	Entity           string     `json:"nom_entidad"`
	ObjectionDate    *time.Time `json:"fecha_gl"`
	ResponseDate     *time.Time `json:"freg"`
	FolderID         *int64     `json:"gr_docn"`
	FilingDate       *time.Time `json:"fecha_rep"`
	Status           *string    `json:"estatus1"`
	Value            float64    `json:"vr_glosa"`
	ItemType         string     `json:"tipo"`
	Kind             RowKind    `json:"TipoFila"`
	TotalItems       *int64     `json:"Total_Items_Factura"`
	FolderFiled      *int64     `json:"Items_ConCC_ConFR"`
	FolderUnfiled    *int64     `json:"Items_ConCC_SinFR"`
	NoFolderFiled    *int64     `json:"Items_SinCC_ConFR"`
	NoFolderUnfiled  *int64     `json:"Items_SinCC_SinFR"`

	key invoiceKey
}

// InvoiceID is the grouping id of the invoice the row belongs to.
func (r ReportRow) InvoiceID() string {
	return r.key.id()
}

// Get returns the value of the named column, or nil for null and unknown
// columns.
func (r ReportRow) Get(name string) any {
	switch name {
	case ColNotificationDate:
		return timeValue(r.NotificationDate)
	case ColInvoiceLabel:
		return r.Invoice
	case ColDocID:
		return r.DocID
	case ColEntity:
		return r.Entity
	case ColObjectionDate:
		return timeValue(r.ObjectionDate)
	case ColResponseDate:
		return timeValue(r.ResponseDate)
	case ColFolderID:
		return intValue(r.FolderID)
	case ColFilingDate:
		return timeValue(r.FilingDate)
	case ColStatus:
		if r.Status == nil {
			return nil
		}
		return *r.Status
	case ColItemValue:
		return r.Value
	case ColItemType:
		return r.ItemType
	case ColRowKind:
		return string(r.Kind)
	case ColTotalItems:
		return intValue(r.TotalItems)
	case ColFolderFiled:
		return intValue(r.FolderFiled)
	case ColFolderUnfiled:
		return intValue(r.FolderUnfiled)
	case ColNoFolderFiled:
		return intValue(r.NoFolderFiled)
	case ColNoFolderNone:
		return intValue(r.NoFolderUnfiled)
	default:
		return nil
	}
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func intValue(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// FilterKind keeps rows of the given kind.
func FilterKind(rows []ReportRow, kind RowKind) []ReportRow {
	out := make([]ReportRow, 0)
	for _, row := range rows {
		if row.Kind == kind {
			out = append(out, row)
		}
	}
	return out
}
