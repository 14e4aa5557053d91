package glosas

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Raw column names produced by the data source.
const (
	ColNotificationDate = "fecha_notificacion"
	ColObjectionDate    = "fecha_gl"
	ColEntity           = "nom_entidad"
	ColDocID            = "gl_docn"
	ColSeries           = "fc_serie"
	ColInvoiceNumber    = "fc_docn"
	ColItemValue        = "vr_glosa"
	ColItemType         = "tipo"
	ColResponseDate     = "freg"
	ColFolderID         = "gr_docn"
	ColFilingDate       = "fecha_rep"
	ColStatus           = "estatus1"
	ColWalletBalance    = "saldocartera"
)

// SourceColumns is the column set requested from the data source.
var SourceColumns = []string{
	ColNotificationDate, ColObjectionDate, ColEntity, ColDocID, ColSeries,
	ColInvoiceNumber, ColItemValue, ColItemType, ColResponseDate, ColFolderID,
	ColFilingDate, ColStatus, ColWalletBalance,
}

// DateRange is the notification-date span of the stored data. OK is false
// when the store holds no dated rows.
type DateRange struct {
	Min time.Time
	Max time.Time
	OK  bool
}

// Source is the external data store.
type Source interface {
	Glosas(ctx context.Context, window Window) ([]map[string]any, error)
	NotificationRange(ctx context.Context) (DateRange, error)
}

// Load fetches raw rows for the window and normalises them. An empty result
// is not an error.
func Load(ctx context.Context, src Source, window Window) ([]LineItem, error) {
	rows, err := src.Glosas(ctx, window)
	if err != nil {
		return nil, &DataSourceError{Op: "load glosas", Err: err}
	}
	return Normalize(rows), nil
}

// Normalize casts raw rows into line items and drops rows whose status is
// outside the valid set. Unparsable dates become nil, missing numbers zero.
func Normalize(rows []map[string]any) []LineItem {
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		status := strings.TrimSpace(toString(row[ColStatus]))
		if !Status(status).Valid() {
			continue
		}
		items = append(items, LineItem{
			NotificationDate: toTime(row[ColNotificationDate]),
			ObjectionDate:    toTime(row[ColObjectionDate]),
			Entity:           toString(row[ColEntity]),
			Series:           toString(row[ColSeries]),
			InvoiceNumber:    toString(row[ColInvoiceNumber]),
			DocID:            toString(row[ColDocID]),
			ItemValue:        toFloat64(row[ColItemValue]),
			ItemType:         toString(row[ColItemType]),
			ResponseDate:     toTime(row[ColResponseDate]),
			FolderID:         toInt64(row[ColFolderID]),
			FilingDate:       toTime(row[ColFilingDate]),
			Status:           status,
			WalletBalance:    toFloat64(row[ColWalletBalance]),
		})
	}
	return items
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func toTime(v any) *time.Time {
	var t time.Time
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return nil
		}
		t = *val
	case pgtype.Date:
		if !val.Valid {
			return nil
		}
		t = val.Time
	case pgtype.Timestamp:
		if !val.Valid {
			return nil
		}
		t = val.Time
	case pgtype.Timestamptz:
		if !val.Valid {
			return nil
		}
		t = val.Time
	case []byte:
		return parseTime(string(val))
	case string:
		return parseTime(val)
	default:
		return nil
	}
	if t.IsZero() || t.Year() <= 1 {
		return nil
	}
	return &t
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.Year() <= 1 {
				return nil
			}
			return &t
		}
	}
	return nil
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return floatToInt(f)
	case pgtype.Int8:
		if !val.Valid {
			return 0
		}
		return val.Int64
	case pgtype.Int4:
		if !val.Valid {
			return 0
		}
		return int64(val.Int32)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return floatToInt(f.Float64)
	case []byte:
		return parseInt(string(val))
	case string:
		return parseInt(val)
	default:
		return 0
	}
}

func parseInt(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return floatToInt(f)
	}
	return 0
}

func floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float32:
		return float64(val)
	case float64:
		if math.IsNaN(val) {
			return 0
		}
		return val
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case int:
		return float64(val)
	case uint64:
		return float64(val)
	case uint32:
		return float64(val)
	case uint:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	case pgtype.Float8:
		if !val.Valid {
			return 0
		}
		return val.Float64
	case []byte:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	default:
		return 0
	}
}

func parseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case pgtype.Text:
		if !val.Valid {
			return ""
		}
		return val.String
	case pgtype.Numeric:
		i, err := val.Int64Value()
		if err == nil && i.Valid {
			return strconv.FormatInt(i.Int64, 10)
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return ""
	}
}
