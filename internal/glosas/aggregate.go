package glosas

import (
	"sort"
	"time"
)

// DefaultEntityLimit caps the per-entity breakdown.
const DefaultEntityLimit = 15

// NoDataMessage marks a dashboard computed over an empty window.
const NoDataMessage = "No hay datos en el rango de fechas seleccionado."

// EntityCount is the number of unfiled invoices of one entity.
type EntityCount struct {
	Entity   string `json:"nom_entidad"`
	Invoices int    `json:"total_facturas"`
}

// StatusCount is the number of unfiled items carrying one status.
type StatusCount struct {
	Status string `json:"estatus1"`
	Items  int    `json:"total_items"`
}

// Stats is the dashboard aggregate for one window.
type Stats struct {
	NoData        string        `json:"error,omitempty"`
	IntegrityOK   bool          `json:"comprobacion_exitosa"`
	TotalInvoices int           `json:"total_facturas_base"`
	Categorized   int           `json:"suma_categorizadas"`
	TotalValue    float64       `json:"valor_total_periodo"`
	UnfiledValue  float64       `json:"valor_total_no_radicado"`
	FiledValue    float64       `json:"valor_total_radicado"`
	T1            int           `json:"facturas_t1"`
	T2            int           `json:"facturas_t2"`
	T3            int           `json:"facturas_t3"`
	T4            int           `json:"facturas_t4"`
	Mixed         int           `json:"facturas_mixtas"`
	ByEntity      []EntityCount `json:"conteo_por_entidad"`
	ByStatus      []StatusCount `json:"conteo_por_estatus"`
	Trend         []TrendPoint  `json:"ingresos_por_periodo"`
	Granularity   Granularity   `json:"granularidad_ingresos"`
	AnalyzedAt    string        `json:"timestamp_analisis,omitempty"`
	AnalysisID    string        `json:"id_analisis,omitempty"`
}

// Aggregate computes the dashboard KPIs of a classification. Unfiled means
// every invoice outside T1. The trend uses window, or the span of the data
// when window is zero.
func Aggregate(c Classification, window Window, entityLimit int) Stats {
	stats := Stats{
		IntegrityOK: c.IntegrityOK,
		ByEntity:    []EntityCount{},
		ByStatus:    []StatusCount{},
		Trend:       []TrendPoint{},
		Granularity: GranularityNone,
	}
	if c.NoData {
		stats.NoData = NoDataMessage
		return stats
	}
	if entityLimit <= 0 {
		entityLimit = DefaultEntityLimit
	}

	stats.TotalInvoices = c.TotalInvoices
	stats.Categorized = c.Categorized
	stats.T1 = c.Count(CategoryT1)
	stats.T2 = c.Count(CategoryT2)
	stats.T3 = c.Count(CategoryT3)
	stats.T4 = c.Count(CategoryT4)
	stats.Mixed = c.Count(CategoryMixed)

	stats.TotalValue = sumBalances(c.Base)
	stats.FiledValue = sumBalances(c.Tables[CategoryT1])

	filed := make(map[invoiceKey]struct{}, len(c.keys[CategoryT1]))
	for _, k := range c.keys[CategoryT1] {
		filed[k] = struct{}{}
	}
	unfiled := filterByInvoice(c.Base, filed, false)
	stats.UnfiledValue = sumBalances(unfiled)
	stats.ByEntity = entityBreakdown(unfiled, entityLimit)
	stats.ByStatus = statusBreakdown(unfiled)

	if window.IsZero() {
		window = dataWindow(c.Base)
	}
	if !window.IsZero() {
		stats.Trend, stats.Granularity = Trend(c.Base, window)
	}
	return stats
}

// sumBalances adds the wallet balance of each invoice once.
func sumBalances(items []LineItem) float64 {
	seen := make(map[invoiceKey]struct{})
	var total float64
	for _, item := range items {
		k := item.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		total += item.WalletBalance
	}
	return total
}

func entityBreakdown(items []LineItem, limit int) []EntityCount {
	invoices := make(map[string]map[invoiceKey]struct{})
	for _, item := range items {
		set, ok := invoices[item.Entity]
		if !ok {
			set = make(map[invoiceKey]struct{})
			invoices[item.Entity] = set
		}
		set[item.key()] = struct{}{}
	}
	out := make([]EntityCount, 0, len(invoices))
	for entity, set := range invoices {
		out = append(out, EntityCount{Entity: entity, Invoices: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Invoices != out[j].Invoices {
			return out[i].Invoices > out[j].Invoices
		}
		return out[i].Entity < out[j].Entity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func statusBreakdown(items []LineItem) []StatusCount {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Items: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := statusRank(out[i].Status), statusRank(out[j].Status)
		if ri != rj {
			return ri < rj
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func dataWindow(items []LineItem) Window {
	var min, max *time.Time
	for _, item := range items {
		min = minTime(min, item.NotificationDate)
		max = maxTime(max, item.NotificationDate)
	}
	if min == nil || max == nil {
		return Window{}
	}
	return Window{From: truncateDay(*min), To: truncateDay(*max)}
}
