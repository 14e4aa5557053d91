package glosas

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/cartera-salud/glosas/internal/shared"
)

// Page is one page of invoice summary rows.
type Page struct {
	Rows       []ReportRow `json:"data"`
	Page       int         `json:"pagina_actual"`
	TotalPages int         `json:"total_paginas"`
	Total      int         `json:"total_registros"`
}

// EmptyPage is returned when no summary row matches.
func EmptyPage() Page {
	return Page{Rows: []ReportRow{}, Page: 1}
}

// PageQuery selects summary rows for pagination.
type PageQuery struct {
	Categories []Category
	Page       int
	PerPage    int
	Entity     string
}

// Paginate slices the summary rows of the requested categories, optionally
// restricted to one entity.
func Paginate(c Classification, q PageQuery) Page {
	if c.NoData || len(q.Categories) == 0 {
		return EmptyPage()
	}
	items := c.Items(q.Categories...)
	if len(items) == 0 {
		return EmptyPage()
	}
	summaries := FilterKind(Reshape(items), RowSummary)
	if entity := strings.TrimSpace(q.Entity); entity != "" {
		match := entityMatcher(entity)
		filtered := make([]ReportRow, 0, len(summaries))
		for _, row := range summaries {
			if match(row.Entity) {
				filtered = append(filtered, row)
			}
		}
		summaries = filtered
	}

	p := shared.NewPagination(q.Page, q.PerPage, len(summaries))
	start, end := p.Bounds()
	return Page{
		Rows:       summaries[start:end],
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
}

var entityFolder = cases.Fold()

func foldEntity(s string) string {
	return entityFolder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// entityMatcher compares entity names ignoring case, surrounding space and
// unicode normalisation form.
func entityMatcher(entity string) func(string) bool {
	want := foldEntity(entity)
	return func(candidate string) bool {
		return foldEntity(candidate) == want
	}
}

// DetailRows returns the detail rows of every invoice carrying docID.
func DetailRows(items []LineItem, docID int64) []ReportRow {
	matched := make([]LineItem, 0)
	for _, item := range items {
		id, err := strconv.ParseInt(strings.TrimSpace(item.DocID), 10, 64)
		if err != nil || id != docID {
			continue
		}
		matched = append(matched, item)
	}
	if len(matched) == 0 {
		return []ReportRow{}
	}
	return FilterKind(Reshape(matched), RowDetail)
}

// LookupResult is the outcome of a multi-invoice lookup.
type LookupResult struct {
	Found        []ReportRow `json:"encontrados"`
	NotFound     []string    `json:"no_encontrados"`
	TotalBalance float64     `json:"saldo_total_acumulado"`
}

// Lookup finds invoices by label (series + number). Found rows follow the
// requested order and repeat for repeated ids. NotFound lists each missing id
// once. TotalBalance sums each found invoice once.
func Lookup(items []LineItem, ids []string) LookupResult {
	result := LookupResult{Found: []ReportRow{}, NotFound: []string{}}

	requested := make([]string, 0, len(ids))
	wanted := make(map[string]string, len(ids))
	for _, raw := range ids {
		id := normalizeLabel(raw)
		if id == "" {
			continue
		}
		requested = append(requested, id)
		if _, ok := wanted[id]; !ok {
			wanted[id] = strings.TrimSpace(raw)
		}
	}
	if len(wanted) == 0 {
		return result
	}

	matched := make([]LineItem, 0)
	for _, item := range items {
		if _, ok := wanted[normalizeLabel(item.InvoiceLabel())]; ok {
			matched = append(matched, item)
		}
	}

	byLabel := make(map[string][]ReportRow)
	for _, row := range Reshape(matched) {
		label := normalizeLabel(row.Invoice)
		byLabel[label] = append(byLabel[label], row)
		if row.Kind == RowSummary {
			result.TotalBalance += row.Value
		}
	}

	reported := make(map[string]struct{})
	for _, id := range requested {
		rows, ok := byLabel[id]
		if !ok {
			if _, dup := reported[id]; !dup {
				result.NotFound = append(result.NotFound, wanted[id])
				reported[id] = struct{}{}
			}
			continue
		}
		result.Found = append(result.Found, rows...)
	}
	return result
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
