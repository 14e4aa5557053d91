package glosashttp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cartera-salud/glosas/internal/glosas"
	"github.com/cartera-salud/glosas/internal/glosas/export"
)

type stubService struct {
	rng         glosas.DateRange
	stats       glosas.Stats
	reports     []glosas.CategoryReport
	page        glosas.Page
	detail      []glosas.ReportRow
	lookup      glosas.LookupResult
	err         error
	lastWindow  glosas.Window
	lastQuery   glosas.PageQuery
	lastDocID   int64
	lastIDs     []string
	invalidated bool
}

func (s *stubService) DateRange(context.Context) (glosas.DateRange, error) { return s.rng, s.err }

func (s *stubService) Analyze(_ context.Context, w glosas.Window) (glosas.Stats, error) {
	s.lastWindow = w
	return s.stats, s.err
}

func (s *stubService) Reports(_ context.Context, w glosas.Window) ([]glosas.CategoryReport, error) {
	s.lastWindow = w
	if s.err != nil {
		return nil, s.err
	}
	if len(s.reports) == 0 {
		return nil, glosas.ErrNotFound
	}
	return s.reports, nil
}

func (s *stubService) Summaries(_ context.Context, w glosas.Window, q glosas.PageQuery) (glosas.Page, error) {
	s.lastWindow, s.lastQuery = w, q
	return s.page, s.err
}

func (s *stubService) InvoiceDetail(_ context.Context, docID int64) ([]glosas.ReportRow, error) {
	s.lastDocID = docID
	return s.detail, s.err
}

func (s *stubService) LookupInvoices(_ context.Context, ids []string) (glosas.LookupResult, error) {
	s.lastIDs = ids
	return s.lookup, s.err
}

func (s *stubService) Invalidate(context.Context) error {
	s.invalidated = true
	return s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func serve(t *testing.T, svc ReportService, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	h := NewHandler(nil, svc, 20)
	h.WithNow(func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func sampleRows() []glosas.ReportRow {
	filed := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	return glosas.Reshape([]glosas.LineItem{
		{Series: "FE", InvoiceNumber: "1", DocID: "10", Status: "C1", FolderID: 3, FilingDate: &filed, WalletBalance: 900},
	})
}

func TestDateRange(t *testing.T) {
	svc := &stubService{rng: glosas.DateRange{
		Min: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		OK:  true,
	}}
	rec, env := serve(t, svc, http.MethodGet, "/api/reportes/rango-fechas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.JSONEq(t, `{"fecha_min":"2023-05-01","fecha_max":"2024-01-06"}`, string(env.Data))

	_, env = serve(t, &stubService{}, http.MethodGet, "/api/reportes/rango-fechas", "")
	require.True(t, env.Success)
	require.Equal(t, "null", string(env.Data))
}

func TestAnalyze(t *testing.T) {
	svc := &stubService{stats: glosas.Stats{IntegrityOK: true, TotalInvoices: 4}}
	rec, env := serve(t, svc, http.MethodGet, "/api/reportes/analizar-y-comprobar?fecha_inicio=2024-01-01&fecha_fin=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.Equal(t, "2024-01-01_a_2024-01-31", svc.lastWindow.String())

	var stats map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Equal(t, true, stats["comprobacion_exitosa"])
	require.EqualValues(t, 4, stats["total_facturas_base"])
}

func TestAnalyzeRejectsHalfWindow(t *testing.T) {
	rec, env := serve(t, &stubService{}, http.MethodGet, "/api/reportes/analizar-y-comprobar?fecha_inicio=2024-01-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.Contains(t, env.Message, "fecha_fin")
}

func TestAnalyzeDataSourceFailure(t *testing.T) {
	svc := &stubService{err: &glosas.DataSourceError{Op: "load glosas", Err: context.DeadlineExceeded}}
	rec, env := serve(t, svc, http.MethodGet, "/api/reportes/analizar-y-comprobar", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "Ocurrió un error durante el análisis.", env.Message)
	require.NotEmpty(t, env.Error)
}

func TestExcelDownload(t *testing.T) {
	svc := &stubService{reports: []glosas.CategoryReport{{Category: glosas.CategoryT1, Rows: sampleRows()}}}
	rec, _ := serve(t, svc, http.MethodGet, "/api/reportes/descargar-excel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="Reporte_de_Radicaciones_2024-03-09.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Radicadas"}, f.GetSheetList())
}

func TestExcelNoData(t *testing.T) {
	rec, env := serve(t, &stubService{}, http.MethodGet, "/api/reportes/descargar-excel?fecha_inicio=2024-01-01&fecha_fin=2024-01-02", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No se encontraron datos para generar el Excel con los filtros aplicados.", env.Message)
}

func TestSummaries(t *testing.T) {
	rows := glosas.FilterKind(sampleRows(), glosas.RowSummary)
	svc := &stubService{page: glosas.Page{Rows: rows, Page: 2, TotalPages: 3, Total: 11}}
	target := "/api/reportes/resumenes-paginados?fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T2,t3,Mixtas&pagina=2&por_pagina=5&entidad=EPS%20SUR"
	rec, env := serve(t, svc, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []glosas.Category{glosas.CategoryT2, glosas.CategoryT3, glosas.CategoryMixed}, svc.lastQuery.Categories)
	require.Equal(t, 2, svc.lastQuery.Page)
	require.Equal(t, 5, svc.lastQuery.PerPage)
	require.Equal(t, "EPS SUR", svc.lastQuery.Entity)

	var page struct {
		Data       []map[string]any `json:"data"`
		Page       int              `json:"pagina_actual"`
		TotalPages int              `json:"total_paginas"`
		Total      int              `json:"total_registros"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 11, page.Total)
	require.Len(t, page.Data, 1)
	require.Equal(t, "FE1", page.Data[0]["FACTURA"])
}

func TestSummariesValidation(t *testing.T) {
	base := "/api/reportes/resumenes-paginados?"
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"missing dates", "categorias=T1", "Faltan parámetros requeridos (fechas, categorias)."},
		{"missing categories", "fecha_inicio=2024-01-01&fecha_fin=2024-01-31", "Faltan parámetros requeridos (fechas, categorias)."},
		{"bad date", "fecha_inicio=01-01-2024&fecha_fin=2024-01-31&categorias=T1", "Las fechas deben tener el formato YYYY-MM-DD."},
		{"bad page", "fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T1&pagina=0", "La página debe ser mayor o igual a 1."},
		{"page not a number", "fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T1&pagina=x", "La página debe ser un número válido."},
		{"page size too large", "fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T1&por_pagina=500", "El tamaño de página debe estar entre 1 y 200."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, &stubService{}, http.MethodGet, base+tc.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.want, env.Message)
		})
	}

	rec, env := serve(t, &stubService{}, http.MethodGet, base+"fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T7", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, env.Message, "T7")
}

func TestDetail(t *testing.T) {
	svc := &stubService{detail: glosas.FilterKind(sampleRows(), glosas.RowDetail)}
	rec, env := serve(t, svc, http.MethodGet, "/api/reportes/detalle-factura?docn=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(10), svc.lastDocID)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "2024-01-09", rows[0]["fecha_rep"])
	require.Equal(t, "", rows[0]["Total_Items_Factura"])

	rec, _ = serve(t, svc, http.MethodGet, "/api/reportes/detalle-factura", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, env = serve(t, svc, http.MethodGet, "/api/reportes/detalle-factura?docn=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "El gl_docn debe ser un número válido.", env.Message)
}

func TestLookup(t *testing.T) {
	svc := &stubService{lookup: glosas.LookupResult{Found: sampleRows(), NotFound: []string{"ZZ9"}, TotalBalance: 900}}
	rec, env := serve(t, svc, http.MethodPost, "/api/reportes/buscar-facturas", `{"ids":[" FE1 ", "ZZ9", 77]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"FE1", "ZZ9", "77"}, svc.lastIDs)

	var result struct {
		Found        []map[string]any `json:"encontrados"`
		NotFound     []string         `json:"no_encontrados"`
		TotalBalance float64          `json:"saldo_total_acumulado"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Found, 2)
	require.Equal(t, []string{"ZZ9"}, result.NotFound)
	require.Equal(t, 900.0, result.TotalBalance)
}

func TestLookupRejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{`{}`, `{"ids":"FE1"}`, `{"ids":[]}`, `{"ids":[""]}`, `{"ids":[{"a":1}]}`, `not json`} {
		rec, env := serve(t, &stubService{}, http.MethodPost, "/api/reportes/buscar-facturas", body)
		require.Equalf(t, http.StatusBadRequest, rec.Code, "body %s", body)
		require.False(t, env.Success)
	}
}

func TestInvalidate(t *testing.T) {
	svc := &stubService{}
	rec, env := serve(t, svc, http.MethodPost, "/api/reportes/cache/invalidar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.True(t, svc.invalidated)
}

type rowsSource struct {
	rows []map[string]any
}

func (s rowsSource) Glosas(context.Context, glosas.Window) ([]map[string]any, error) {
	return s.rows, nil
}

func (s rowsSource) NotificationRange(context.Context) (glosas.DateRange, error) {
	return glosas.DateRange{}, nil
}

func TestSummariesPagePastEndIsEmpty(t *testing.T) {
	rows := make([]map[string]any, 0, 3)
	for i, folder := range []int64{0, 0, 9} {
		rows = append(rows, map[string]any{
			glosas.ColNotificationDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			glosas.ColEntity:           "EPS SUR",
			glosas.ColDocID:            int64(100 + i),
			glosas.ColSeries:           "FE",
			glosas.ColInvoiceNumber:    strconv.Itoa(i + 1),
			glosas.ColItemValue:        1000.0,
			glosas.ColFolderID:         folder,
			glosas.ColStatus:           "C1",
		})
	}
	svc := glosas.NewService(rowsSource{rows: rows}, nil, nil, nil, glosas.ServiceConfig{})

	for _, page := range []string{strconv.Itoa(math.MaxInt), "999"} {
		target := "/api/reportes/resumenes-paginados?fecha_inicio=2024-01-01&fecha_fin=2024-01-31&categorias=T2,T3&pagina=" + page
		rec, env := serve(t, svc, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, page)

		var body pageResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		require.Empty(t, body.Data)
		require.Equal(t, 3, body.Total)
		require.Equal(t, 1, body.TotalPages)
	}
}
