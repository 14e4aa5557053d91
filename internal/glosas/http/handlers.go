package glosashttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cartera-salud/glosas/internal/glosas"
	"github.com/cartera-salud/glosas/internal/glosas/export"
	"github.com/cartera-salud/glosas/internal/platform/httpx"
)

const maxLookupBody = 1 << 20

// ReportService is the engine contract used by the handlers.
type ReportService interface {
	DateRange(ctx context.Context) (glosas.DateRange, error)
	Analyze(ctx context.Context, window glosas.Window) (glosas.Stats, error)
	Reports(ctx context.Context, window glosas.Window) ([]glosas.CategoryReport, error)
	Summaries(ctx context.Context, window glosas.Window, q glosas.PageQuery) (glosas.Page, error)
	InvoiceDetail(ctx context.Context, docID int64) ([]glosas.ReportRow, error)
	LookupInvoices(ctx context.Context, ids []string) (glosas.LookupResult, error)
	Invalidate(ctx context.Context) error
}

// Handler serves the glosas report API.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	validator *validator.Validate
	perPage   int
	now       func() time.Time
}

// NewHandler constructs the report handler. perPage is the default page size.
func NewHandler(logger *slog.Logger, service ReportService, perPage int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if perPage <= 0 {
		perPage = 20
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		perPage:   perPage,
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type dateRangeResponse struct {
	Min string `json:"fecha_min"`
	Max string `json:"fecha_max"`
}

func (h *Handler) handleDateRange(w http.ResponseWriter, r *http.Request) {
	rng, err := h.service.DateRange(r.Context())
	if err != nil {
		h.fail(w, "rango fechas", "Error al obtener rango de fechas.", err)
		return
	}
	if !rng.OK {
		httpx.OK(w, "", nil)
		return
	}
	httpx.OK(w, "", dateRangeResponse{
		Min: rng.Min.Format(export.LayoutDate),
		Max: rng.Max.Format(export.LayoutDate),
	})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		httpx.RespondError(w, "", err)
		return
	}
	stats, err := h.service.Analyze(r.Context(), window)
	if err != nil {
		h.fail(w, "analyze", "Ocurrió un error durante el análisis.", err)
		return
	}
	httpx.OK(w, "Análisis finalizado con éxito.", stats)
}

func (h *Handler) handleExcel(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		httpx.RespondError(w, "", err)
		return
	}
	reports, err := h.service.Reports(r.Context(), window)
	if errors.Is(err, glosas.ErrNotFound) {
		httpx.Fail(w, http.StatusNotFound, "No se encontraron datos para generar el Excel con los filtros aplicados.", "")
		return
	}
	if err != nil {
		h.fail(w, "reports", "Error al generar el archivo Excel.", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, reports); err != nil {
		h.fail(w, "write workbook", "Error al generar el archivo Excel.", err)
		return
	}
	filename := export.FileName(window, h.now())
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream workbook", slog.Any("error", err))
	}
}

type pageRequest struct {
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"required,datetime=2006-01-02"`
	Categories string `validate:"required"`
	Page       int    `validate:"min=1"`
	PerPage    int    `validate:"min=1,max=200"`
}

type pageResponse struct {
	Data       []map[string]any `json:"data"`
	Page       int              `json:"pagina_actual"`
	TotalPages int              `json:"total_paginas"`
	Total      int              `json:"total_registros"`
}

func (h *Handler) handleSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := pageRequest{
		From:       strings.TrimSpace(q.Get("fecha_inicio")),
		To:         strings.TrimSpace(q.Get("fecha_fin")),
		Categories: strings.TrimSpace(q.Get("categorias")),
		Page:       1,
		PerPage:    h.perPage,
	}
	if raw := strings.TrimSpace(q.Get("pagina")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "La página debe ser un número válido.", "")
			return
		}
		req.Page = page
	}
	if raw := strings.TrimSpace(q.Get("por_pagina")); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "El tamaño de página debe ser un número válido.", "")
			return
		}
		req.PerPage = perPage
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, pageValidationMessage(err), "")
		return
	}
	window, err := glosas.ParseWindow(req.From, req.To)
	if err != nil {
		httpx.RespondError(w, "", err)
		return
	}
	cats, err := parseCategories(req.Categories)
	if err != nil {
		httpx.RespondError(w, "", err)
		return
	}

	page, err := h.service.Summaries(r.Context(), window, glosas.PageQuery{
		Categories: cats,
		Page:       req.Page,
		PerPage:    req.PerPage,
		Entity:     q.Get("entidad"),
	})
	if err != nil {
		h.fail(w, "summaries", "Error al obtener resúmenes paginados.", err)
		return
	}
	httpx.OK(w, "", pageResponse{
		Data:       export.Records(page.Rows, export.RecordOptions{DateLayout: export.LayoutDateTime}),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	})
}

func pageValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "From", "To":
			if verrs[0].Tag() == "required" {
				return "Faltan parámetros requeridos (fechas, categorias)."
			}
			return "Las fechas deben tener el formato YYYY-MM-DD."
		case "Categories":
			return "Faltan parámetros requeridos (fechas, categorias)."
		case "Page":
			return "La página debe ser mayor o igual a 1."
		case "PerPage":
			return "El tamaño de página debe estar entre 1 y 200."
		}
	}
	return "Parámetros inválidos."
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("docn"))
	if raw == "" {
		httpx.Fail(w, http.StatusBadRequest, "Falta el identificador gl_docn.", "")
		return
	}
	docID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "El gl_docn debe ser un número válido.", "")
		return
	}
	rows, err := h.service.InvoiceDetail(r.Context(), docID)
	if err != nil {
		h.fail(w, "invoice detail", "Error al obtener el detalle de la factura.", err)
		return
	}
	httpx.OK(w, "", export.Records(rows, export.RecordOptions{DateLayout: export.LayoutDate, BlankNulls: true}))
}

type lookupRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required,max=64"`
}

type lookupResponse struct {
	Found        []map[string]any `json:"encontrados"`
	NotFound     []string         `json:"no_encontrados"`
	TotalBalance float64          `json:"saldo_total_acumulado"`
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLookupBody)
	var raw map[string]any
	if err := httpx.DecodeJSON(r, &raw); err != nil || raw == nil {
		httpx.Fail(w, http.StatusBadRequest, "Faltan los identificadores en la petición.", "")
		return
	}
	value, ok := raw["ids"]
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Faltan los identificadores en la petición.", "")
		return
	}
	list, ok := value.([]any)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Los identificadores deben ser una lista.", "")
		return
	}
	req := lookupRequest{IDs: make([]string, 0, len(list))}
	for _, item := range list {
		switch v := item.(type) {
		case string:
			req.IDs = append(req.IDs, strings.TrimSpace(v))
		case float64:
			req.IDs = append(req.IDs, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			httpx.Fail(w, http.StatusBadRequest, "Cada identificador debe ser un texto.", "")
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "La lista de identificadores es inválida: debe contener entre 1 y 1000 valores no vacíos.", "")
		return
	}

	result, err := h.service.LookupInvoices(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, "lookup invoices", "Error durante la búsqueda de facturas.", err)
		return
	}
	httpx.OK(w, "", lookupResponse{
		Found:        export.Records(result.Found, export.RecordOptions{DateLayout: export.LayoutDateTime}),
		NotFound:     result.NotFound,
		TotalBalance: result.TotalBalance,
	})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.fail(w, "invalidate cache", "Error al invalidar la caché.", err)
		return
	}
	httpx.OK(w, "Caché invalidada.", nil)
}

func (h *Handler) fail(w http.ResponseWriter, op, message string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, message, err)
}

func parseWindow(r *http.Request) (glosas.Window, error) {
	q := r.URL.Query()
	return glosas.ParseWindow(q.Get("fecha_inicio"), q.Get("fecha_fin"))
}

func parseCategories(raw string) ([]glosas.Category, error) {
	parts := strings.Split(raw, ",")
	cats := make([]glosas.Category, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		cat, ok := glosas.ParseCategory(part)
		if !ok {
			return nil, glosas.ValidationError{Field: "categorias", Message: fmt.Sprintf("categoría desconocida %q", strings.TrimSpace(part))}
		}
		cats = append(cats, cat)
	}
	if len(cats) == 0 {
		return nil, glosas.ValidationError{Field: "categorias", Message: "se requiere al menos una categoría"}
	}
	return cats, nil
}
