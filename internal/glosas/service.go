package glosas

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig tunes cache lifetimes and result caps.
type ServiceConfig struct {
	ItemsTTL    time.Duration
	RangeTTL    time.Duration
	EntityLimit int
	PerPage     int
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.ItemsTTL <= 0 {
		c.ItemsTTL = 5 * time.Minute
	}
	if c.RangeTTL <= 0 {
		c.RangeTTL = time.Hour
	}
	if c.EntityLimit <= 0 {
		c.EntityLimit = DefaultEntityLimit
	}
	if c.PerPage <= 0 {
		c.PerPage = 20
	}
	return c
}

// Service runs the classification pipeline per request. Every call loads
// its own data (through the optional cache) and shares nothing mutable.
type Service struct {
	source  Source
	cache   *Cache
	logger  *slog.Logger
	metrics *Metrics
	cfg     ServiceConfig
	now     func() time.Time
	newID   func() string
}

// NewService wires the data source with the optional cache and metrics.
func NewService(source Source, cache *Cache, logger *slog.Logger, metrics *Metrics, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:  source,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// PerPage is the configured default page size.
func (s *Service) PerPage() int {
	return s.cfg.PerPage
}

// DateRange returns the notification-date span of all stored data.
func (s *Service) DateRange(ctx context.Context) (DateRange, error) {
	var out DateRange
	key := s.cache.Key("range")
	err := s.cache.Fetch(ctx, key, s.cfg.RangeTTL, &out, func(ctx context.Context) (any, error) {
		r, err := s.source.NotificationRange(ctx)
		if err != nil {
			return nil, &DataSourceError{Op: "notification range", Err: err}
		}
		return r, nil
	})
	return out, err
}

// Items loads the normalised line items of a window. The zero window is the
// single unwindowed slot.
func (s *Service) Items(ctx context.Context, window Window) ([]LineItem, error) {
	var items []LineItem
	key := s.cache.Key("items", window.String())
	err := s.cache.Fetch(ctx, key, s.cfg.ItemsTTL, &items, func(ctx context.Context) (any, error) {
		start := time.Now()
		loaded, err := Load(ctx, s.source, window)
		s.metrics.observeLoad(start, len(loaded), err)
		if err != nil {
			s.logger.Error("load glosas", slog.String("window", window.String()), slog.Any("error", err))
			return nil, err
		}
		if len(loaded) == 0 {
			s.logger.Warn("load glosas returned no rows", slog.String("window", window.String()))
		} else {
			s.logger.Info("loaded glosas", slog.String("window", window.String()), slog.Int("items", len(loaded)), slog.Duration("duration", time.Since(start)))
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}

// Classify loads and classifies a window, reporting integrity failures.
func (s *Service) Classify(ctx context.Context, window Window) (Classification, error) {
	items, err := s.Items(ctx, window)
	if err != nil {
		return Classification{}, err
	}
	c := Classify(items)
	if !c.IntegrityOK {
		s.metrics.integrityViolation()
		s.logger.Error("classification integrity violation",
			slog.String("window", window.String()),
			slog.Int("total_invoices", c.TotalInvoices),
			slog.Int("categorized", c.Categorized),
			slog.Int("t1", c.Count(CategoryT1)),
			slog.Int("t2", c.Count(CategoryT2)),
			slog.Int("t3", c.Count(CategoryT3)),
			slog.Int("t4", c.Count(CategoryT4)),
			slog.Int("mixed", c.Count(CategoryMixed)),
		)
	}
	return c, nil
}

// Analyze computes the dashboard for a window.
func (s *Service) Analyze(ctx context.Context, window Window) (Stats, error) {
	c, err := s.Classify(ctx, window)
	if err != nil {
		return Stats{}, err
	}
	stats := Aggregate(c, window, s.cfg.EntityLimit)
	stats.AnalyzedAt = s.now().Format("2006-01-02T15:04:05.000000")
	stats.AnalysisID = s.newID()
	return stats, nil
}

// CategoryReport is the reshaped report of one category.
type CategoryReport struct {
	Category Category
	Rows     []ReportRow
}

// Reports reshapes every non-empty category of a window in report order.
// ErrNotFound is returned when all categories are empty.
func (s *Service) Reports(ctx context.Context, window Window) ([]CategoryReport, error) {
	c, err := s.Classify(ctx, window)
	if err != nil {
		return nil, err
	}
	reports := make([]CategoryReport, 0, len(Categories))
	for _, cat := range Categories {
		items := c.Tables[cat]
		if len(items) == 0 {
			continue
		}
		reports = append(reports, CategoryReport{Category: cat, Rows: Reshape(items)})
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports, nil
}

// Summaries returns one page of summary rows.
func (s *Service) Summaries(ctx context.Context, window Window, q PageQuery) (Page, error) {
	if q.PerPage <= 0 {
		q.PerPage = s.cfg.PerPage
	}
	c, err := s.Classify(ctx, window)
	if err != nil {
		return Page{}, err
	}
	return Paginate(c, q), nil
}

// InvoiceDetail returns the detail rows of a patient document over all data.
func (s *Service) InvoiceDetail(ctx context.Context, docID int64) ([]ReportRow, error) {
	items, err := s.Items(ctx, Window{})
	if err != nil {
		return nil, err
	}
	return DetailRows(items, docID), nil
}

// LookupInvoices searches all data for the given invoice labels.
func (s *Service) LookupInvoices(ctx context.Context, ids []string) (LookupResult, error) {
	items, err := s.Items(ctx, Window{})
	if err != nil {
		return LookupResult{}, err
	}
	return Lookup(items, ids), nil
}

// Invalidate drops every cached load.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}
