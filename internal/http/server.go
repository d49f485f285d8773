package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/currency"
	applog "invoicer/internal/log"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/middleware/security"
	"invoicer/internal/middleware/trace"
	"invoicer/internal/pdf"
	"invoicer/internal/receipts"
	"invoicer/internal/services"
	appweb "invoicer/web"
)

// requestTimeout bounds repository calls made by a handler.
const requestTimeout = 7 * time.Second

// InvoiceService is the write and lookup side used by the handlers.
type InvoiceService interface {
	ListInvoices(ctx context.Context) ([]core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	CreateInvoice(ctx context.Context, form core.InvoiceForm) (core.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, form core.InvoiceForm) (core.Invoice, error)
	SetStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error)
	ListCustomers(ctx context.Context) ([]core.Customer, error)
	GetCustomer(ctx context.Context, id string) (core.Customer, error)
	CreateCustomer(ctx context.Context, form core.CustomerForm) (core.Customer, error)
	ListPurchases(ctx context.Context) ([]core.Purchase, error)
	RecordPurchase(ctx context.Context, p core.Purchase) (core.Purchase, error)
}

// DashboardService computes the read-only views.
type DashboardService interface {
	Revenue(ctx context.Context, tf core.Timeframe) (core.RevenueSeries, error)
	Summary(ctx context.Context) (core.Summary, error)
	Overview(ctx context.Context, tf core.Timeframe) (services.Overview, error)
}

// Pinger is a readiness dependency such as the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SizedCache is a cache the server sweeps and reports on.
type SizedCache interface {
	cache.Cleaner
	Size() int
}

// Deps are the collaborators NewServer wires into the handlers.
type Deps struct {
	Invoices  InvoiceService
	Dashboard DashboardService
	Receipts  receipts.Store
	// ReceiptDir is served under /receipts/ when set.
	ReceiptDir     string
	Currency       currency.Formatter
	Seller         pdf.Seller
	DefaultVATRate decimal.Decimal
	MaxUploadBytes int64
	// Checks are pinged by /readyz, keyed by name.
	Checks  map[string]Pinger
	Caches  map[string]SizedCache
	Logger  *applog.Logger
	Limiter ratelimit.Config
	// TrustedProxies are extra CIDRs whose forwarded headers are honoured.
	TrustedProxies []string
}

// appMetrics counts domain events for /metrics.
type appMetrics struct {
	invoicesCreated  int64
	customersCreated int64
	receiptsUploaded int64
	uptime           time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	invoices  InvoiceService
	dashboard DashboardService
	receipts  receipts.Store
	money     currency.Formatter
	seller    pdf.Seller
	vatRate   decimal.Decimal
	maxUpload int64
	checks    map[string]Pinger
	caches    map[string]SizedCache
	logger    *applog.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Invoices == nil || deps.Dashboard == nil {
		return nil, errors.New("invoice and dashboard services are required")
	}
	if deps.Currency == nil {
		f, err := currency.NewFixed(currency.Base)
		if err != nil {
			return nil, err
		}
		deps.Currency = f
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.Config{Handler: slog.Default().Handler()})
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	if deps.Limiter.RequestsPerMinute == 0 && len(deps.Limiter.Methods) == 0 {
		deps.Limiter = ratelimit.DefaultConfig()
	}
	if deps.DefaultVATRate.IsZero() {
		deps.DefaultVATRate = core.DefaultVATRate
	}

	s := &Server{
		invoices:         deps.Invoices,
		dashboard:        deps.Dashboard,
		receipts:         deps.Receipts,
		money:            deps.Currency,
		seller:           deps.Seller,
		vatRate:          deps.DefaultVATRate,
		maxUpload:        deps.MaxUploadBytes,
		checks:           deps.Checks,
		caches:           deps.Caches,
		logger:           deps.Logger.WithComponent(applog.ComponentHTTP),
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(deps.Limiter),
		cacheManager:     cache.NewManager(),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP,
		applog.NewStructuredLogger(deps.Logger.WithComponent(applog.ComponentTrace)))

	for _, c := range s.caches {
		s.cacheManager.Register(c)
	}
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := parseTemplates(s.money)
	if err != nil {
		s.stopBackground()
		return nil, err
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(deps.ReceiptDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// parseTemplates loads the embedded templates with the view helpers.
func parseTemplates(money currency.Formatter) (*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return money.Format(d) },
		"date":  formatDate,
		"pct":   func(d decimal.Decimal) string { return d.StringFixed(0) },
		"add":   func(a, b int) int { return a + b },
	}
	return template.New("invoicer").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes(receiptDir string) http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}
	if receiptDir != "" {
		mux.Handle("GET /receipts/", http.StripPrefix("/receipts/", http.FileServer(http.Dir(receiptDir))))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Dashboard
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /ui/revenue", s.handleRevenueChart)
	mux.HandleFunc("GET /api/revenue", s.handleAPIRevenue)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)

	// Customers
	mux.HandleFunc("GET /customers", s.handleCustomers)
	mux.HandleFunc("GET /customers/new", s.handleCustomerForm)
	mux.HandleFunc("POST /customers", s.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers", s.handleAPIListCustomers)
	mux.HandleFunc("POST /api/customers", s.handleAPICreateCustomer)

	// Invoices
	mux.HandleFunc("GET /invoices/new", s.handleInvoiceForm)
	mux.HandleFunc("POST /invoices", s.handleCreateInvoice)
	mux.HandleFunc("POST /invoices/{id}/paid", s.handleSetStatus(core.StatusPaid))
	mux.HandleFunc("POST /invoices/{id}/unpaid", s.handleSetStatus(core.StatusUnpaid))
	mux.HandleFunc("GET /invoices/{id}/download", s.handleDownloadInvoice)
	mux.HandleFunc("GET /invoices/{id}/pdf", s.handleInvoicePDF)
	mux.HandleFunc("GET /invoices/{id}/print", s.handlePrintInvoice)
	mux.HandleFunc("GET /api/invoices", s.handleAPIListInvoices)
	mux.HandleFunc("POST /api/invoices", s.handleAPICreateInvoice)
	mux.HandleFunc("GET /api/invoices/{id}", s.handleAPIGetInvoice)
	mux.HandleFunc("PUT /api/invoices/{id}", s.handleAPIUpdateInvoice)
	mux.HandleFunc("POST /api/totals", s.handleTotalsPreview)
	mux.HandleFunc("POST /api/quote", s.handleQuote)

	// Bookkeeping
	mux.HandleFunc("GET /bookkeeping", s.handleBookkeeping)
	mux.HandleFunc("POST /bookkeeping/receipts", s.handleUploadReceipt)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.LoggerMiddleware(s.logger)(h)
	h = s.securityDetector.Middleware(s.logger)(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
			TriggerErrorNotification("Too many requests, please slow down").
			Write(w)
		return
	}
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
}

func (s *Server) stopBackground() {
	s.rateLimiter.Stop()
	s.cacheManager.Stop()
}

// Shutdown gracefully shuts down the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countInvoice()  { atomic.AddInt64(&s.appMetrics.invoicesCreated, 1) }
func (s *Server) countCustomer() { atomic.AddInt64(&s.appMetrics.customersCreated, 1) }
func (s *Server) countReceipt()  { atomic.AddInt64(&s.appMetrics.receiptsUploaded, 1) }

// isHTMX reports whether r was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
