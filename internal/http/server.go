package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cattlevalue/internal/cache"
	"cattlevalue/internal/core"
	"cattlevalue/internal/dataset"
	"cattlevalue/internal/derive"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/log"
	appweb "cattlevalue/web"
)

// HerdManager is the herd editing surface the handlers need.
type HerdManager interface {
	Add(ctx context.Context, cattleType string, weight float64) (core.TrackedCattle, error)
	Edit(ctx context.Context, id, cattleType string, weight float64) (core.TrackedCattle, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Snapshot() (core.Herd, uint64)
	Dataset() *dataset.Dataset
	Ready() bool
}

// Options configures NewServer.
type Options struct {
	Addr string
	Herd HerdManager
	// Snapshots is nil when no persistent store is configured.
	Snapshots   herd.SnapshotLister
	Logger      *log.Logger
	DefaultBins int
	CacheSize   int
	CacheTTL    time.Duration
	// RateLimit is the number of mutating requests allowed per client per
	// minute.
	RateLimit int
}

// Server is the HTTP front end: the page, the herd list editor and the
// chart data endpoints.
type Server struct {
	http.Server
	templates   *template.Template
	herd        HerdManager
	snapshots   herd.SnapshotLister
	logger      *log.Logger
	events      *log.StructuredLogger
	defaultBins int
	rateLimiter *rateLimiter
	secMetrics  *securityMetrics
	startedAt   time.Time

	charts       *cache.LRU[chartKey, []byte]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

type chartKey struct {
	kind    string
	version uint64
	a, b    string
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.DefaultBins <= 0 {
		opts.DefaultBins = derive.DefaultBins
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		herd:         opts.Herd,
		snapshots:    opts.Snapshots,
		logger:       logger,
		events:       log.NewStructuredLogger(logger),
		defaultBins:  opts.DefaultBins,
		rateLimiter:  newRateLimiter(opts.RateLimit, time.Minute),
		secMetrics:   &securityMetrics{},
		startedAt:    time.Now(),
		charts:       cache.NewLRU[chartKey, []byte](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(opts.Logger),
	}
	s.cacheManager.Register(s.charts)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("GET /ui/herd", s.withMiddleware(s.handleHerdList))
	mux.HandleFunc("POST /cattle", s.withMiddleware(s.handleAddCattle))
	mux.HandleFunc("POST /cattle/clear", s.withMiddleware(s.handleClearHerd))
	mux.HandleFunc("POST /cattle/{id}", s.withMiddleware(s.handleEditCattle))
	mux.HandleFunc("DELETE /cattle/{id}", s.withMiddleware(s.handleRemoveCattle))

	mux.HandleFunc("GET /api/dataset/types", s.withMiddleware(s.handleDatasetTypes))
	mux.HandleFunc("GET /api/charts/individual", s.withMiddleware(s.handleIndividualChart))
	mux.HandleFunc("GET /api/charts/total", s.withMiddleware(s.handleTotalChart))
	mux.HandleFunc("GET /api/charts/average", s.withMiddleware(s.handleAverageChart))
	mux.HandleFunc("GET /api/charts/comparison", s.withMiddleware(s.handleComparisonChart))
	mux.HandleFunc("GET /api/charts/distribution", s.withMiddleware(s.handleDistributionChart))
	mux.HandleFunc("GET /api/snapshots", s.withMiddleware(s.handleSnapshots))

	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

const requestIDHeader = "X-Request-ID"

// withMiddleware adds request ids, rate limiting of mutations, security
// headers and request logging. Handlers find the request logger with
// log.FromContext.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	observed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		reqLogger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		s.events.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.secMetrics) {
			reqLogger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
		}

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.secMetrics) {
			reqLogger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.events.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
	logged := log.Middleware(s.logger)(log.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get(requestIDHeader)
	})(observed))

	return func(w http.ResponseWriter, r *http.Request) {
		// Client supplied ids are replaced so log correlation can't be spoofed.
		requestID := generateRequestID()
		r.Header.Set(requestIDHeader, requestID)
		w.Header().Set(requestIDHeader, requestID)
		logged.ServeHTTP(w, r)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
