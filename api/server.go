/*
server.go - HTTP router, middleware and logger configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:           Cross-origin requests for the front end
  2. RequestID:      Unique ID per request for tracing
  3. RequestLogger:  Structured request logs (httplog, ECS schema)
  4. CleanPath:      Collapse duplicate slashes
  5. Recoverer:      Panic recovery (500 instead of crash)
  6. Heartbeat:      GET /healthz for probes

ROUTE GROUPS:
  /api/users/{username}/*   Profile, punches, diffs, vacations
  /api/vacations/*          Approval
  /api/nfc/*                Card binding
  /api/catalog              Feature catalog
  /api/companies/*          Company feature grants
  /api/pricing/*            Quotes
  /api/registrations/*      Order form submissions
  /*                        Static files (front end), when StaticDir is set

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures the outer surface of the router.
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string
}

// NewLogger builds the JSON logger shared by request logs and components.
func NewLogger(w io.Writer, level, env string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "chrono"),
		slog.String("env", env),
	)
}

// ParseLevel maps a config string onto a slog level; unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(h.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.PutProfile)
			r.Get("/punches", h.ListPunches)
			r.Post("/punches", h.RecordPunch)
			r.Get("/expected", h.GetExpectedHours)
			r.Get("/diff", h.GetDiffSummary)
			r.Get("/vacations", h.ListVacations)
			r.Post("/vacations", h.CreateVacation)
		})

		r.Route("/vacations", func(r chi.Router) {
			r.Post("/{id}/approve", h.ApproveVacation)
			r.Post("/{id}/reject", h.RejectVacation)
		})

		r.Post("/nfc/cards", h.BindCard)

		r.Get("/catalog", h.GetCatalog)
		r.Route("/companies/{id}", func(r chi.Router) {
			r.Get("/features", h.GetCompanyFeatures)
			r.Put("/features", h.PutCompanyFeatures)
		})
		r.Post("/pricing/quote", h.Quote)

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", h.CreateRegistration)
			r.Get("/{id}", h.GetRegistration)
		})
	})

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			r.Get("/*", spaHandler(opts.StaticDir))
		} else {
			h.Logger.Warn("static directory not found, front end disabled", "dir", opts.StaticDir)
		}
	}

	return r
}

// spaHandler serves files from dir and falls back to index.html so the
// front end can route client-side.
func spaHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
