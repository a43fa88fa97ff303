package web

import (
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// requestTimeout bounds every API request except event streams.
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	logger := s.logger
	authHandler := handlers.NewAuthHandler(&s.config.Auth, s.tokens, logger)
	configHandler := handlers.NewConfigHandler(s.config)
	healthHandler := handlers.NewHealthHandler(s.deps.Embedder)
	peopleHandler := handlers.NewPeopleHandler(s.deps.Service, s.deps.Photos, logger)
	checkInHandler := handlers.NewCheckInHandler(s.deps.Service, s.deps.Pipeline, logger)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Service, logger)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Check)

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.tokens))

			r.Get("/auth/status", authHandler.Status)

			// Kiosk event stream, not bound by the request timeout
			r.Get("/kiosk/events", checkInHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(requestTimeout))

				r.Get("/config", configHandler.Get)

				// Check-in
				r.Post("/checkin", checkInHandler.CheckIn)
				r.Post("/kiosk/frames", checkInHandler.Frame)
				r.Get("/kiosk/last", checkInHandler.Last)

				// People
				r.Get("/people", peopleHandler.List)
				r.Post("/people", peopleHandler.Create)
				r.Get("/people/{id}", peopleHandler.Get)
				r.Put("/people/{id}", peopleHandler.Update)
				r.Delete("/people/{id}", peopleHandler.Delete)
				r.Get("/people/{id}/photo", peopleHandler.Photo)
				r.Get("/people/{id}/attendance/last", peopleHandler.LastAttendance)

				// Attendance
				r.Get("/attendance", attendanceHandler.List)
				r.Get("/attendance/day", attendanceHandler.Day)
				r.Put("/attendance/{id}", attendanceHandler.Update)
				r.Delete("/attendance/{id}", attendanceHandler.Delete)
			})
		})
	})

	// Kiosk page
	s.router.Get("/*", s.serveSPA)
}

// contentTypes maps the extensions shipped in the static bundle.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// serveSPA serves the embedded kiosk page. Unknown paths fall back to index.html.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	f, err := fs.Open(p)
	if err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType, ok := contentTypes[path.Ext(p)]
			if !ok {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}

	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}
