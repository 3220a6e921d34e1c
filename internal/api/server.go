package api

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const checkTimeout = 3 * time.Second

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Server serves the public link view of wishlists and the health probe.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	router chi.Router
	checks map[string]Check
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, router: chi.NewRouter(), checks: make(map[string]Check)}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddCheck makes /healthz depend on check. Register checks before serving.
func (s *Server) AddCheck(name string, check Check) {
	s.checks[name] = check
}

func (s *Server) routes() {
	s.router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/wishlists/{token}", s.handleGetWishlist)
	s.router.Get("/w/{token}", s.handleWishlistPage)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("HTTP request served")
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a service error onto the HTTP status and public message.
func (s *Server) statusFor(err error) (int, string) {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation, apperrors.CodeNotFound:
		// A malformed link is indistinguishable from a dead one.
		return http.StatusNotFound, "wishlist not found"
	case apperrors.CodeForbidden:
		return http.StatusForbidden, "access denied"
	default:
		s.logger.WithError(err).Error("failed to load wishlist")
		return http.StatusInternalServerError, "internal error"
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.WithError(err).WithField("check", name).Warn("Health check failed")
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	s.respondJSON(w, status, resp)
}

type itemResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Link        string          `json:"link,omitempty"`
	Price       string          `json:"price,omitempty"`
	Priority    models.Priority `json:"priority"`
	Reserved    bool            `json:"reserved"`
}

type wishlistResponse struct {
	Title       string         `json:"title"`
	Owner       string         `json:"owner"`
	Private     bool           `json:"private"`
	Limited     bool           `json:"limited"`
	Description string         `json:"description,omitempty"`
	EventDate   string         `json:"event_date,omitempty"`
	Items       []itemResponse `json:"items,omitempty"`
}

// newWishlistResponse renders an anonymous view. Limited views carry the
// title, owner and privacy flag only.
func newWishlistResponse(view *service.WishlistView) wishlistResponse {
	w := view.Wishlist
	resp := wishlistResponse{
		Title:   w.Title,
		Owner:   w.Owner.DisplayName(),
		Private: w.IsPrivate,
		Limited: view.Limited,
	}
	if view.Limited {
		return resp
	}

	resp.Description = w.Description
	if w.EventDate != nil {
		resp.EventDate = w.EventDate.Format("2006-01-02")
	}
	for _, item := range view.Items {
		ir := itemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Link:        item.Link,
			Priority:    item.Priority,
			Reserved:    item.IsReserved(),
		}
		if item.Price != nil {
			ir.Price = item.Price.StringFixed(2)
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.ViewWishlistByToken(r.Context(), chi.URLParam(r, "token"), 0)
	if err != nil {
		status, msg := s.statusFor(err)
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, newWishlistResponse(view))
}

var pageTemplate = template.Must(template.New("wishlist").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>by {{.Owner}}</p>
{{if .Limited}}<p>This wishlist is private. Open it in Telegram to ask for access.</p>
{{else}}{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if .EventDate}}<p>Event date: {{.EventDate}}</p>{{end}}
<ul>
{{range .Items}}<li>{{if .Reserved}}<s>{{.Name}}</s>{{else}}{{.Name}}{{end}}{{if .Price}} ({{.Price}}){{end}}{{if .Link}} <a href="{{.Link}}">link</a>{{end}}</li>
{{else}}<li>No items yet.</li>
{{end}}</ul>
{{end}}</body>
</html>
`))

func (s *Server) handleWishlistPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.ViewWishlistByToken(r.Context(), chi.URLParam(r, "token"), 0)
	if err != nil {
		status, _ := s.statusFor(err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, newWishlistResponse(view)); err != nil {
		s.logger.WithError(err).Error("failed to execute wishlist template")
	}
}
