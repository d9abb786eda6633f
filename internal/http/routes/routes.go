package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	appmw "github.com/briangreenhill/shelfscout/internal/http/middleware"
	"github.com/briangreenhill/shelfscout/internal/catalog"
	"github.com/briangreenhill/shelfscout/openlibrary"
)

const maxPageLimit = 50

// Catalog is what the handlers need from the catalog service.
type Catalog interface {
	SearchBooks(ctx context.Context, query string) (*openlibrary.SearchResponse, error)
	GetBooksByMultipleSubjects(ctx context.Context, subjects []string, count int) (map[string][]catalog.SubjectResultBook, error)
	GetSubjectPage(ctx context.Context, subject string, offset, limit int) (catalog.SubjectPage, error)
	GetSuggestions(ctx context.Context, query string, limit int) ([]catalog.Suggestion, error)
}

type Server struct {
	Router       *chi.Mux
	Catalog      Catalog
	Tmpl         *template.Template
	HomeSubjects []string
	SampleSize   int
}

type ServerOptions struct {
	Catalog      Catalog
	Tmpl         *template.Template
	Logger       zerolog.Logger
	HomeSubjects []string
	SampleSize   int
	// RateLimiter is optional; nil disables per-client limiting.
	RateLimiter *appmw.RateLimiter
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(appmw.SecurityHeaders)
	r.Use(chimw.Compress(5))

	s := &Server{
		Router:       r,
		Catalog:      opts.Catalog,
		Tmpl:         opts.Tmpl,
		HomeSubjects: opts.HomeSubjects,
		SampleSize:   opts.SampleSize,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(pr chi.Router) {
		if opts.RateLimiter != nil {
			pr.Use(opts.RateLimiter.Handler)
		}
		pr.Get("/", s.handleHome)
		pr.Get("/search", s.handleSearch)
		pr.Get("/book/{title}", s.handleBookByTitle)
		pr.Get("/api/suggest", s.handleSuggest)
		pr.Get("/api/subject/{name}", s.handleSubjectPage)
	})
	r.NotFound(s.handleNotFound)

	return s
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := s.Tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render template failed")
		http.Error(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	s.render(w, r, status, "error", map[string]any{"Title": "Error", "Message": msg})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.render(w, r, http.StatusBadRequest, "error", map[string]any{"Title": "Error", "Message": msg})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "404", map[string]any{"Title": "Not Found"})
}

// errorStatus maps a service error to the HTTP status and message shown to
// the user: upstream 404, timeouts and other upstream failures are told apart.
func errorStatus(err error) (int, string) {
	switch {
	case openlibrary.IsTimeout(err):
		return http.StatusGatewayTimeout, "Request timeout. Please try again."
	case openlibrary.IsNotFound(err):
		return http.StatusNotFound, "The requested resource was not found."
	case openlibrary.IsMalformed(err):
		return http.StatusBadGateway, "An error occurred while fetching data from the API."
	case openlibrary.StatusOf(err) >= 400:
		return openlibrary.StatusOf(err), "An error occurred while fetching data from the API."
	case openlibrary.StatusOf(err) > 0:
		return http.StatusBadGateway, "An error occurred while fetching data from the API."
	default:
		return http.StatusInternalServerError, "An unexpected error occurred."
	}
}

type homeSection struct {
	ID      string
	Subject string
	Books   []catalog.SubjectResultBook
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func sectionID(subject string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(subject), "-"), "-") + "-section"
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	bySubject, err := s.Catalog.GetBooksByMultipleSubjects(r.Context(), s.HomeSubjects, s.SampleSize)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	sections := make([]homeSection, 0, len(s.HomeSubjects))
	for _, subject := range s.HomeSubjects {
		sections = append(sections, homeSection{
			ID:      sectionID(subject),
			Subject: subject,
			Books:   bySubject[subject],
		})
	}
	s.render(w, r, http.StatusOK, "index", map[string]any{"Title": "Discover books", "Sections": sections})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		s.badRequest(w, r, "Please provide a search term.")
		return
	}
	s.renderFirstHit(w, r, q)
}

func (s *Server) handleBookByTitle(w http.ResponseWriter, r *http.Request) {
	title := pathParam(r, "title")
	if strings.TrimSpace(title) == "" {
		s.badRequest(w, r, "Book title is required.")
		return
	}
	s.renderFirstHit(w, r, title)
}

func (s *Server) renderFirstHit(w http.ResponseWriter, r *http.Request, q string) {
	res, err := s.Catalog.SearchBooks(r.Context(), q)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "searched", map[string]any{
		"Title": strings.TrimSpace(q),
		"Books": catalog.SearchResults(res, 1),
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", catalog.DefaultSuggestLimit)
	if !ok || limit <= 0 {
		writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageLimit)

	suggestions, err := s.Catalog.GetSuggestions(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleSubjectPage(w http.ResponseWriter, r *http.Request) {
	subject := pathParam(r, "name")
	if strings.TrimSpace(subject) == "" {
		writeJSONError(w, http.StatusBadRequest, "subject is required")
		return
	}
	// subjects are single path segments upstream
	if strings.Contains(subject, "/") {
		writeJSONError(w, http.StatusBadRequest, "invalid subject")
		return
	}
	offset, ok := intParam(r, "offset", 0)
	if !ok || offset < 0 {
		writeJSONError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, ok := intParam(r, "limit", catalog.DefaultPageLimit)
	if !ok || limit <= 0 {
		writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageLimit)

	page, err := s.Catalog.GetSubjectPage(r.Context(), subject, offset, limit)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("api request failed")
	writeJSONError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// pathParam returns the unescaped value of a chi URL parameter.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if un, err := url.PathUnescape(v); err == nil {
		return un
	}
	return v
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
