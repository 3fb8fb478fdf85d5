package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"bakingai/internal/browse"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Web serves the recipe browsing pages.
type Web struct {
	sessions *Sessions
	pages    map[string]*template.Template
	logger   *logrus.Logger
	timeout  time.Duration
}

type pageData struct {
	Title  string
	Active string
	View   browse.View
}

func NewWeb(sessions *Sessions, logger *logrus.Logger, timeout time.Duration) (*Web, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Web{
		sessions: sessions,
		pages:    pages,
		logger:   logger,
		timeout:  timeout,
	}, nil
}

// parseTemplates builds one template set per page, each on top of the layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "contact", "recipes"} {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (h *Web) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/", h.handleHome)
	r.Get("/contact", h.handleContact)

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.handleRecipes)
		r.Get("/page/{page}", h.handleGoToPage)
		r.Get("/{index}", h.handleSelect)
		r.Post("/search", h.handleSearch)
		r.Post("/clear", h.handleClear)
		r.Post("/previous", h.handlePrevious)
		r.Post("/next", h.handleNext)
		r.Post("/close", h.handleClose)
		r.Post("/directions", h.handleDirections)
	})

	return r
}

func (h *Web) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Web) handleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home", pageData{Title: "Home"})
}

func (h *Web) handleContact(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "contact", pageData{Title: "Contact Us", Active: "contact"})
}

// handleRecipes mounts a fresh listing and loads page 1.
func (h *Web) handleRecipes(w http.ResponseWriter, r *http.Request) {
	id, list := h.sessions.Fresh(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()

	list.Load(ctx)
	h.finish(w, r, http.StatusOK, id, list)
}

func (h *Web) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}

	id, list := h.sessions.Open(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()

	// the page range is unknown until the first load
	ensureLoaded(ctx, list)
	list.GoToPage(ctx, page)
	h.finish(w, r, http.StatusOK, id, list)
}

func (h *Web) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid recipe index", http.StatusBadRequest)
		return
	}

	id, list := h.sessions.Open(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()
	ensureLoaded(ctx, list)

	status := http.StatusOK
	if err := list.Select(index); err != nil {
		h.logger.WithError(err).WithField("index", index).Debug("Recipe not on the displayed page")
		status = http.StatusNotFound
	}
	h.finish(w, r, status, id, list)
}

func (h *Web) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id, list := h.sessions.Open(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()

	list.Search(ctx, r.PostForm.Get("query"))
	h.finish(w, r, http.StatusOK, id, list)
}

func (h *Web) handleClear(w http.ResponseWriter, r *http.Request) {
	id, list := h.sessions.Open(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()

	list.Clear(ctx)
	h.finish(w, r, http.StatusOK, id, list)
}

func (h *Web) handlePrevious(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, list *browse.RecipeList) { list.Previous(ctx) })
}

func (h *Web) handleNext(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, list *browse.RecipeList) { list.Next(ctx) })
}

func (h *Web) handleClose(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(_ context.Context, list *browse.RecipeList) { list.CloseDetail() })
}

func (h *Web) handleDirections(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(_ context.Context, list *browse.RecipeList) { list.ShowDirections() })
}

// act runs fn on a loaded listing and renders the result.
func (h *Web) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, *browse.RecipeList)) {
	id, list := h.sessions.Open(w, r)
	ctx, cancel := h.requestContext(r)
	defer cancel()

	ensureLoaded(ctx, list)
	fn(ctx, list)
	h.finish(w, r, http.StatusOK, id, list)
}

func ensureLoaded(ctx context.Context, list *browse.RecipeList) {
	if list.NeedsLoad() {
		list.Load(ctx)
	}
}

func (h *Web) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

// finish persists the session and renders the listing.
func (h *Web) finish(w http.ResponseWriter, r *http.Request, status int, id string, list *browse.RecipeList) {
	h.sessions.Save(r.Context(), id, list)
	h.render(w, status, "recipes", pageData{
		Title:  "Discover Recipes",
		Active: "recipes",
		View:   list.View(),
	})
}

func (h *Web) render(w http.ResponseWriter, status int, page string, data pageData) {
	t, ok := h.pages[page]
	if !ok {
		h.logger.WithField("template", page).Error("Unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.WithError(err).WithField("template", page).Error("Failed to execute template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// requestLogger logs every request with logrus once it has been served.
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("Request served")
		})
	}
}
