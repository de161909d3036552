package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	findash "github.com/findash/findash"
	domainauth "github.com/findash/findash/internal/domain/auth"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions SessionManager
	Shell    *Shell
	Finance  FinanceSource
	// TemplateFS and StaticFS default to the embedded frontend, or to the
	// frontend/ directory on disk in dev mode.
	TemplateFS   fs.FS
	StaticFS     fs.FS
	CookieDomain string
	IsDev        bool
	Logger       *slog.Logger
}

// NewRouter creates the dashboard router. Access logging, panic recovery and
// compression are applied by the caller.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Sessions == nil || services.Shell == nil || services.Finance == nil {
		return nil, errors.New("router requires sessions, shell and finance source")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS, staticFS, err := frontendFS(services)
	if err != nil {
		return nil, err
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create template renderer: %w", err)
	}

	ui := &UIHandlers{
		T:       tr,
		Shell:   services.Shell,
		Finance: services.Finance,
		IsDev:   services.IsDev,
		Logger:  logger,
	}
	auth := &AuthHandlers{
		Sessions: services.Sessions,
		Shell:    services.Shell,
		UI:       ui,
		Logger:   logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthHandler(services.Shell))
	mux.Handle("HEAD /healthz", healthHandler(services.Shell))
	mux.Handle("GET /static/", staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))
	mux.Handle("GET "+AuthStatusPath, http.HandlerFunc(auth.Status))

	csrf := CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})
	page := func(p domainauth.Page, h http.HandlerFunc) http.Handler {
		return csrf(RequireUser(services.Shell, ui, p)(h))
	}

	mux.Handle("GET /{$}", csrf(http.HandlerFunc(ui.Home)))
	mux.Handle("GET "+LoginPath, csrf(http.HandlerFunc(auth.LoginPage)))
	mux.Handle("POST "+LoginPath, csrf(http.HandlerFunc(auth.Login)))
	mux.Handle("POST "+LogoutPath, csrf(http.HandlerFunc(auth.Logout)))
	mux.Handle("GET "+IncomePath, page(domainauth.PageIncome, ui.Income))
	mux.Handle("GET "+BudgetPath, page(domainauth.PageBudget, ui.Budget))
	mux.Handle("GET "+ExpensesPath, page(domainauth.PageExpenses, ui.Expenses))

	return &notFoundHandler{mux: mux, ui: ui, logger: logger}, nil
}

func frontendFS(services RouterServices) (fs.FS, fs.FS, error) {
	templateFS, staticFS := services.TemplateFS, services.StaticFS
	if services.IsDev {
		if templateFS == nil {
			templateFS = os.DirFS(TemplatePathFromRoot)
		}
		if staticFS == nil {
			staticFS = os.DirFS("frontend/static")
		}
		return templateFS, staticFS, nil
	}

	var err error
	if templateFS == nil {
		if templateFS, err = fs.Sub(findash.TemplateFS, TemplatePathFromRoot); err != nil {
			return nil, nil, fmt.Errorf("embedded templates: %w", err)
		}
	}
	if staticFS == nil {
		if staticFS, err = fs.Sub(findash.StaticFS, "frontend/static"); err != nil {
			return nil, nil, fmt.Errorf("embedded static assets: %w", err)
		}
	}
	return templateFS, staticFS, nil
}

func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		handler.ServeHTTP(w, r)
	})
}

// notFoundHandler renders the app's 404 page for unmatched non-static routes.
type notFoundHandler struct {
	mux    *http.ServeMux
	ui     *UIHandlers
	logger *slog.Logger
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, pattern := h.mux.Handler(r); pattern != "" || strings.HasPrefix(r.URL.Path, "/static/") {
		h.mux.ServeHTTP(w, r)
		return
	}
	// No route matched. The mux may still answer 405 or a redirect; keep those.
	cw := newCaptureWriter()
	h.mux.ServeHTTP(cw, r)
	if cw.status == http.StatusNotFound {
		h.ui.NotFound(w, r)
		return
	}
	cw.flushTo(w, h.logger)
}

type captureWriter struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header), status: http.StatusOK}
}

func (c *captureWriter) Header() http.Header         { return c.header }
func (c *captureWriter) WriteHeader(code int)        { c.status = code }
func (c *captureWriter) Write(b []byte) (int, error) { return c.buf.Write(b) }

func (c *captureWriter) flushTo(w http.ResponseWriter, logger *slog.Logger) {
	for k, vs := range c.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(c.status)
	if _, err := w.Write(c.buf.Bytes()); err != nil {
		logger.Debug("failed to write captured response", "error", err)
	}
}
