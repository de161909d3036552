package httpx

import (
	"bytes"
	"context"
	"html"
	"log/slog"
	"net/http"

	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/domain/finance"
	"github.com/findash/findash/internal/http/ui/viewmodel"
	"github.com/findash/findash/internal/http/uiutil"
)

// FinanceSource is what the finance pages read. *finance.Catalog satisfies it.
type FinanceSource interface {
	finance.Source
	Headline() finance.Headline
	ExpenseCategories() []string
}

var _ FinanceSource = (*finance.Catalog)(nil)

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T       *TemplateRenderer
	Shell   *Shell
	Finance FinanceSource
	IsDev   bool // Development mode flag for enhanced error reporting
	Logger  *slog.Logger
}

var _ GateViews = (*UIHandlers)(nil)

// logger returns the configured logger or falls back to slog.Default().
func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// buildLayout constructs shared layout metadata from the request context.
func buildLayout(r *http.Request, meta PageMeta) viewmodel.Layout {
	layout := viewmodel.Layout{
		Title:       meta.Title,
		PageTitle:   meta.PageTitle,
		CurrentPage: meta.CurrentPage,
		CSRFToken:   GetCSRFToken(r),
	}
	if layout.PageTitle == "" {
		layout.PageTitle = AppTitle
	}
	if user, ok := GetUserFromContext(r.Context()); ok {
		layout.IsAuthenticated = true
		layout.User = &viewmodel.User{
			Name:     user.Name,
			Email:    user.Email,
			Role:     user.Role,
			Initials: uiutil.Initials(user.Name),
		}
		layout.Nav = navFor(*user, meta.CurrentPage)
	}
	return layout
}

func navFor(user domainauth.User, current string) []viewmodel.NavItem {
	items := domainauth.Navigation(user)
	out := make([]viewmodel.NavItem, len(items))
	for i, item := range items {
		out[i] = viewmodel.NavItem{
			Label:  item.Label,
			Path:   item.Path,
			Active: string(item.Page) == current,
		}
	}
	return out
}

// render writes a page with the given status: the full layout for normal
// requests, the content fragment with out-of-band chrome updates for htmx.
func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, status int, data viewmodel.LayoutProvider) {
	var buf bytes.Buffer
	var err error
	if WantsPartial(r) {
		err = h.T.RenderPartial(&buf, data)
	} else {
		err = h.T.RenderFull(&buf, data)
	}
	if err != nil {
		h.logAndRenderTemplateError(w, r, err, data.LayoutData().CurrentPage)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger().Debug("failed to write page", "error", err, "path", r.URL.Path)
	}
}

// Checking renders the placeholder shown while the startup check runs. The page
// reloads itself until the check has finished.
func (h *UIHandlers) Checking(w http.ResponseWriter, r *http.Request) {
	layout := buildLayout(r, PageMeta{Title: "Checking authentication", CurrentPage: PageChecking})
	layout.Refresh = 1
	w.Header().Set("Retry-After", "1")
	h.render(w, r, http.StatusOK, &layout)
}

type forbiddenData struct {
	viewmodel.Layout
	Section string
}

// Forbidden renders the access-denied page for a signed-in user.
func (h *UIHandlers) Forbidden(w http.ResponseWriter, r *http.Request, user *domainauth.User, page domainauth.Page) {
	r = r.WithContext(SetUserInContext(r.Context(), user))
	h.logger().InfoContext(r.Context(), "page access denied", "user_id", user.ID, "role", user.Role, "page", string(page))
	data := &forbiddenData{
		Layout:  buildLayout(r, PageMeta{Title: "Access denied", CurrentPage: PageForbidden}),
		Section: page.Label(),
	}
	h.render(w, r, http.StatusForbidden, data)
}

// NotFound renders the 404 page, with the sidebar when a user is signed in.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if state, user := h.Shell.Snapshot(); state == StateAuthenticated {
		r = r.WithContext(SetUserInContext(r.Context(), user))
	}
	layout := buildLayout(r, PageMeta{Title: "Page not found", CurrentPage: PageNotFound})
	h.render(w, r, http.StatusNotFound, &layout)
}

// PageSpec defines metadata and an optional fetch for page-specific data.
type PageSpec struct {
	Meta  PageMeta
	Fetch func(ctx context.Context, layout viewmodel.Layout) (viewmodel.LayoutProvider, error)
}

// Page builds the layout, fetches content data and renders. A fetch failure
// renders the page's error state.
func (h *UIHandlers) Page(w http.ResponseWriter, r *http.Request, spec PageSpec) {
	layout := buildLayout(r, spec.Meta)
	data, err := spec.Fetch(r.Context(), layout)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "page data unavailable", "page", spec.Meta.CurrentPage, "error", err)
		layout.ErrorMessage = "An unexpected error occurred. Please try again."
		h.render(w, r, http.StatusInternalServerError, &layout)
		return
	}
	h.render(w, r, http.StatusOK, data)
}

// logAndRenderTemplateError logs template errors and renders them in dev mode.
func (h *UIHandlers) logAndRenderTemplateError(w http.ResponseWriter, r *http.Request, err error, page string) {
	h.logger().Error("template rendering failed",
		"error", err,
		"page", page,
		"path", r.URL.Path,
		"method", r.Method,
	)

	if h.IsDev {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		body := `<div class="template-error"><h2>Template Rendering Error</h2>` +
			`<p><strong>Page:</strong> ` + html.EscapeString(page) + `</p>` +
			`<p><strong>Path:</strong> ` + html.EscapeString(r.URL.Path) + `</p>` +
			`<pre>` + html.EscapeString(err.Error()) + `</pre></div>`
		if _, writeErr := w.Write([]byte(body)); writeErr != nil {
			h.logger().Error("failed to write template error response", "error", writeErr)
		}
		return
	}

	http.Error(w, "internal server error", http.StatusInternalServerError)
}
