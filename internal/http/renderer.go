package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"

	"github.com/findash/findash/internal/domain/finance"
	"github.com/findash/findash/internal/http/uiutil"
)

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // required
	Logger     *slog.Logger
}

// NewTemplateRenderer parses every template under the root and pages/.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t, err := template.New("root").Funcs(templateFuncs()).ParseFS(cfg.TemplateFS, "*.tmpl", "pages/*.tmpl")
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// RenderFull renders the full page (layout + page content).
func (r *TemplateRenderer) RenderFull(w io.Writer, data any) error {
	return r.renderTemplate(w, "layout", data)
}

// RenderPartial renders the main content area plus out-of-band updates for the
// document title, header and sidebar navigation.
func (r *TemplateRenderer) RenderPartial(w io.Writer, data any) error {
	return r.renderTemplate(w, "partial", data)
}

// renderTemplate executes into a buffer so a failed render never leaves a
// half-written page.
func (r *TemplateRenderer) renderTemplate(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template", slog.String("template", name), slog.Any("error", err))
		return err
	}
	return nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"usd":  finance.FormatUSD,
		"date": uiutil.FormatDate,
		"pct":  func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
		"eqPage": func(current string, pages ...string) bool {
			for _, p := range pages {
				if p == current {
					return true
				}
			}
			return false
		},
	}
}
