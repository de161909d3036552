package httpx

import (
	"bytes"
	"os"
	"testing"
	"testing/fstest"

	"github.com/findash/findash/internal/http/ui/viewmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateRenderer_RequiresFS(t *testing.T) {
	_, err := NewTemplateRenderer(TemplateRendererConfig{})
	require.Error(t, err)
}

func TestNewTemplateRenderer_ParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"layout.tmpl":     {Data: []byte(`{{define "layout"}}{{.Title}{{end}}`)},
		"pages/page.tmpl": {Data: []byte(`{{define "x"}}{{end}}`)},
	}
	_, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: fsys, Logger: discardLogger()})
	require.Error(t, err)
}

func TestTemplateRenderer_FullAndPartial(t *testing.T) {
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(TemplatePathFromTest), Logger: discardLogger()})
	require.NoError(t, err)

	layout := &viewmodel.Layout{
		Title:       "Page not found",
		PageTitle:   AppTitle,
		CurrentPage: PageNotFound,
	}

	var full bytes.Buffer
	require.NoError(t, tr.RenderFull(&full, layout))
	assert.Contains(t, full.String(), "<!DOCTYPE html>")
	assert.Contains(t, full.String(), "Page not found")
	assert.NotContains(t, full.String(), "http-equiv=\"refresh\"")

	var partial bytes.Buffer
	require.NoError(t, tr.RenderPartial(&partial, layout))
	assert.NotContains(t, partial.String(), "<!DOCTYPE html>")
	assert.Contains(t, partial.String(), `hx-swap-oob="outerHTML"`)
	assert.Contains(t, partial.String(), "Page not found")
}

func TestTemplateRenderer_ErrorMessageWins(t *testing.T) {
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(TemplatePathFromTest), Logger: discardLogger()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.RenderPartial(&buf, &viewmodel.Layout{
		Title:        "Income",
		CurrentPage:  PageIncome,
		ErrorMessage: "An unexpected error occurred. Please try again.",
	}))
	assert.Contains(t, buf.String(), "Something went wrong")
	assert.NotContains(t, buf.String(), "Income Management")
}

func TestTemplateRenderer_CheckingRefresh(t *testing.T) {
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(TemplatePathFromTest), Logger: discardLogger()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.RenderFull(&buf, &viewmodel.Layout{
		Title:       "Checking authentication",
		CurrentPage: PageChecking,
		Refresh:     1,
	}))
	assert.Contains(t, buf.String(), `<meta http-equiv="refresh" content="1">`)
	assert.Contains(t, buf.String(), "Checking authentication...")
}
