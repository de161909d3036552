// Package findash provides embedded assets for production builds.
package findash

import "embed"

// In dev mode (IsDev=true) the router reads frontend/ from disk instead.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
