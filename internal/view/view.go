// Package view renders the server-side HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"go.uber.org/zap"
)

//go:embed templates/base.html templates/pages/*.html
var files embed.FS

// Data is the template context for a page render
type Data map[string]any

// Renderer holds the parsed page templates
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// New parses every page template against the base layout
func New(logger *zap.Logger) (*Renderer, error) {
	names, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(files, "templates/base.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[path.Base(name)] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes a page to the response. The template executes into a buffer
// first so a mid-render failure still produces a clean 500 instead of a
// half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Data) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("Unknown template", zap.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = Data{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.logger.Error("Template execution failed",
			zap.String("page", page),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
