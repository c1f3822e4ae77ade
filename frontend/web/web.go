// Package web holds the page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

const (
	baseTemplate     = "base.html"
	partialsTemplate = "partials.html"
	templatesDir     = "templates"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates returns the embedded templates directory.
func Templates() fs.FS {
	sub, err := fs.Sub(templates, templatesDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Static returns the embedded static assets, rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadTemplates parses every page in fsys together with the base layout and
// the shared partials. Pages are keyed by file name.
func LoadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, f := range files {
		name := f.Name()
		if path.Ext(name) != ".html" || name == baseTemplate || name == partialsTemplate {
			continue
		}
		tmpl, err := template.New(baseTemplate).Funcs(funcs).ParseFS(fsys, baseTemplate, name, partialsTemplate)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// MustLoadTemplates is LoadTemplates for startup code.
func MustLoadTemplates(fsys fs.FS) map[string]*template.Template {
	pages, err := LoadTemplates(fsys)
	if err != nil {
		panic(err)
	}
	return pages
}

var funcs = template.FuncMap{
	"invalid": func(field, invalidField string) bool { return field == invalidField },
}
