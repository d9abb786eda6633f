// Package web holds the embedded HTML templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.tmpl
var templates embed.FS

// PlaceholderCover is an inline grey book cover used when a book has no
// cover id.
const PlaceholderCover template.URL = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='180' height='270'%3E%3Crect width='100%25' height='100%25' fill='%23dee2e6'/%3E%3C/svg%3E"

// Templates parses every embedded template with the shared helpers.
func Templates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"coverURL": func(id *int64, size string) template.URL {
			if id == nil {
				return PlaceholderCover
			}
			return template.URL(fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-%s.jpg", *id, url.PathEscape(size)))
		},
		"rating": func(f *float64) string {
			if f == nil {
				return ""
			}
			return fmt.Sprintf("%.2f", *f)
		},
		"join": strings.Join,
	}
	return template.New("").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
}
