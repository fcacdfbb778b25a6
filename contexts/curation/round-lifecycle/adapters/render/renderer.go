package render

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"curator/contexts/curation/round-lifecycle/ports"
)

//go:embed templates/*.md
var templateFS embed.FS

// Renderer renders the embedded post and message templates. Templates only
// substitute named fields from the data map; no caller-influenced expression
// is ever evaluated.
type Renderer struct {
	once      sync.Once
	templates *template.Template
	parseErr  error
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

var _ ports.Renderer = (*Renderer)(nil)

func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	r.once.Do(func() {
		r.templates, r.parseErr = template.ParseFS(templateFS, "templates/*.md")
	})
	if r.parseErr != nil {
		return "", fmt.Errorf("render: parse templates: %w", r.parseErr)
	}
	tmpl := r.templates.Lookup(name + ".md")
	if tmpl == nil {
		return "", fmt.Errorf("render: unknown template %q", name)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render: execute %q: %w", name, err)
	}
	return strings.TrimRight(out.String(), "\n") + "\n", nil
}
