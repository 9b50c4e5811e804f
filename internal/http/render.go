package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	applog "expenses/internal/log"
)

var pageNames = []string{
	"login", "register", "view", "add", "edit", "summary", "monthly", "set_limit",
}

// page is embedded in every template's data.
type page struct {
	Username string
	Error    string
	Message  string
}

type templates map[string]*template.Template

// parseTemplates builds one template set per page, each sharing the layout
// and partials.
func parseTemplates(fsys fs.FS) (templates, error) {
	out := make(templates, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(fsys,
			"templates/layout.html",
			"templates/expense_form.html",
			"templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render executes the page into a buffer first so a template error can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := s.templates[name]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown template", "template", name)
		InternalServerError().Write(w)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.LogError(r.Context(), "Template execution failed", err, applog.OpRender, "template", name)
		InternalServerError().Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
