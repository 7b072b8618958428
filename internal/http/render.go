package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"dotproduct/internal/charts"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
	appweb "dotproduct/web"
)

var templateFuncs = template.FuncMap{
	"money": charts.Money,
	"date": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("Jan 2, 2006")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	// selectedID reports whether a category id matches the submitted value.
	"selectedID": func(id int64, selected string) bool {
		return selected != "" && strconv.FormatInt(id, 10) == selected
	},
	"entryTypes": func() []core.EntryType { return []core.EntryType{core.Expense, core.Income} },
	"periods":    func() []core.Period { return []core.Period{core.Weekly, core.Monthly, core.Yearly} },
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// page is the data every full page carries for the layout.
type page struct {
	Title string
	User  *core.User
	Nav   string
}

func (s *Server) page(r *http.Request, title, nav string) page {
	p := page{Title: title, Nav: nav}
	if sess, ok := sessionFrom(r); ok {
		if u, ok := sess.User(); ok {
			p.User = &u
		}
	}
	return p
}

// render executes name into a buffer so that a failing template never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	s.renderWith(w, r, NewHTMXResponse().Status(status), name, data)
}

func (s *Server) renderWith(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldPath, r.URL.Path,
			log.FieldOperation, log.OpRender,
			"error_type", log.ErrorTypeInternal)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}
