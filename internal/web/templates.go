package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Templates renders the embedded pages and fragments.
type Templates struct {
	pages    map[string]*template.Template
	partials map[string]*template.Template
	funcs    template.FuncMap
}

// NewTemplates parses layouts/, partials/ and pages/ from templatesFS.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	if templatesFS == nil {
		return nil, fmt.Errorf("no templates filesystem")
	}
	t := &Templates{
		pages:    make(map[string]*template.Template),
		partials: make(map[string]*template.Template),
		funcs:    defaultFuncs(),
	}
	if err := t.load(templatesFS); err != nil {
		return nil, err
	}
	return t, nil
}

// Render executes the "base" layout with the named page's content.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a fragment without the layout. Each partial file
// defines a template named after the file.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.ExecuteTemplate(w, partial, data)
}

func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}
	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	shared := append(append([]string(nil), layouts...), partials...)
	for _, page := range pages {
		name := templateName(page)
		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, append([]string{page}, shared...)...)
		if err != nil {
			return fmt.Errorf("parsing page %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}

	for _, partial := range partials {
		name := templateName(partial)
		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}
	return nil
}

func templateName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".html")
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// formatDate formats a time as "Jan 2, 2006"
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},

		// formatDateRange formats a date range as "Jan 2 - Feb 3, 2006"
		"formatDateRange": func(start, end time.Time) string {
			if start.Year() == end.Year() && start.Month() == end.Month() {
				return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("2, 2006"))
			}
			if start.Year() == end.Year() {
				return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
			}
			return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
	UserID      string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Suggestions []string
	Events      []EventData
}

// EventData contains data for a single life event in templates.
type EventData struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Ongoing   bool
}

// AnswerData contains data for the answer fragment.
type AnswerData struct {
	Question string
	HTML     template.HTML
	Rules    []string
}
