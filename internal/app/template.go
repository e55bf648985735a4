package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

// TemplateRenderer is a gin HTML renderer with layout and partial support.
//
// Layouts (templates/layouts/*.html) and partials (templates/partials/*.html)
// form a shared base set. Every other .html file under templates/ is a page:
// it is parsed on a clone of the base set and registered under its path
// relative to templates/, e.g. "campaign/landing.html". Pages render the
// layout with {{ template "base" . }} and fill its blocks with {{ define }}.
//
// In debug mode the set is re-parsed on every render so edits show up on
// reload. Otherwise it is parsed once in NewTemplateRenderer.
type TemplateRenderer struct {
	templates map[string]*template.Template
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// RendererOption configures a TemplateRenderer.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	loc *time.Location
}

// WithLocation sets the time zone used by the timestamp helpers. Defaults to
// UTC.
func WithLocation(loc *time.Location) RendererOption {
	return func(o *rendererOptions) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// NewTemplateRenderer creates a renderer reading templates/ from fsys.
// Release mode parses everything up front and fails on the first bad file.
func NewTemplateRenderer(fsys fs.FS, debug bool, opts ...RendererOption) (*TemplateRenderer, error) {
	o := rendererOptions{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(o.loc),
		debug:   debug,
	}
	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}
	return r, nil
}

// Instance implements render.HTMLRender. name is a page path relative to
// templates/.
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	templates := r.templates
	if r.debug {
		var err error
		if templates, err = r.parseAllTemplates(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{Template: templates[name], Name: name, Data: data}
}

func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	base := template.New("").Funcs(r.funcMap)
	for _, pattern := range []string{"templates/layouts/*.html", "templates/partials/*.html"} {
		files, err := fs.Glob(r.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, f := range files {
			if err := parseFile(base.New(f), r.fs, f); err != nil {
				return nil, err
			}
		}
	}

	pages, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, path := range pages {
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", path, err)
		}
		name := strings.TrimPrefix(path, "templates/")
		if err := parseFile(set.New(name), r.fs, path); err != nil {
			return nil, err
		}
		templates[name] = set
	}
	return templates, nil
}

func parseFile(t *template.Template, fsys fs.FS, path string) error {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := t.Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// discoverPageTemplates lists the .html files under templates/ outside
// layouts/ and partials/.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	return pages, err
}

// templateFuncMap returns the helpers available to every template. Times are
// shown in loc.
func templateFuncMap(loc *time.Location) template.FuncMap {
	counts := message.NewPrinter(language.English)

	return template.FuncMap{
		// json renders v as a JS literal, e.g. for hx-vals.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},

		// formatTime formats a local timestamp such as Activity.CreatedAt.
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format(domain.TimestampLayout)
		},

		// formatTimestamp formats a backend timestamp string.
		"formatTimestamp": func(raw string) string {
			return domain.FormatTimestamp(raw, loc)
		},

		// formatCount groups digits: 12345 -> "12,345".
		"formatCount": func(n int64) string {
			return counts.Sprintf("%d", n)
		},

		"deliveryLabel": listquery.DeliveryLabel,
		"claimLabel":    listquery.ClaimLabel,
		"validityLabel": listquery.ValidityLabel,

		"pageURL": pageURL,
		"sortURL": sortURL,
		"sortDir": sortDir,

		// dict builds a map from key/value pairs so a partial can be given
		// more than one value: {{ template "x" dict "A" .A "B" .B }}.
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},

		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },

		// seq returns start..end inclusive, or nil when start > end.
		"seq": func(start, end int) []int {
			if start > end {
				return nil
			}
			s := make([]int, 0, end-start+1)
			for i := start; i <= end; i++ {
				s = append(s, i)
			}
			return s
		},
	}
}

// pageURL links to page of the listing at path, keeping search and sort.
func pageURL(path string, p listquery.Params, page int) string {
	if page < 1 {
		page = 1
	}
	p.Page = page
	return path + "?" + pkg.EncodeQueryParams(p).Encode()
}

// sortURL links to the listing sorted by field. Clicking the active column
// flips its direction; a new column starts ascending. The page resets to 1.
func sortURL(path string, p listquery.Params, field string) string {
	dir := listquery.Asc
	if p.Sort == field && p.Dir == listquery.Asc {
		dir = listquery.Desc
	}
	p.Sort, p.Dir, p.Page = field, dir, 1
	return path + "?" + pkg.EncodeQueryParams(p).Encode()
}

// sortDir returns "asc" or "desc" when field is the active sort column,
// otherwise "".
func sortDir(p listquery.Params, field string) string {
	if p.Sort != field {
		return ""
	}
	return string(p.Dir)
}

// HTMLInstance renders one page template. It is returned by
// TemplateRenderer.Instance.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error
}

const htmlContentType = "text/html; charset=utf-8"

// Render implements render.Render.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType implements render.Render.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
