package printing

import (
	"bytes"
	"embed"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateEngine renders documents to HTML. Templates are parsed once; the
// locale-dependent functions are bound per render.
type TemplateEngine struct {
	once sync.Once
	base *template.Template
	err  error
}

// NewTemplateEngine creates an engine over the embedded templates
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{}
}

type documentView struct {
	Doc  *Document
	Lang string
}

// placeholder functions so the templates parse before a locale is known
var baseFuncs = template.FuncMap{
	"label":   func(string) string { return "" },
	"money":   func(any) string { return "" },
	"qty":     func(any) string { return "" },
	"percent": func(any) string { return "" },
	"date":    func(any) string { return "" },
	"datePtr": func(any) string { return "" },
	"title":   func(string) string { return "" },
}

func (e *TemplateEngine) load() (*template.Template, error) {
	e.once.Do(func() {
		e.base, e.err = template.New("documents").Funcs(baseFuncs).ParseFS(templateFS, "templates/*.html")
	})
	return e.base, e.err
}

// funcs binds the template helpers to f
func funcs(f *Formatter) template.FuncMap {
	return template.FuncMap{
		"label":   f.Label,
		"money":   f.Money,
		"qty":     f.Quantity,
		"percent": f.Percent,
		"date":    f.Date,
		"datePtr": f.DatePtr,
		"title":   f.Title,
	}
}

// Render returns the HTML of doc
func (e *TemplateEngine) Render(doc *Document) (string, error) {
	if doc == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "document is nil", nil)
	}
	base, err := e.load()
	if err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to parse templates", err)
	}
	tmpl, err := base.Clone()
	if err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to clone templates", err)
	}

	f := NewFormatter(doc.Locale, doc.Currency)
	lang, _ := f.Tag().Base()
	view := documentView{Doc: doc, Lang: lang.String()}

	var buf bytes.Buffer
	if err := tmpl.Funcs(funcs(f)).ExecuteTemplate(&buf, "document.html", view); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}
