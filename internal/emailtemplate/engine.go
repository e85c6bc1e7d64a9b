// Package emailtemplate renders daily updates into parent and student emails.
package emailtemplate

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"strings"
	"sync"
	texttmpl "text/template"
)

//go:embed all:templates
var templateFS embed.FS

// Email is a rendered message body.
type Email struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type page struct {
	html *htmltmpl.Template
	text *texttmpl.Template
}

var (
	pages     map[string]page
	pagesErr  error
	pagesOnce sync.Once
)

var allowedInlineTags = strings.NewReplacer(
	"&lt;em&gt;", "<em>",
	"&lt;/em&gt;", "</em>",
	"&lt;strong&gt;", "<strong>",
	"&lt;/strong&gt;", "</strong>",
)

// inline escapes s and restores the emphasis tags teachers may use in
// descriptions.
func inline(s string) htmltmpl.HTML {
	return htmltmpl.HTML(allowedInlineTags.Replace(htmltmpl.HTMLEscapeString(s)))
}

func funcMap() map[string]interface{} {
	return map[string]interface{}{
		"inline":     inline,
		"gradeColor": GradeColor,
		"plural":     pluralize,
	}
}

func loadPages() {
	pages = make(map[string]page)
	for _, name := range []string{"parent", "student"} {
		h, err := htmltmpl.New("layout").Funcs(funcMap()).ParseFS(templateFS, "templates/_base.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			pagesErr = fmt.Errorf("parse %s html template: %w", name, err)
			return
		}
		t, err := texttmpl.New(name + ".txt").Funcs(funcMap()).ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			pagesErr = fmt.Errorf("parse %s text template: %w", name, err)
			return
		}
		pages[name] = page{html: h.Option("missingkey=error"), text: t.Option("missingkey=error")}
	}
}

func render(name string, data interface{}) (string, string, error) {
	pagesOnce.Do(loadPages)
	if pagesErr != nil {
		return "", "", pagesErr
	}
	p, ok := pages[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var html bytes.Buffer
	if err := p.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	var text bytes.Buffer
	if err := p.text.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	return html.String(), text.String(), nil
}

// GradeColor maps a percentage onto the report colour bands.
func GradeColor(percentage int) string {
	switch {
	case percentage >= 90:
		return "#2e7d32"
	case percentage >= 80:
		return "#1976d2"
	case percentage >= 70:
		return "#f57c00"
	default:
		return "#d32f2f"
	}
}
