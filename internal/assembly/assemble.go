package assembly

import (
	"embed"
	"html/template"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/bookforge/internal/types"
)

//go:embed book.html.tmpl
var templates embed.FS

// Assembler turns the ordered pages of a finished book into a single
// document. Assemble returns the document bytes and its content type.
type Assembler interface {
	Assemble(plan *types.BookPlan, pages []types.Page, coverImagePath string) ([]byte, string, error)
}

// HTMLAssembler renders the book as a self-contained HTML document that
// references the run's image files relative to the book directory.
type HTMLAssembler struct {
	tmpl *template.Template
}

// NewHTMLAssembler parses the embedded book template.
func NewHTMLAssembler() (*HTMLAssembler, error) {
	tmpl, err := template.ParseFS(templates, "book.html.tmpl")
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse book template", Cause: err}
	}
	return &HTMLAssembler{tmpl: tmpl}, nil
}

type templateData struct {
	Title        string
	LanguageCode string
	CoverImage   string
	Pages        []pageData
}

type pageData struct {
	Number int
	HTML   template.HTML
	Image  string
}

// Assemble renders the document. Image paths are store-relative
// ("pages/images/..."); the document lives under book/, so they are
// rewritten to be relative to it. A page with no text is an error, a
// page with no image renders text-only.
func (a *HTMLAssembler) Assemble(plan *types.BookPlan, pages []types.Page, coverImagePath string) ([]byte, string, error) {
	if len(pages) == 0 {
		return nil, "", &AssembleError{Message: "no pages to assemble"}
	}

	ordered := append([]types.Page(nil), pages...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	data := templateData{
		Title:        plan.Title,
		LanguageCode: languageCode(plan.Language),
		CoverImage:   relativeToBook(coverImagePath),
	}
	for _, page := range ordered {
		if page.Text == nil || strings.TrimSpace(page.Text.Markdown) == "" {
			return nil, "", &AssembleError{Message: "page " + pageNumber(page.Number) + " has no text"}
		}
		data.Pages = append(data.Pages, pageData{
			Number: page.Number,
			HTML:   markdownToHTML(page.Text.Markdown),
			Image:  relativeToBook(page.ImagePath),
		})
	}

	var b strings.Builder
	if err := a.tmpl.Execute(&b, data); err != nil {
		return nil, "", &TemplateError{Message: "failed to execute book template", Cause: err}
	}
	return []byte(b.String()), "text/html; charset=utf-8", nil
}

var (
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
)

// markdownToHTML converts the small markdown subset page text uses
// (paragraphs, bold, italics) into HTML. Everything else is escaped.
func markdownToHTML(markdown string) template.HTML {
	var b strings.Builder
	for _, paragraph := range strings.Split(markdown, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		escaped := template.HTMLEscapeString(paragraph)
		escaped = boldRe.ReplaceAllString(escaped, "<strong>$1</strong>")
		escaped = italicRe.ReplaceAllString(escaped, "<em>$1</em>")
		b.WriteString("<p>")
		b.WriteString(escaped)
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

// relativeToBook rewrites a store-relative artifact path to be relative
// to the book/ directory the document is written into.
func relativeToBook(path string) string {
	if path == "" {
		return ""
	}
	return "../" + strings.TrimPrefix(path, "/")
}

func languageCode(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if len(language) >= 2 {
		return language[:2]
	}
	return "en"
}

func pageNumber(n int) string {
	if n == types.CoverPage {
		return "cover"
	}
	return strconv.Itoa(n)
}
