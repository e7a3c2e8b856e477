package advice

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	blackfriday "github.com/russross/blackfriday/v2"
)

var markdownExtensions = blackfriday.CommonExtensions |
	blackfriday.HardLineBreak |
	blackfriday.Strikethrough

var sanitizer = bluemonday.UGCPolicy()

// RenderHTML converts advice markdown to sanitized HTML.
func RenderHTML(text string) template.HTML {
	raw := blackfriday.Run([]byte(text), blackfriday.WithExtensions(markdownExtensions))
	return template.HTML(sanitizer.SanitizeBytes(raw))
}
