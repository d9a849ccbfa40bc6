package frontend

import (
	"embed"
	"html/template"
	"io"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pages = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Render executes the named page template into w.
func Render(w io.Writer, name string, data any) error {
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		return goerr.Wrap(err, "failed to render page", goerr.V("page", name))
	}
	return nil
}
