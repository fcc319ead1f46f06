package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

var confirmPageTemplate = mustParseTemplate("confirm_change.html")

// confirmPage is the view model of confirm_change.html. The form posts back
// to the URL it was served from.
type confirmPage struct {
	Token string
}

func mustParseTemplate(name string) *template.Template {
	return template.Must(template.New(name).ParseFS(templateFiles, "templates/"+name))
}
