package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// IndexTemplate is the name of the form page
const IndexTemplate = "index.html"

// IndexData is rendered by the form page
type IndexData struct {
	Flashes      []string
	Bitrates     []string
	SavedBitrate string
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}
