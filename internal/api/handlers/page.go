package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/dashboard"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"px": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "px" },
}).ParseFS(templateFS, "templates/index.html"))

// PageHandler serves the heatmap page
type PageHandler struct {
	viewer Viewer
}

// NewPageHandler creates a new page handler
func NewPageHandler(viewer Viewer) *PageHandler {
	return &PageHandler{viewer: viewer}
}

type pageData struct {
	View dashboard.View
}

// ServeHTTP renders the heatmap for the width query parameter, or the default width
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.ParseFloat(r.URL.Query().Get("width"), 64)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{View: h.viewer.View(width)}); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
