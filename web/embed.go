// Package web embeds the templates and static assets served by the music-muse UI.
package web

import (
	"embed"
	"io/fs"
)

// TemplatesFS contains the embedded HTML templates under templates/.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS contains the embedded static assets under static/.
//
//go:embed all:static
var StaticFS embed.FS

// Templates returns the template tree rooted at templates/.
func Templates() (fs.FS, error) {
	return fs.Sub(TemplatesFS, "templates")
}

// Static returns the asset tree rooted at static/.
func Static() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
