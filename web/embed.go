// Package web embeds the HTML templates and static assets of the web UI.
package web

import "embed"

// TemplatesFS contains the embedded HTML templates.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS contains the embedded static assets.
//
//go:embed all:static
var StaticFS embed.FS
