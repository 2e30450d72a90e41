// Package web holds the panel's static assets.
package web

import "embed"

// Static exposes the files under static/ for HTTP serving.
//
//go:embed static
var Static embed.FS
