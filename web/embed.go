// Package web holds the embedded UI templates.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
