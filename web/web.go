// Package web embeds the static owner dashboard served at the root path.
package web

import "embed"

//go:embed static
var FrontendFS embed.FS
