// Package app embeds the console's page templates and static assets.
package app

import "embed"

//go:embed templates static
var FS embed.FS
