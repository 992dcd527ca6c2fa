// Package migrations embeds the clinical statistics schema served by the
// reference backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
