// Package schemas embeds the default table definitions used when no
// definition directory is configured.
package schemas

import "embed"

//go:embed *.yaml
var FS embed.FS
