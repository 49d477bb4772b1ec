// Package static embeds the single-page chat client served at the web root.
package static

import _ "embed"

//go:embed index.html
var Index []byte
