// Package migrations embeds the SQL schema so goose can apply it from the
// server binary and from integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
