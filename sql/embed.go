// Package sql embeds the database migrations applied by goose.
package sql

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed *.sql
var FS embed.FS

const filePrefix = "file://"

// Source resolves a migration source reference to the filesystem goose
// reads from: "embedded" (or empty) selects the compiled-in set,
// file://<dir> selects migration files on disk.
func Source(ref string) (fs.FS, error) {
	switch {
	case ref == "" || ref == "embedded":
		return FS, nil
	case strings.HasPrefix(ref, filePrefix):
		return os.DirFS(strings.TrimPrefix(ref, filePrefix)), nil
	default:
		return nil, fmt.Errorf("unsupported migration source %q", ref)
	}
}
