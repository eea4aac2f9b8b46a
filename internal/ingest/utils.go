package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/provider-console/constants"
)

// AllowedExt checks if a file extension is one the backend accepts (csv, pdf).
func AllowedExt(ext string) bool {
	_, ok := constants.KindForExt(ext)
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
