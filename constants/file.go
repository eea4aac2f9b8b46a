package constants

import (
	"fmt"
	"strings"
)

// UploadKind is the backend upload endpoint a file is routed to.
type UploadKind string

const (
	UploadCSV UploadKind = "CSV"
	UploadPDF UploadKind = "PDF"
)

// AllowedExtensions maps the accepted upload extensions to their endpoint kind.
var AllowedExtensions = map[string]UploadKind{
	"csv": UploadCSV,
	"pdf": UploadPDF,
}

// DefaultMaxUploadBytes mirrors the backend's upload limit (50MB).
const DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// KindForExt returns the upload kind for an extension (with or without dot).
func KindForExt(ext string) (UploadKind, bool) {
	k, ok := AllowedExtensions[NormalizeExt(ext)]
	return k, ok
}

// ExportFormat is the on-disk format of a saved results export.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ResultsFileName is the naming convention for saved result exports. Path
// separators in jobID are replaced so the name never leaves its directory.
func ResultsFileName(jobID string, format ExportFormat) string {
	if format == "" {
		format = ExportCSV
	}
	jobID = strings.NewReplacer("/", "_", `\`, "_").Replace(jobID)
	return fmt.Sprintf("validation_results_%s.%s", jobID, format)
}
