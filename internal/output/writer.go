package output

import (
	"fmt"
	"iter"
	"strings"

	"github.com/nemanja-m/memr/pkg/jobs"
)

const (
	FormatTSV    = "tsv"
	FormatSQLite = "sqlite"
)

// Writer persists the results of a run.
type Writer interface {
	Write(records iter.Seq[jobs.Result]) error
	Close() error
}

// ValidateFormat reports whether format and path describe a usable output without touching
// the filesystem.
func ValidateFormat(format, path string) error {
	switch strings.ToLower(format) {
	case FormatTSV, "":
		return nil
	case FormatSQLite:
		if path == "" || path == "-" {
			return fmt.Errorf("sqlite output requires a database path")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}

// New opens a writer for the given format. An empty or "-" path writes TSV to stdout.
func New(format, path string) (Writer, error) {
	if err := ValidateFormat(format, path); err != nil {
		return nil, err
	}
	if strings.ToLower(format) == FormatSQLite {
		return NewSQLiteWriter(path)
	}
	return NewTSVFileWriter(path)
}
