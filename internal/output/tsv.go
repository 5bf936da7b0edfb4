package output

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemanja-m/memr/pkg/jobs"
)

// Backslash, tab and line breaks inside fields are escaped so every result stays one row with
// exactly two columns.
var tsvEscaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

type TSVWriter struct {
	w *bufio.Writer

	// Set when writing to a file: rows go to tmp, which replaces path on a successful Close.
	file *os.File
	path string
	err  error
}

func NewTSVWriter(w io.Writer) *TSVWriter {
	return &TSVWriter{w: bufio.NewWriter(w)}
}

// NewTSVFileWriter writes to a temporary file next to path, creating parent directories as
// needed. The previous content of path is only replaced once Close succeeds. An empty or "-"
// path writes to stdout.
func NewTSVFileWriter(path string) (*TSVWriter, error) {
	if path == "" || path == "-" {
		return NewTSVWriter(os.Stdout), nil
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, errors.New("output path is a directory: " + path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	writer := NewTSVWriter(file)
	writer.file = file
	writer.path = path
	return writer, nil
}

func (t *TSVWriter) Write(records iter.Seq[jobs.Result]) error {
	for record := range records {
		if err := t.writeRow(record); err != nil {
			t.err = err
			return err
		}
	}
	if err := t.w.Flush(); err != nil {
		t.err = err
		return err
	}
	return nil
}

func (t *TSVWriter) writeRow(record jobs.Result) error {
	if _, err := tsvEscaper.WriteString(t.w, record.Key); err != nil {
		return err
	}
	if err := t.w.WriteByte('\t'); err != nil {
		return err
	}
	if _, err := tsvEscaper.WriteString(t.w, record.Value); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Close flushes buffered rows. For file output it renames the temporary file over the target,
// or removes it if any write failed.
func (t *TSVWriter) Close() error {
	err := t.err
	if err == nil {
		err = t.w.Flush()
	}
	if t.file == nil {
		return err
	}

	tmp := t.file.Name()
	if err == nil {
		err = t.file.Chmod(0o644)
	}
	if closeErr := t.file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, t.path)
}
