package local

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	DefaultBufferSize = 1024 * 1024 // 1MB
)

type Line struct {
	Filename string
	Number   int
	Text     string
}

// FindFiles expands a glob pattern (with ** support) into the regular files it matches.
func FindFiles(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range matches {
		info, err := os.Lstat(name)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			files = append(files, name)
		}
	}
	return files, nil
}

func ReadLines(filePath string, bufferSize ...int) ([]Line, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return scanLines(file, filePath, bufferSize...)
}

func scanLines(r io.Reader, name string, bufferSize ...int) ([]Line, error) {
	if len(bufferSize) == 0 {
		bufferSize = []int{DefaultBufferSize}
	}
	buffer := make([]byte, bufferSize[0])

	scanner := bufio.NewScanner(r)
	scanner.Buffer(buffer, bufferSize[0])

	var lines []Line
	for i := 1; scanner.Scan(); i++ {
		lines = append(lines, Line{
			Filename: name,
			Number:   i,
			Text:     scanner.Text(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// ReadInput reads every file matched by patterns and returns their lines as engine records,
// ordered by pattern, then file, then line number.
func ReadInput(patterns ...string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := FindFiles(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched the input patterns: %v", patterns)
	}

	var records []string
	for _, file := range files {
		lines, err := ReadLines(file)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			records = append(records, line.Text)
		}
	}
	return records, nil
}

// ReadInputFS is ReadInput over fsys. Patterns are slash-separated and relative to the root of
// fsys, so nothing outside it can be matched or read.
func ReadInputFS(fsys fs.FS, patterns ...string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			info, err := fs.Stat(fsys, name)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				files = append(files, name)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched the input patterns: %v", patterns)
	}

	var records []string
	for _, name := range files {
		lines, err := readLinesFS(fsys, name)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			records = append(records, line.Text)
		}
	}
	return records, nil
}

func readLinesFS(fsys fs.FS, name string) ([]Line, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return scanLines(file, name)
}
