// Package document exposes report files as pages of plain text and table
// grids. PDF files are read with github.com/dslipak/pdf and their tables are
// rebuilt from glyph positions; JSON fixture documents carry pre-extracted
// grids and are used by tests and for replaying captured reports.
package document

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrPageOutOfRange    = errors.New("page out of range")
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Cell is one table cell. Present is false for cells the layout left empty
// (the null cells of an extracted grid).
type Cell struct {
	Text    string
	Present bool
}

// TextCell returns a present cell holding s.
func TextCell(s string) Cell {
	return Cell{Text: s, Present: true}
}

// Table is a grid of rows. Rows may have different lengths.
type Table [][]Cell

// Document is the page level view the extractors consume. Pages are indexed
// from zero.
type Document interface {
	PageCount() int
	Tables(page int) ([]Table, error)
	Text(page int) (string, error)
}

// File is a Document backed by an open file.
type File interface {
	Document
	io.Closer
}

// Open opens path by extension: ".pdf" or ".json".
func Open(path string, opts ...Option) (File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return OpenPDF(path, opts...)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
}

func checkPage(page, count int) error {
	if page < 0 || page >= count {
		return fmt.Errorf("page %d of %d: %w", page, count, ErrPageOutOfRange)
	}
	return nil
}
