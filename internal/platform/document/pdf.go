package document

import (
	"fmt"
	"os"

	"github.com/dslipak/pdf"
)

// PDF is a Document read from a PDF file. Tables are reconstructed from glyph
// positions: glyphs are grouped into lines, lines into cells on horizontal
// gaps, and a table starts at every title line.
type PDF struct {
	f      *os.File
	r      *pdf.Reader
	layout layout
}

// OpenPDF opens the PDF at path. The caller must Close it.
func OpenPDF(path string, opts ...Option) (*PDF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	r, err := newReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	lay := defaultLayout()
	for _, opt := range opts {
		opt(&lay)
	}

	return &PDF{f: f, r: r, layout: lay}, nil
}

func newReader(f *os.File, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to read pdf: malformed document: %v", rec)
		}
	}()

	r, err = pdf.NewReader(f, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return r, nil
}

func (p *PDF) PageCount() int { return p.r.NumPage() }

// Tables returns the tables found on page.
func (p *PDF) Tables(page int) ([]Table, error) {
	lines, err := p.lines(page)
	if err != nil {
		return nil, err
	}
	return p.layout.detectTables(lines), nil
}

// Text returns the page text, one line per visual row.
func (p *PDF) Text(page int) (string, error) {
	lines, err := p.lines(page)
	if err != nil {
		return "", err
	}
	return pageText(lines), nil
}

func (p *PDF) Close() error { return p.f.Close() }

func (p *PDF) lines(page int) ([]line, error) {
	glyphs, err := p.glyphs(page)
	if err != nil {
		return nil, err
	}
	return p.layout.groupLines(glyphs), nil
}

// glyphs reads the content stream of one page. The pdf package panics on
// malformed streams; that is turned into an error for this page only.
func (p *PDF) glyphs(page int) (glyphs []Glyph, err error) {
	if err := checkPage(page, p.PageCount()); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			glyphs = nil
			err = fmt.Errorf("page %d: malformed content stream: %v", page, rec)
		}
	}()

	pg := p.r.Page(page + 1)
	if pg.V.IsNull() {
		return nil, fmt.Errorf("page %d: %w", page, ErrPageOutOfRange)
	}

	for _, t := range pg.Content().Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return glyphs, nil
}
