package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// jsonDocument is the fixture format:
//
//	{"pages": [{"text": "...", "tables": [[["LİMİT BİLGİLERİ", null], ...]]}]}
//
// A null cell decodes as a non-present cell.
type jsonDocument struct {
	Pages []jsonPage `json:"pages"`
}

type jsonPage struct {
	Text   string        `json:"text"`
	Tables [][][]*string `json:"tables"`
}

// Memory is an in-memory Document. It is what JSON fixtures decode into and
// is handy for building documents in tests.
type Memory struct {
	pages []MemoryPage
}

// MemoryPage holds the content of one page.
type MemoryPage struct {
	Text   string
	Tables []Table
}

// NewMemory creates a document from pages.
func NewMemory(pages ...MemoryPage) *Memory {
	return &Memory{pages: pages}
}

// LoadJSON reads a JSON fixture document from disk.
func LoadJSON(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	return DecodeJSON(f)
}

// DecodeJSON decodes a fixture document from r.
func DecodeJSON(r io.Reader) (*Memory, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	pages := make([]MemoryPage, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		page := MemoryPage{Text: p.Text}
		for _, raw := range p.Tables {
			page.Tables = append(page.Tables, tableFromPointers(raw))
		}
		pages = append(pages, page)
	}
	return NewMemory(pages...), nil
}

func tableFromPointers(raw [][]*string) Table {
	t := make(Table, 0, len(raw))
	for _, row := range raw {
		cells := make([]Cell, len(row))
		for i, c := range row {
			if c != nil {
				cells[i] = TextCell(*c)
			}
		}
		t = append(t, cells)
	}
	return t
}

func (m *Memory) PageCount() int { return len(m.pages) }

func (m *Memory) Tables(page int) ([]Table, error) {
	if err := checkPage(page, len(m.pages)); err != nil {
		return nil, err
	}
	return m.pages[page].Tables, nil
}

func (m *Memory) Text(page int) (string, error) {
	if err := checkPage(page, len(m.pages)); err != nil {
		return "", err
	}
	return m.pages[page].Text, nil
}

func (m *Memory) Close() error { return nil }
