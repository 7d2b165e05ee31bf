package ocr

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTesseract_Unavailable(t *testing.T) {
	engine := &Tesseract{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	assert.False(t, engine.Available())
	_, err := engine.RecognizePDF(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrUnavailable)

	var nilEngine *Tesseract
	assert.False(t, nilEngine.Available())
}

func TestSortPages(t *testing.T) {
	paths := []string{"/t/page-10.png", "/t/page-2.png", "/t/page-1.png"}
	sortPages(paths)
	assert.Equal(t, []string{"/t/page-1.png", "/t/page-2.png", "/t/page-10.png"}, paths)
}

func TestStatic(t *testing.T) {
	s := Static{Pages: map[string][]string{"a.pdf": {"one", "two"}}}
	require.True(t, s.Available())

	pages, err := s.RecognizePDF(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, pages)

	_, err = s.RecognizePDF(context.Background(), "b.pdf")
	assert.Error(t, err)

	assert.False(t, Static{}.Available())
}
