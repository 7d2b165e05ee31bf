// Package ocr turns scanned PDF pages into text using the poppler and
// tesseract command line tools.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrUnavailable is returned when the OCR toolchain is not installed or OCR
// is disabled.
var ErrUnavailable = errors.New("ocr: engine unavailable")

// Engine recognizes the text of every page of a PDF.
type Engine interface {
	Available() bool
	RecognizePDF(ctx context.Context, path string) ([]string, error)
}

// Tesseract rasterizes pages with pdftoppm and reads them with tesseract.
type Tesseract struct {
	Lang    string
	DPI     int
	Timeout time.Duration

	pdftoppm  string
	tesseract string
	logger    *slog.Logger
}

// NewTesseract resolves both binaries on PATH. A missing binary leaves the
// engine unavailable rather than failing.
func NewTesseract(logger *slog.Logger, lang string, dpi int) *Tesseract {
	if lang == "" {
		lang = "tur"
	}
	if dpi <= 0 {
		dpi = 300
	}
	t := &Tesseract{Lang: lang, DPI: dpi, Timeout: 2 * time.Minute, logger: logger}

	if p, err := exec.LookPath("pdftoppm"); err == nil {
		t.pdftoppm = p
	}
	if p, err := exec.LookPath("tesseract"); err == nil {
		t.tesseract = p
	}
	if !t.Available() {
		logger.Warn("ocr tools not found, secondary reports will be skipped",
			slog.Bool("pdftoppm", t.pdftoppm != ""),
			slog.Bool("tesseract", t.tesseract != ""))
	}
	return t
}

func (t *Tesseract) Available() bool {
	return t != nil && t.pdftoppm != "" && t.tesseract != ""
}

// RecognizePDF returns one text per page, in page order.
func (t *Tesseract) RecognizePDF(ctx context.Context, path string) ([]string, error) {
	if !t.Available() {
		return nil, ErrUnavailable
	}

	dir, err := os.MkdirTemp("", "krm-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	start := time.Now()
	if _, err := t.run(ctx, t.pdftoppm, "-r", fmt.Sprint(t.DPI), "-png", path, filepath.Join(dir, "page")); err != nil {
		return nil, fmt.Errorf("failed to rasterize %s: %w", filepath.Base(path), err)
	}

	images, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sortPages(images)

	pages := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := t.run(ctx, t.tesseract, img, "stdout", "-l", t.Lang)
		if err != nil {
			return nil, fmt.Errorf("failed to recognize %s: %w", filepath.Base(img), err)
		}
		pages = append(pages, text)
	}

	t.logger.Debug("ocr finished",
		slog.String("file", filepath.Base(path)),
		slog.Int("pages", len(pages)),
		slog.Duration("duration", time.Since(start)))
	return pages, nil
}

func (t *Tesseract) run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timeout after %v", filepath.Base(name), timeout)
		}
		return "", fmt.Errorf("%s failed: %w, stderr: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// sortPages orders pdftoppm output by page number.
func sortPages(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
}

// Static serves fixed page texts. It backs tests and pre-recognized inputs.
type Static struct {
	Pages map[string][]string
	Err   error
}

func (s Static) Available() bool { return s.Pages != nil || s.Err != nil }

func (s Static) RecognizePDF(_ context.Context, path string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	pages, ok := s.Pages[path]
	if !ok {
		return nil, fmt.Errorf("ocr: no pages for %s", path)
	}
	return pages, nil
}
