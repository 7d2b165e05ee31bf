package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/export"
	"github.com/FACorreiaa/krm-analyzer/pkg/config"
)

const reportFixture = `{"pages": [
  {"text": "KRM SORGU ÖZET RAPORU\nACME Tekstil A.Ş.\nSorgu Tarihi 12.03.25"},
  {"tables": [[
    ["LİMİT BİLGİLERİ", null, null, null, null, null, null],
    ["Kaynak", "Grup Limit", "Nakdi Limit", "Gayrinakdi\nLimit", "Toplam Limit", "Genel Revize\nVadesi", "Son Revize\nTarihi"],
    ["KAYNAK-1", "0", "1.000,00", "0", "2.000,00", "01/06/99", null]
  ]]},
  {"tables": [[
    ["RİSK BİLGİLERİ", null, null, null, null],
    ["Kaynak", "Nakdi Risk", "Gayrinakdi Risk", "Toplam Risk", "Max Gecikme\nGün"],
    ["KAYNAK-1", "1.100,00", "0", "1.100,00", "0"]
  ]]}
]}`

func testConfig(t *testing.T, formats string) *config.Config {
	return &config.Config{
		Paths:  config.PathsConfig{OutputDir: t.TempDir(), Formats: formats},
		Limits: config.LimitsConfig{MaxFileMB: 1, MaxPages: 10},
		Batch:  config.BatchConfig{Workers: 2},
		Log:    config.LogConfig{Level: "error", Format: "text"},
	}
}

func testDeps(t *testing.T, cfg *config.Config, console io.Writer) *Dependencies {
	deps, err := InitDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	deps.Console = export.NewConsole(console)
	return deps
}

func writeReport(t *testing.T, dir, name string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(reportFixture), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	cfg := &config.Config{
		Paths: config.PathsConfig{InputDir: ".", OutputDir: "rapor", Formats: "xlsx"},
		Batch: config.BatchConfig{Workers: 1},
		OCR:   config.OCRConfig{Enabled: true},
		Log:   config.LogConfig{Level: "info", Format: "text"},
	}

	opts, err := parseFlags([]string{"-workers", "3", "-output", "out", "-ocr=false", "-json", "-watch", "reports"}, cfg, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "reports", opts.input)
	assert.True(t, opts.json)
	assert.True(t, opts.watch)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, "out", cfg.Paths.OutputDir)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, defaultWatchSchedule, cfg.Batch.Schedule)
}

func TestParseFlagsErrors(t *testing.T) {
	newCfg := func() *config.Config {
		return &config.Config{Batch: config.BatchConfig{Workers: 1}, Log: config.LogConfig{Level: "info", Format: "text"}}
	}

	_, err := parseFlags([]string{"a", "b"}, newCfg(), io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-workers", "0"}, newCfg(), io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-unknown"}, newCfg(), io.Discard)
	assert.Error(t, err)
}

func TestRunnerDirectory(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "acme_krm.json")
	writeReport(t, dir, "beta_krm.json")

	cfg := testConfig(t, "json,csv")
	var console bytes.Buffer
	deps := testDeps(t, cfg, &console)

	summary, err := newRunner(deps, dir, io.Discard).run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Critical)
	assert.Equal(t, 2, summary.Warning)
	assert.False(t, summary.AllClean)

	out := console.String()
	assert.Contains(t, out, "ACME Tekstil A.Ş.")
	assert.Contains(t, out, "GENEL ÖZET")
	assert.Contains(t, out, "NAKDİ LİMİT YETERSİZ")

	runs, err := os.ReadDir(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunnerSingleFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "acme_krm.json")

	cfg := testConfig(t, "json")
	cfg.Metrics.File = filepath.Join(t.TempDir(), "krm.prom")
	deps := testDeps(t, cfg, io.Discard)

	var stdout bytes.Buffer
	r := newRunner(deps, path, &stdout)
	r.json = true

	_, err := r.run(context.Background())
	require.NoError(t, err)

	var decoded batchOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "acme_krm.json", decoded.Results[0].File)
	assert.Equal(t, 1, decoded.Summary.Documents)

	metrics, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(metrics), "krm_documents_total"))
}

func TestRunnerRejectsSecondaryInput(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "acme_findeks.json")

	deps := testDeps(t, testConfig(t, "json"), io.Discard)
	_, err := newRunner(deps, path, io.Discard).run(context.Background())
	assert.Error(t, err)
}

func TestRunnerWatchSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "acme_krm.json")

	deps := testDeps(t, testConfig(t, "json"), io.Discard)
	r := newRunner(deps, dir, io.Discard)
	r.watch = true

	first, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Documents)

	second, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Documents)
}

func TestRunnerWatchRetriesFailed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme_krm.json"), []byte("{not json"), 0644))

	deps := testDeps(t, testConfig(t, "json"), io.Discard)
	r := newRunner(deps, dir, io.Discard)
	r.watch = true

	first, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Documents)
	assert.Equal(t, 1, first.Failed)

	second, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Documents)

	writeReport(t, dir, "acme_krm.json")
	third, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, third.Succeeded)

	fourth, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fourth.Documents)
}
