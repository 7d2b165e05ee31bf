package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/pkg/storage"
)

// Format is an artifact type written per report.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const (
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentCSV  = "text/csv"
	contentJSON = "application/json"
)

// ParseFormats reads a comma separated list such as "xlsx,json". Unknown
// names are an error.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		switch f := Format(strings.ToLower(strings.TrimSpace(part))); f {
		case "":
		case FormatXLSX, FormatCSV, FormatJSON:
			out = append(out, f)
		default:
			return nil, fmt.Errorf("unknown output format %q", part)
		}
	}
	return out, nil
}

// Artifacts saves the report files of each result into a store.
type Artifacts struct {
	store   storage.Storage
	formats []Format
	logger  *slog.Logger
}

// NewArtifacts writes the given formats into store.
func NewArtifacts(store storage.Storage, formats []Format, logger *slog.Logger) *Artifacts {
	return &Artifacts{store: store, formats: formats, logger: logger}
}

// Save writes every configured format for a successful result. Failed
// results get only their JSON, so the error is kept with the run. When one
// artifact cannot be written, those already stored for the result are
// removed again.
func (a *Artifacts) Save(ctx context.Context, res analysis.Result) ([]*storage.FileInfo, error) {
	stem := strings.TrimSuffix(res.File, filepath.Ext(res.File))

	var saved []*storage.FileInfo
	put := func(name, contentType string, write func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return err
		}
		info, err := a.store.Put(ctx, res.RunID, name, contentType, &buf)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", name, err)
		}
		saved = append(saved, info)
		return nil
	}

	for _, f := range a.formats {
		if !res.Success && f != FormatJSON {
			continue
		}
		var err error
		switch f {
		case FormatXLSX:
			err = put(stem+"_analiz.xlsx", contentXLSX, func(w io.Writer) error { return WriteXLSX(w, res) })
		case FormatCSV:
			err = put(stem+"_bulgular.csv", contentCSV, func(w io.Writer) error { return WriteFindingsCSV(w, res) })
			if err == nil && len(res.Matches) > 0 {
				err = put(stem+"_eslesmeler.csv", contentCSV, func(w io.Writer) error { return WriteMatchesCSV(w, res) })
			}
		case FormatJSON:
			err = put(stem+".json", contentJSON, func(w io.Writer) error { return WriteJSON(w, res) })
		}
		if err != nil {
			a.discard(ctx, res, saved)
			return nil, err
		}
	}

	a.logger.Debug("saved report artifacts",
		slog.String("file", res.File),
		slog.String("run_id", res.RunID.String()),
		slog.Int("artifacts", len(saved)))
	return saved, nil
}

func (a *Artifacts) discard(ctx context.Context, res analysis.Result, saved []*storage.FileInfo) {
	for _, info := range saved {
		if err := a.store.Delete(ctx, res.RunID, info.ID); err != nil {
			a.logger.Warn("failed to remove partial artifact",
				slog.String("file", info.Name),
				slog.Any("error", err))
		}
	}
}
