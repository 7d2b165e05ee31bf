package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
)

// FindingRow is one line of the findings CSV.
type FindingRow struct {
	File      string `csv:"file"`
	Company   string `csv:"company"`
	Entity    string `csv:"entity"`
	Severity  string `csv:"severity"`
	Kind      string `csv:"kind"`
	Label     string `csv:"label"`
	Magnitude string `csv:"magnitude"`
	Detail    string `csv:"detail"`
}

// MatchRow is one line of the matches CSV.
type MatchRow struct {
	File          string `csv:"file"`
	Entity        string `csv:"entity"`
	SecondaryName string `csv:"secondary_name"`
	Score         string `csv:"score"`
	Confidence    string `csv:"confidence"`
	Compared      int    `csv:"compared"`
	CashLimit     string `csv:"cash_limit"`
	SecondaryCash string `csv:"secondary_cash_limit"`
	TotalLimit    string `csv:"total_limit"`
	SecondaryTot  string `csv:"secondary_total_limit"`
}

// FindingRows flattens the findings of a result.
func FindingRows(res analysis.Result) []*FindingRow {
	rows := make([]*FindingRow, 0, len(res.Findings))
	for _, f := range res.Findings {
		rows = append(rows, &FindingRow{
			File:      res.File,
			Company:   res.Company,
			Entity:    string(f.Entity),
			Severity:  string(f.Severity),
			Kind:      string(f.Kind),
			Label:     f.Kind.Label(),
			Magnitude: f.Magnitude.StringFixedBank(1),
			Detail:    f.Detail,
		})
	}
	return rows
}

// MatchRows flattens the matches of a result.
func MatchRows(res analysis.Result) []*MatchRow {
	rows := make([]*MatchRow, 0, len(res.Matches))
	for _, m := range res.Matches {
		rows = append(rows, &MatchRow{
			File:          res.File,
			Entity:        string(m.Entity),
			SecondaryName: m.SecondaryName,
			Score:         strconv.FormatFloat(m.Score, 'f', 4, 64),
			Confidence:    string(m.Confidence),
			Compared:      m.Compared,
			CashLimit:     money.FormatTR(m.Primary.CashLimit),
			SecondaryCash: money.FormatTR(m.Secondary.CashLimit),
			TotalLimit:    money.FormatTR(m.Primary.TotalLimit),
			SecondaryTot:  money.FormatTR(m.Secondary.TotalLimit),
		})
	}
	return rows
}

// WriteFindingsCSV writes the findings with a header row.
func WriteFindingsCSV(w io.Writer, res analysis.Result) error {
	if err := gocsv.Marshal(FindingRows(res), w); err != nil {
		return fmt.Errorf("failed to write findings CSV: %w", err)
	}
	return nil
}

// WriteMatchesCSV writes the matches with a header row.
func WriteMatchesCSV(w io.Writer, res analysis.Result) error {
	if err := gocsv.Marshal(MatchRows(res), w); err != nil {
		return fmt.Errorf("failed to write matches CSV: %w", err)
	}
	return nil
}

// WriteJSON writes the full result, indented.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
