package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
)

// Sheet names of the workbook.
const (
	SheetSummary  = "Özet"
	SheetFindings = "Bulgular"
	SheetPassive  = "Pasif Kaynaklar"
	SheetDetail   = "Detay"
	SheetMatches  = "Eşleşmeler"
)

type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (sw *sheetWriter) row(sheet string, n int, values ...any) {
	if sw.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetSheetRow(sheet, cell, &values)
}

func (sw *sheetWriter) table(sheet string, headings []string, widths []float64) {
	if sw.err != nil {
		return
	}
	values := make([]any, len(headings))
	for i, h := range headings {
		values[i] = h
	}
	sw.row(sheet, 1, values...)

	last, err := excelize.CoordinatesToCellName(len(headings), 1)
	if err != nil {
		sw.err = err
		return
	}
	if sw.err == nil {
		sw.err = sw.f.SetCellStyle(sheet, "A1", last, sw.header)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if sw.err == nil {
			sw.err = sw.f.SetColWidth(sheet, col, col, w)
		}
	}
}

func (sw *sheetWriter) sheet(name string) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.f.NewSheet(name)
}

func amount(d decimal.Decimal) float64 { return d.InexactFloat64() }

// Workbook builds the XLSX report of a successful result. The caller closes
// the file.
func Workbook(res analysis.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	sw := &sheetWriter{f: f, header: header}

	if sw.err = f.SetSheetName("Sheet1", SheetSummary); sw.err == nil {
		writeSummary(sw, res)
	}
	writeFindings(sw, res)
	writePassive(sw, res)
	writeDetail(sw, res)
	writeMatches(sw, res)

	if sw.err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build workbook: %w", sw.err)
	}
	return f, nil
}

// WriteXLSX writes the workbook of res to w.
func WriteXLSX(w io.Writer, res analysis.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(sw *sheetWriter, res analysis.Result) {
	sw.table(SheetSummary, []string{"Alan", "Değer"}, []float64{28, 40})
	rows := [][]any{
		{"Firma", res.Company},
		{"Rapor Tarihi", res.ReportDate},
		{"Dosya", res.File},
		{"Analiz Tarihi", res.AnalyzedAt.Format("02.01.2006 15:04")},
		{"Toplam Kaynak", res.Stats.Sources},
		{"Aktif Kaynak", res.Stats.Active},
		{"Pasif Kaynak", res.Stats.Passive},
		{"Tespit Edilen Sorun", res.Stats.Findings},
		{"Kritik", res.Stats.Critical},
		{"Uyarı", res.Stats.Warning},
		{"Findeks", string(res.Secondary)},
		{"Eşleşme", len(res.Matches)},
		{"Çalıştırma", res.RunID.String()},
	}
	for i, r := range rows {
		sw.row(SheetSummary, i+2, r...)
	}
}

func writeFindings(sw *sheetWriter, res analysis.Result) {
	sw.sheet(SheetFindings)
	sw.table(SheetFindings, []string{"Kaynak", "Önem", "Tip", "Büyüklük", "Detay"}, []float64{14, 12, 26, 14, 90})
	for i, f := range res.Findings {
		sw.row(SheetFindings, i+2, string(f.Entity), string(f.Severity), f.Kind.Label(), amount(f.Magnitude), f.Detail)
	}
}

func writePassive(sw *sheetWriter, res analysis.Result) {
	sw.sheet(SheetPassive)
	sw.table(SheetPassive, []string{"Kaynak", "Son Revize", "Grup Limit", "Toplam Limit", "Durum"}, []float64{14, 14, 16, 16, 10})
	for i, id := range res.Passive {
		l := res.Limits[id]
		sw.row(SheetPassive, i+2, string(id), revision(l), amount(l.Group), amount(l.Total), "Pasif")
	}
}

func writeDetail(sw *sheetWriter, res analysis.Result) {
	sw.sheet(SheetDetail)
	sw.table(SheetDetail, []string{
		"Kaynak", "Grup Limit", "Nakdi Limit", "Gayrinakdi Limit", "Toplam Limit",
		"Nakdi Risk", "Gayrinakdi Risk", "Toplam Risk", "Kullanım %", "Gecikme Gün", "Son Revize",
	}, []float64{14, 14, 14, 16, 14, 14, 16, 14, 12, 12, 12})

	for i, id := range res.Active {
		l, r := res.Limits[id], res.Risks[id]
		var usage any = ""
		if l.Total.IsPositive() {
			usage = money.Percent(r.Total, l.Total).Round(1).InexactFloat64()
		}
		sw.row(SheetDetail, i+2, string(id),
			amount(l.Group), amount(l.Cash), amount(l.NonCash), amount(l.Total),
			amount(r.Cash), amount(r.NonCash), amount(r.Total),
			usage, r.DelinquencyDays, revision(l))
	}
}

func writeMatches(sw *sheetWriter, res analysis.Result) {
	sw.sheet(SheetMatches)
	sw.table(SheetMatches, []string{
		"Kaynak", "Banka", "Skor", "Güven", "Karşılaştırılan",
		"Nakdi Limit", "Findeks Nakdi Limit", "Toplam Limit", "Findeks Toplam Limit",
	}, []float64{14, 28, 10, 10, 16, 14, 20, 14, 20})
	for i, m := range res.Matches {
		sw.row(SheetMatches, i+2, string(m.Entity), m.SecondaryName, m.Score, string(m.Confidence), m.Compared,
			amount(m.Primary.CashLimit), amount(m.Secondary.CashLimit),
			amount(m.Primary.TotalLimit), amount(m.Secondary.TotalLimit))
	}
}
