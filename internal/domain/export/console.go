// Package export renders analysis results for people and for other tools:
// a console report, an XLSX workbook, CSV tables and JSON.
package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/anomaly"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/findeks"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
)

const rule = "================================================================================"

// Console writes the terminal report.
type Console struct {
	w io.Writer
}

// NewConsole writes to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Report prints one result: header, counts, passive sources, findings and
// matches.
func (c *Console) Report(res analysis.Result) {
	if !res.Success {
		fmt.Fprintf(c.w, "✗ %s: %s\n", res.File, res.Err)
		return
	}

	fmt.Fprintf(c.w, "\n%s\n", rule)
	fmt.Fprintf(c.w, "%s\nRapor Tarihi: %s\nDosya: %s\n", res.Company, res.ReportDate, res.File)

	fmt.Fprintf(c.w, "\nÖzet:\n")
	fmt.Fprintf(c.w, "  Toplam Kaynak: %d\n", res.Stats.Sources)
	fmt.Fprintf(c.w, "  Aktif Kaynak: %d\n", res.Stats.Active)
	if res.Stats.Passive > 0 {
		fmt.Fprintf(c.w, "  Pasif Kaynak: %d\n", res.Stats.Passive)
	}
	fmt.Fprintf(c.w, "  Tespit Edilen Sorun: %d\n", res.Stats.Findings)
	if res.Stats.Critical > 0 {
		fmt.Fprintf(c.w, "  Kritik: %d\n", res.Stats.Critical)
	}
	if res.Stats.Warning > 0 {
		fmt.Fprintf(c.w, "  Uyarı: %d\n", res.Stats.Warning)
	}

	if len(res.Passive) > 0 {
		c.passive(res)
	}

	if len(res.Findings) == 0 {
		fmt.Fprintf(c.w, "\nAktif kaynaklarda tutarsizlik tespit edilmedi\n")
	} else {
		fmt.Fprintf(c.w, "\nTespit Edilen Sorunlar:\n")
		c.findings("KRITIK", res.Findings, anomaly.Critical)
		c.findings("UYARI", res.Findings, anomaly.Warning)
	}

	if res.SecondaryFile != "" {
		c.matches(res)
	}
}

func (c *Console) passive(res analysis.Result) {
	fmt.Fprintf(c.w, "\nPasif Kaynaklar - Revize Vadesi Gecmis (%d):\n", len(res.Passive))
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Kaynak\tSon Revize\tGrup Limit\tToplam Limit\t")
	for _, id := range res.Passive {
		l := res.Limits[id]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", id, revision(l), money.FormatGrouped(l.Group), money.FormatGrouped(l.Total))
	}
	tw.Flush()
}

func (c *Console) findings(title string, findings []anomaly.Finding, sev anomaly.Severity) {
	var rows []anomaly.Finding
	for _, f := range findings {
		if f.Severity == sev {
			rows = append(rows, f)
		}
	}
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(c.w, "\n%s\n", title)
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Kaynak\tTip\tDetay")
	for _, f := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Entity, f.Kind.Label(), f.Detail)
	}
	tw.Flush()
}

func (c *Console) matches(res analysis.Result) {
	fmt.Fprintf(c.w, "\nFindeks (%s): %s\n", res.SecondaryFile, secondaryLabel(res.Secondary))
	if len(res.Matches) == 0 {
		return
	}
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Kaynak\tBanka\tSkor\tGüven")
	for _, m := range res.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", m.Entity, m.SecondaryName, m.Score, m.Confidence)
	}
	tw.Flush()
}

// Summary prints the batch totals.
func (c *Console) Summary(s analysis.BatchSummary, outputDir string) {
	fmt.Fprintf(c.w, "\n%s\nGENEL ÖZET\n", rule)
	fmt.Fprintf(c.w, "Analiz Edilen Rapor: %d\n", s.Documents)
	if s.Failed > 0 {
		fmt.Fprintf(c.w, "Başarısız Rapor: %d\n", s.Failed)
	}
	fmt.Fprintf(c.w, "Toplam Aktif Kaynak: %d\n", s.Active)
	fmt.Fprintf(c.w, "Toplam Pasif Kaynak: %d\n", s.Passive)
	fmt.Fprintf(c.w, "Toplam Kritik Sorun: %d\n", s.Critical)
	fmt.Fprintf(c.w, "Toplam Uyarı: %d\n", s.Warning)
	if outputDir != "" {
		fmt.Fprintf(c.w, "\nRaporlar kaydedildi: %s\n", strings.TrimSuffix(outputDir, "/")+"/")
	}
	if s.AllClean {
		fmt.Fprintf(c.w, "\nTüm aktif kaynaklar temiz!\n")
	}
}

func revision(l krm.LimitRecord) string {
	if l.RevisionDate == nil {
		return krm.UnknownDate
	}
	return l.RevisionDate.Format("02/01/2006")
}

func secondaryLabel(s analysis.SecondaryStatus) string {
	switch s {
	case findeks.StatusOK:
		return "okundu"
	case findeks.StatusUnavailable:
		return "OCR kullanılamıyor"
	case findeks.StatusFailed:
		return "okunamadı"
	default:
		return "yok"
	}
}
