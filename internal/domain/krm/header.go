package krm

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/krm-analyzer/internal/platform/document"
	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

const (
	UnknownCompany = "Bilinmeyen Firma"
	UnknownDate    = "Bilinmiyor"

	reportTitle = "krm sorgu ozet raporu"
)

var queryDatePattern = regexp.MustCompile(`sorgu tarihi\s+(\d{2}\.\d{2}\.\d{2})`)

// Header is the identification block of the first page.
type Header struct {
	Company    string `json:"company"`
	ReportDate string `json:"report_date"`
}

// ParseHeader reads the company name (the line after the report title) and
// the query date from the first page. An unreadable first page yields the
// unknown placeholders; a page without the title yields an empty company.
func ParseHeader(doc document.Document) Header {
	text, err := doc.Text(0)
	if err != nil {
		return Header{Company: UnknownCompany, ReportDate: UnknownDate}
	}

	h := Header{ReportDate: UnknownDate}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.Contains(textfold.Fold(line), reportTitle) && i+1 < len(lines) {
			h.Company = strings.TrimSpace(lines[i+1])
			break
		}
	}

	if m := queryDatePattern.FindStringSubmatch(textfold.Fold(text)); m != nil {
		h.ReportDate = m[1]
	}
	return h
}
