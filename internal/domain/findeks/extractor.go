package findeks

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/platform/ocr"
	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// DefaultFirstPage skips the cover and summary pages.
const DefaultFirstPage = 2

const amountCapture = `[^0-9\n]{0,15}?([0-9][0-9.,]*)`

// field finds an amount after a label. Matches whose "gayri" group is set
// belong to the non-cash variant and are ignored.
type field struct {
	re    *regexp.Regexp
	gayri int
}

func newField(label string) field {
	re := regexp.MustCompile(label + amountCapture)
	return field{re: re, gayri: re.SubexpIndex("gayri")}
}

func (f field) matches(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range f.re.FindAllStringSubmatchIndex(text, -1) {
		if f.gayri > 0 && m[2*f.gayri] >= 0 && m[2*f.gayri+1] > m[2*f.gayri] {
			continue
		}
		n := len(m)
		out = append(out, parseOCRAmount(text[m[n-2]:m[n-1]]))
	}
	return out
}

func (f field) first(text string) decimal.Decimal {
	if all := f.matches(text); len(all) > 0 {
		return all[0]
	}
	return decimal.Zero
}

func (f field) last(text string) decimal.Decimal {
	if all := f.matches(text); len(all) > 0 {
		return all[len(all)-1]
	}
	return decimal.Zero
}

var (
	groupLimit   = newField(`\bgrup\s*limit\w*`)
	cashLimit    = newField(`\b(?P<gayri>gayri\s*)?nakdi\s*limit\w*`)
	nonCashLimit = newField(`\bgayri\s*nakdi\s*limit\w*`)
	totalLimit   = newField(`\b(?:toplam|genel)\s*limit\w*`)

	// inside a risk section the bare labels are enough
	cashRiskShort    = newField(`\b(?P<gayri>gayri\s*)?nakdi(?:\s*risk\w*)?`)
	nonCashRiskShort = newField(`\bgayri\s*nakdi(?:\s*risk\w*)?`)
	totalRiskShort   = newField(`\btoplam(?:\s*risk\w*)?`)

	cashRisk    = newField(`\b(?P<gayri>gayri\s*)?nakdi\s*risk\w*`)
	nonCashRisk = newField(`\bgayri\s*nakdi\s*risk\w*`)
	totalRisk   = newField(`\btoplam\s*risk\w*`)

	riskMarker = regexp.MustCompile(`(?m)^[ \t]*risk(?:[ \t]+bilgileri)?\b`)
)

// Extractor turns OCR page texts into records.
type Extractor struct {
	Strategy  BlockStrategy
	Aliases   *AliasResolver
	FirstPage int
}

// NewExtractor uses the total anchor strategy and the given aliases.
func NewExtractor(aliases *AliasResolver) *Extractor {
	return &Extractor{
		Strategy:  TotalAnchorStrategy{Window: DefaultWindow},
		Aliases:   aliases,
		FirstPage: DefaultFirstPage,
	}
}

// Extract reads every page from FirstPage on. Blocks without a bank keyword,
// blocks whose four limit fields are all zero and blocks that panic are
// recorded in Outcomes instead of Records.
func (e *Extractor) Extract(ctx context.Context, pages []string) Extraction {
	strategy := e.Strategy
	if strategy == nil {
		strategy = TotalAnchorStrategy{Window: DefaultWindow}
	}
	first := e.FirstPage
	if first < 0 {
		first = 0
	}

	var accept func(string) bool
	if e.Aliases != nil {
		accept = e.Aliases.HasKeyword
	}

	var out Extraction
	for i := first; i < len(pages); i++ {
		if ctx.Err() != nil {
			break
		}
		for _, block := range strategy.Blocks(pages[i], accept) {
			e.extractBlock(&out, i+1, block)
		}
	}
	return out
}

func (e *Extractor) extractBlock(out *Extraction, page int, block Block) {
	defer func() {
		if r := recover(); r != nil {
			out.Outcomes = append(out.Outcomes, BlockOutcome{
				Page: page, Name: block.Name, Reason: BlockSkipError, Detail: fmt.Sprint(r),
			})
		}
	}()

	if block.Rejected {
		out.Outcomes = append(out.Outcomes, BlockOutcome{Page: page, Name: block.Name, Reason: BlockSkipNoKeyword})
		return
	}

	rec := ReadBlock(block)
	rec.Page = page
	if e.Aliases != nil {
		rec.Name = e.Aliases.Resolve(block.Name)
	} else {
		rec.Name = textfold.Title(block.Name)
	}

	if !rec.hasLimits() {
		out.Outcomes = append(out.Outcomes, BlockOutcome{Page: page, Name: block.Name, Reason: BlockSkipAllZero})
		return
	}
	out.Records = append(out.Records, rec)
}

// ReadBlock reads the amount fields of one block. Limits take the first
// labelled value in the window. Risks take the last labelled value after a
// risk heading, or in the whole window when there is none.
func ReadBlock(block Block) Record {
	text := textfold.Fold(block.Text)
	rec := Record{
		RawName:      block.Name,
		GroupLimit:   groupLimit.first(text),
		CashLimit:    cashLimit.first(text),
		NonCashLimit: nonCashLimit.first(text),
		TotalLimit:   totalLimit.first(text),
	}
	if rec.TotalLimit.IsZero() {
		rec.TotalLimit = block.AnchorTotal
	}

	if loc := riskMarker.FindStringIndex(text); loc != nil {
		section := text[loc[1]:]
		rec.CashRisk = cashRiskShort.last(section)
		rec.NonCashRisk = nonCashRiskShort.last(section)
		rec.TotalRisk = totalRiskShort.last(section)
	} else {
		rec.CashRisk = cashRisk.last(text)
		rec.NonCashRisk = nonCashRisk.last(text)
		rec.TotalRisk = totalRisk.last(text)
	}
	return rec
}

// ExtractDocument runs OCR on path and extracts its records. A missing or
// unavailable engine yields StatusUnavailable with no error; any other OCR
// failure yields StatusFailed and the error. Both leave the extraction empty.
func (e *Extractor) ExtractDocument(ctx context.Context, engine ocr.Engine, path string) (Extraction, Status, error) {
	if engine == nil || !engine.Available() {
		return Extraction{}, StatusUnavailable, nil
	}

	pages, err := engine.RecognizePDF(ctx, path)
	if errors.Is(err, ocr.ErrUnavailable) {
		return Extraction{}, StatusUnavailable, nil
	}
	if err != nil {
		return Extraction{}, StatusFailed, fmt.Errorf("failed to OCR %s: %w", path, err)
	}
	return e.Extract(ctx, pages), StatusOK, nil
}
