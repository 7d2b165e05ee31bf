// Package money provides parsing and formatting of Turkish-formatted monetary
// amounts as they appear in bureau report cells. Amounts are carried as
// shopspring/decimal values and rendered through the go-money formatter.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// TRY is the only currency the bureau reports are issued in.
const TRY = "TRY"

// ZeroMarker is the literal the reports print for an empty position.
const ZeroMarker = "0"

// ErrEmptyAmount is returned by ParseAmount for empty cells and the zero marker.
var ErrEmptyAmount = errors.New("empty amount")

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a report cell such as "1.234.567,89" to a decimal.
// Grouping dots are removed, the decimal comma becomes a dot and embedded
// newlines (wrapped cells) are stripped.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == ZeroMarker {
		return decimal.Zero, ErrEmptyAmount
	}

	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	s = strings.ReplaceAll(s, ".", "")  // Remove thousands separator
	s = strings.ReplaceAll(s, ",", ".") // Decimal separator to dot
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// NormalizeAmount is the fail-open variant of ParseAmount: anything that does
// not parse is treated as no position and yields zero.
func NormalizeAmount(raw string) decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Formatter renders decimals with a fixed grouping separator and no fraction.
type Formatter struct {
	f *gomoney.Formatter
}

var (
	// Grouped renders "1,234,567" and matches the audit detail strings.
	Grouped = Formatter{f: gomoney.NewFormatter(0, ".", ",", "", "1")}
	// Turkish renders "1.234.567" for report tables.
	Turkish = Formatter{f: gomoney.NewFormatter(0, ",", ".", "", "1")}
)

// Format rounds half to even to whole units and applies the grouping.
func (f Formatter) Format(d decimal.Decimal) string {
	return f.f.Format(d.RoundBank(0).IntPart())
}

// FormatGrouped formats with comma grouping and zero decimals.
func FormatGrouped(d decimal.Decimal) string {
	return Grouped.Format(d)
}

// FormatTR formats with dot grouping and zero decimals.
func FormatTR(d decimal.Decimal) string {
	return Turkish.Format(d)
}

// FormatPercent formats a percentage with one decimal place.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixedBank(1)
}

// Percent returns part/whole*100. A non-positive whole yields zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// Display formats an amount the way the console and workbook show it, e.g. "1.234 TL".
func Display(d decimal.Decimal) string {
	return FormatTR(d) + " TL"
}
