// Package findeks reads bank limit and risk blocks out of OCR text of Findeks
// reports.
package findeks

import "github.com/shopspring/decimal"

// Record is one bank block of a Findeks report. Page is 1-based.
type Record struct {
	Page    int    `json:"page"`
	Name    string `json:"name"`
	RawName string `json:"raw_name"`

	GroupLimit   decimal.Decimal `json:"group_limit"`
	CashLimit    decimal.Decimal `json:"cash_limit"`
	NonCashLimit decimal.Decimal `json:"non_cash_limit"`
	TotalLimit   decimal.Decimal `json:"total_limit"`

	CashRisk    decimal.Decimal `json:"cash_risk"`
	NonCashRisk decimal.Decimal `json:"non_cash_risk"`
	TotalRisk   decimal.Decimal `json:"total_risk"`
}

func (r Record) hasLimits() bool {
	return !r.GroupLimit.IsZero() || !r.CashLimit.IsZero() || !r.NonCashLimit.IsZero() || !r.TotalLimit.IsZero()
}

// BlockSkip explains why a candidate block produced no record.
type BlockSkip string

const (
	BlockSkipNoKeyword BlockSkip = "no_bank_keyword"
	BlockSkipAllZero   BlockSkip = "all_limits_zero"
	BlockSkipError     BlockSkip = "block_error"
)

// BlockOutcome records a discarded block.
type BlockOutcome struct {
	Page   int       `json:"page"`
	Name   string    `json:"name"`
	Reason BlockSkip `json:"reason"`
	Detail string    `json:"detail,omitempty"`
}

// Extraction is the result of reading one report.
type Extraction struct {
	Records  []Record       `json:"records"`
	Outcomes []BlockOutcome `json:"outcomes,omitempty"`
}

// Skipped returns the outcomes with the given reason.
func (e Extraction) Skipped(reason BlockSkip) []BlockOutcome {
	var out []BlockOutcome
	for _, o := range e.Outcomes {
		if o.Reason == reason {
			out = append(out, o)
		}
	}
	return out
}

// Status tells how the secondary report was processed.
type Status string

const (
	StatusNone        Status = "none"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusOK          Status = "ok"
)
