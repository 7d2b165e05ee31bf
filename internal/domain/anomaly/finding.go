// Package anomaly evaluates limit, delinquency and utilization rules over the
// active entities of a report.
package anomaly

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
)

// Severity of a finding.
type Severity string

const (
	Critical Severity = "CRITICAL"
	Warning  Severity = "WARNING"
)

func (s Severity) rank() int {
	if s == Critical {
		return 0
	}
	return 1
}

// Kind is the closed set of rules that can fire.
type Kind string

const (
	CashLimitInsufficient Kind = "cash_limit_insufficient"
	CashLimitExceeded     Kind = "cash_limit_exceeded"
	NonCashLimitExceeded  Kind = "non_cash_limit_exceeded"
	ExposureWithoutLimit  Kind = "exposure_without_limit"
	Delinquency           Kind = "delinquency"
	TotalLimitExceeded    Kind = "total_limit_exceeded"
	HighUtilization       Kind = "high_utilization"
)

var labels = map[Kind]string{
	CashLimitInsufficient: "NAKDİ LİMİT YETERSİZ",
	CashLimitExceeded:     "NAKDİ LİMİT AŞIMI",
	NonCashLimitExceeded:  "GAYRİNAKDİ LİMİT AŞIMI",
	ExposureWithoutLimit:  "LIMITSIZ KULLANIM",
	Delinquency:           "GECIKME",
	TotalLimitExceeded:    "TOPLAM LIMIT ASIMI",
	HighUtilization:       "YUKSEK KULLANIM",
}

// Label is the Turkish display name used in reports.
func (k Kind) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

// Finding is one rule hit. Magnitude is the overage or unlimited exposure,
// the delinquency days, or the utilization percentage for HighUtilization.
type Finding struct {
	Entity    krm.EntityID    `json:"entity"`
	Kind      Kind            `json:"kind"`
	Severity  Severity        `json:"severity"`
	Detail    string          `json:"detail"`
	Magnitude decimal.Decimal `json:"magnitude"`
}

// Sort orders findings critical first, then by entity. Rule order within one
// entity is kept.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		return a.Entity < b.Entity
	})
}

// Count returns the number of critical and warning findings.
func Count(findings []Finding) (critical, warning int) {
	for _, f := range findings {
		switch f.Severity {
		case Critical:
			critical++
		case Warning:
			warning++
		}
	}
	return critical, warning
}
