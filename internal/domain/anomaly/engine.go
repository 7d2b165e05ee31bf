package anomaly

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
)

// Thresholds tune the rules. Utilization values are percentages.
type Thresholds struct {
	HighUtilization         decimal.Decimal
	CriticalUtilization     decimal.Decimal
	CriticalDelinquencyDays int
}

// DefaultThresholds returns 95% / 100% utilization and 30 days delinquency.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighUtilization:         decimal.NewFromInt(95),
		CriticalUtilization:     decimal.NewFromInt(100),
		CriticalDelinquencyDays: 30,
	}
}

// Engine evaluates the rule set.
type Engine struct {
	Thresholds Thresholds
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{Thresholds: t}
}

// Evaluate runs every rule for each active entity and returns the findings
// sorted critical first, then by entity. Missing records count as zero.
func (e *Engine) Evaluate(limits map[krm.EntityID]krm.LimitRecord, risks map[krm.EntityID]krm.RiskRecord, active []krm.EntityID) []Finding {
	ids := append([]krm.EntityID(nil), active...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	findings := make([]Finding, 0)
	for _, id := range ids {
		findings = append(findings, e.EvaluateEntity(id, limits[id], risks[id])...)
	}
	Sort(findings)
	return findings
}

// EvaluateEntity applies the rules to one entity in fixed order: cash limit,
// non-cash limit, exposure without limit, delinquency, utilization. All
// applicable rules fire.
func (e *Engine) EvaluateEntity(id krm.EntityID, l krm.LimitRecord, r krm.RiskRecord) []Finding {
	var out []Finding
	add := func(kind Kind, sev Severity, magnitude decimal.Decimal, detail string) {
		out = append(out, Finding{Entity: id, Kind: kind, Severity: sev, Detail: detail, Magnitude: magnitude})
	}
	g := money.FormatGrouped

	if r.Cash.GreaterThan(l.Cash) && l.Cash.IsPositive() {
		over := r.Cash.Sub(l.Cash)
		if l.Total.IsPositive() && r.Cash.LessThanOrEqual(l.Total) {
			add(CashLimitInsufficient, Warning, over, fmt.Sprintf(
				"Nakdi risk (%s) nakdi limiti (%s) aşıyor, ancak toplam limit (%s) yeterli. Nakdi aşım: %s TL",
				g(r.Cash), g(l.Cash), g(l.Total), g(over)))
		} else {
			add(CashLimitExceeded, Critical, over, fmt.Sprintf(
				"Nakdi risk (%s) nakdi limiti (%s) aşıyor. Aşım: %s TL",
				g(r.Cash), g(l.Cash), g(over)))
		}
	}

	if r.NonCash.GreaterThan(l.NonCash) && l.NonCash.IsPositive() {
		if l.Total.IsPositive() && r.NonCash.GreaterThan(l.Total) {
			over := r.NonCash.Sub(l.Total)
			add(NonCashLimitExceeded, Critical, over, fmt.Sprintf(
				"Gayrinakdi risk (%s) hem gayrinakdi limiti (%s) hem de genel limiti (%s) aşıyor. Genel limit aşımı: %s TL",
				g(r.NonCash), g(l.NonCash), g(l.Total), g(over)))
		} else {
			over := r.NonCash.Sub(l.NonCash)
			add(NonCashLimitExceeded, Warning, over, fmt.Sprintf(
				"Gayrinakdi risk (%s) gayrinakdi limiti (%s) aşıyor ama genel limit (%s) içinde. Gayrinakdi aşım: %s TL",
				g(r.NonCash), g(l.NonCash), g(l.Total), g(over)))
		}
	}

	if r.Total.IsPositive() && l.Total.IsZero() {
		add(ExposureWithoutLimit, Critical, r.Total, fmt.Sprintf(
			"Limit olmadan %s TL risk taşınıyor", g(r.Total)))
	}

	if r.DelinquencyDays > 0 {
		sev := Warning
		if r.DelinquencyDays > e.Thresholds.CriticalDelinquencyDays {
			sev = Critical
		}
		add(Delinquency, sev, decimal.NewFromInt(int64(r.DelinquencyDays)), fmt.Sprintf(
			"%d gun gecikme var", r.DelinquencyDays))
	}

	if l.Total.IsPositive() {
		usage := money.Percent(r.Total, l.Total)
		switch {
		case usage.GreaterThan(e.Thresholds.CriticalUtilization):
			over := r.Total.Sub(l.Total)
			add(TotalLimitExceeded, Critical, over, fmt.Sprintf(
				"Toplam risk (%s) toplam limiti (%s) asiyor. Asim: %s TL (%%%s kullanim)",
				g(r.Total), g(l.Total), g(over), money.FormatPercent(usage)))
		case usage.GreaterThan(e.Thresholds.HighUtilization):
			add(HighUtilization, Warning, usage, fmt.Sprintf(
				"%%%s kullanim (Risk: %s / Limit: %s)",
				money.FormatPercent(usage), g(r.Total), g(l.Total)))
		}
	}

	return out
}
