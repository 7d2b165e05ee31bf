// Package matching pairs KRM entities with Findeks bank records by how close
// their amounts are.
package matching

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/findeks"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
)

// DefaultThreshold is the highest score a match may have.
const DefaultThreshold = 0.15

// Confidence tier of an accepted match.
type Confidence string

const (
	High   Confidence = "HIGH"
	Medium Confidence = "MEDIUM"
	Low    Confidence = "LOW"
)

// ConfidenceOf returns HIGH up to 0.05, MEDIUM up to 0.10, else LOW.
func ConfidenceOf(score float64) Confidence {
	switch {
	case score <= 0.05:
		return High
	case score <= 0.10:
		return Medium
	default:
		return Low
	}
}

// Fields is the amount vector compared between the two sources.
type Fields struct {
	CashLimit    decimal.Decimal `json:"cash_limit"`
	NonCashLimit decimal.Decimal `json:"non_cash_limit"`
	TotalLimit   decimal.Decimal `json:"total_limit"`
	CashRisk     decimal.Decimal `json:"cash_risk"`
	NonCashRisk  decimal.Decimal `json:"non_cash_risk"`
	TotalRisk    decimal.Decimal `json:"total_risk"`
}

// PrimaryFields combines the limit and risk records of one KRM entity.
func PrimaryFields(l krm.LimitRecord, r krm.RiskRecord) Fields {
	return Fields{
		CashLimit:    l.Cash,
		NonCashLimit: l.NonCash,
		TotalLimit:   l.Total,
		CashRisk:     r.Cash,
		NonCashRisk:  r.NonCash,
		TotalRisk:    r.Total,
	}
}

// SecondaryFields takes the amount vector of a Findeks record.
func SecondaryFields(rec findeks.Record) Fields {
	return Fields{
		CashLimit:    rec.CashLimit,
		NonCashLimit: rec.NonCashLimit,
		TotalLimit:   rec.TotalLimit,
		CashRisk:     rec.CashRisk,
		NonCashRisk:  rec.NonCashRisk,
		TotalRisk:    rec.TotalRisk,
	}
}

// Total exposure is carried in Fields but not scored.
var weights = []struct {
	weight float64
	get    func(Fields) decimal.Decimal
}{
	{2.0, func(f Fields) decimal.Decimal { return f.CashLimit }},
	{1.5, func(f Fields) decimal.Decimal { return f.NonCashLimit }},
	{1.0, func(f Fields) decimal.Decimal { return f.TotalLimit }},
	{2.0, func(f Fields) decimal.Decimal { return f.CashRisk }},
	{1.5, func(f Fields) decimal.Decimal { return f.NonCashRisk }},
}

// Score is the weighted mean relative difference over the fields positive on
// both sides. No comparable field scores +Inf; a single one is doubled.
func Score(a, b Fields) (score float64, compared int) {
	var sum float64
	for _, w := range weights {
		x, y := w.get(a), w.get(b)
		if !x.IsPositive() || !y.IsPositive() {
			continue
		}
		rel := x.Sub(y).Abs().Div(decimal.Max(x, y))
		sum += w.weight * rel.InexactFloat64()
		compared++
	}
	if compared == 0 {
		return math.Inf(1), 0
	}
	score = sum / float64(compared)
	if compared < 2 {
		score *= 2
	}
	return score, compared
}

// Result is an accepted pairing.
type Result struct {
	Entity        krm.EntityID `json:"entity"`
	SecondaryName string       `json:"secondary_name"`
	Score         float64      `json:"score"`
	Confidence    Confidence   `json:"confidence"`
	Primary       Fields       `json:"primary"`
	Secondary     Fields       `json:"secondary"`
	Compared      int          `json:"compared"`
}

// Matcher selects, for every primary entity, the secondary record with the
// lowest score. Several entities may pick the same record unless Exclusive
// is set, in which case pairs are assigned in ascending score order and each
// record is used once.
type Matcher struct {
	Threshold float64
	Exclusive bool
}

// NewMatcher returns a non-exclusive matcher. A non-positive threshold falls
// back to DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

type candidate struct {
	entity  krm.EntityID
	primary Fields
	record  int
	score   float64
	count   int
}

// Match returns accepted pairings sorted by score, then entity.
func (m *Matcher) Match(limits map[krm.EntityID]krm.LimitRecord, risks map[krm.EntityID]krm.RiskRecord, records []findeks.Record) []Result {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	secondary := make([]Fields, len(records))
	for i, rec := range records {
		secondary[i] = SecondaryFields(rec)
	}

	var accepted []candidate
	if m.Exclusive {
		accepted = m.exclusive(limits, risks, secondary, threshold)
	} else {
		accepted = m.greedy(limits, risks, secondary, threshold)
	}

	results := make([]Result, 0, len(accepted))
	for _, c := range accepted {
		results = append(results, Result{
			Entity:        c.entity,
			SecondaryName: records[c.record].Name,
			Score:         c.score,
			Confidence:    ConfidenceOf(c.score),
			Primary:       c.primary,
			Secondary:     secondary[c.record],
			Compared:      c.count,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		return results[i].Entity < results[j].Entity
	})
	return results
}

func (m *Matcher) greedy(limits map[krm.EntityID]krm.LimitRecord, risks map[krm.EntityID]krm.RiskRecord, secondary []Fields, threshold float64) []candidate {
	var out []candidate
	for _, id := range krm.Entities(limits, risks) {
		primary := PrimaryFields(limits[id], risks[id])
		best := candidate{entity: id, primary: primary, record: -1, score: math.Inf(1)}
		for i, s := range secondary {
			score, count := Score(primary, s)
			if best.record < 0 || score < best.score {
				best.record, best.score, best.count = i, score, count
			}
		}
		if best.record >= 0 && best.score <= threshold {
			out = append(out, best)
		}
	}
	return out
}

func (m *Matcher) exclusive(limits map[krm.EntityID]krm.LimitRecord, risks map[krm.EntityID]krm.RiskRecord, secondary []Fields, threshold float64) []candidate {
	var pairs []candidate
	for _, id := range krm.Entities(limits, risks) {
		primary := PrimaryFields(limits[id], risks[id])
		for i, s := range secondary {
			score, count := Score(primary, s)
			if score <= threshold {
				pairs = append(pairs, candidate{entity: id, primary: primary, record: i, score: score, count: count})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score < pairs[j].score
		}
		if pairs[i].entity != pairs[j].entity {
			return pairs[i].entity < pairs[j].entity
		}
		return pairs[i].record < pairs[j].record
	})

	usedEntity := make(map[krm.EntityID]bool)
	usedRecord := make(map[int]bool)
	var out []candidate
	for _, p := range pairs {
		if usedEntity[p.entity] || usedRecord[p.record] {
			continue
		}
		usedEntity[p.entity] = true
		usedRecord[p.record] = true
		out = append(out, p)
	}
	return out
}
