// Package krm extracts the limit and risk tables of a KRM bureau report into
// typed per-entity records and classifies passive entities.
package krm

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultEntityPrefix marks the first cell of every entity row.
const DefaultEntityPrefix = "KAYNAK-"

// EntityID names one credit source ("kaynak") within a report.
type EntityID string

// LimitRecord is one row of the limit table. Missing columns are zero or nil.
type LimitRecord struct {
	Group           decimal.Decimal `json:"group"`
	Cash            decimal.Decimal `json:"cash"`
	NonCash         decimal.Decimal `json:"non_cash"`
	Total           decimal.Decimal `json:"total"`
	RevisionDate    *time.Time      `json:"revision_date,omitempty"`
	RevisionOverdue bool            `json:"revision_overdue"`
}

// RiskRecord is one row of the risk table.
type RiskRecord struct {
	Cash            decimal.Decimal `json:"cash"`
	NonCash         decimal.Decimal `json:"non_cash"`
	Total           decimal.Decimal `json:"total"`
	DelinquencyDays int             `json:"delinquency_days"`
}

// TableKind classifies an extracted table by its title cell.
type TableKind int

const (
	TableUnknown TableKind = iota
	TableLimit
	TableRisk
)

func (k TableKind) String() string {
	switch k {
	case TableLimit:
		return "limit"
	case TableRisk:
		return "risk"
	default:
		return "unknown"
	}
}

func (k TableKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// SkipReason says why a row, table or page did not contribute records.
type SkipReason string

const (
	SkipNoEntity     SkipReason = "no_entity"     // first cell lacks the entity prefix
	SkipRowError     SkipReason = "row_error"     // row could not be read
	SkipTooFewRows   SkipReason = "too_few_rows"  // title and header only
	SkipUnknownTable SkipReason = "unknown_table" // neither limit nor risk title
	SkipTableError   SkipReason = "table_error"
	SkipPageError    SkipReason = "page_error"
	SkipPageMissing  SkipReason = "page_missing"

	// FieldUnparsed marks an accepted row where one cell held text that is not
	// an amount or date; the field defaulted to zero or nil.
	FieldUnparsed SkipReason = "field_unparsed"
)

// RowOutcome records a skipped row, or an accepted row with a defaulted field.
type RowOutcome struct {
	Page   int        `json:"page"`
	Table  int        `json:"table"`
	Row    int        `json:"row"`
	Entity EntityID   `json:"entity,omitempty"`
	Field  Field      `json:"field,omitempty"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// TableOutcome records what happened to one table. Page level failures use
// Table -1. Reason is empty for tables that were read.
type TableOutcome struct {
	Page     int        `json:"page"`
	Table    int        `json:"table"`
	Kind     TableKind  `json:"kind"`
	Rows     int        `json:"rows"`
	Accepted int        `json:"accepted"`
	Reason   SkipReason `json:"reason,omitempty"`
	Detail   string     `json:"detail,omitempty"`
}

// Extraction is everything read from one report's tables.
type Extraction struct {
	Limits   map[EntityID]LimitRecord `json:"limits"`
	Risks    map[EntityID]RiskRecord  `json:"risks"`
	Outcomes []RowOutcome             `json:"outcomes,omitempty"`
	Tables   []TableOutcome           `json:"tables,omitempty"`
}

func newExtraction() Extraction {
	return Extraction{
		Limits: make(map[EntityID]LimitRecord),
		Risks:  make(map[EntityID]RiskRecord),
	}
}

// Skipped counts row outcomes with the given reason.
func (e Extraction) Skipped(reason SkipReason) int {
	n := 0
	for _, o := range e.Outcomes {
		if o.Reason == reason {
			n++
		}
	}
	return n
}

// Entities returns every entity in limits or risks, sorted.
func Entities(limits map[EntityID]LimitRecord, risks map[EntityID]RiskRecord) []EntityID {
	seen := make(map[EntityID]struct{}, len(limits)+len(risks))
	for id := range limits {
		seen[id] = struct{}{}
	}
	for id := range risks {
		seen[id] = struct{}{}
	}
	return sortedIDs(seen)
}

func sortedIDs(set map[EntityID]struct{}) []EntityID {
	ids := make([]EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
