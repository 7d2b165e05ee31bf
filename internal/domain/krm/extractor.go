package krm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/platform/document"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

const (
	limitMarker = "limit bilgileri"
	riskMarker  = "risk bilgileri"
	riskWord    = "risk"

	// DefaultStalenessWindow is how old a revision may be before it counts as overdue.
	DefaultStalenessWindow = 180 * 24 * time.Hour
)

// DefaultTablePages are the page indexes that hold the limit and risk tables.
var DefaultTablePages = []int{1, 2}

// Extractor reads the limit and risk tables of a report. The zero value is
// usable and applies the defaults.
type Extractor struct {
	EntityPrefix    string
	TablePages      []int
	StalenessWindow time.Duration
	// Cutoff overrides Now()-StalenessWindow when set.
	Cutoff      *time.Time
	Now         func() time.Time
	LimitFields []FieldPattern
	RiskFields  []FieldPattern
}

// Classify returns the table kind from its first cell.
func Classify(table document.Table) TableKind {
	if len(table) == 0 || len(table[0]) == 0 {
		return TableUnknown
	}
	title := textfold.Fold(table[0][0].Text)
	switch {
	case strings.Contains(title, limitMarker) && !strings.Contains(title, riskWord):
		return TableLimit
	case strings.Contains(title, riskMarker):
		return TableRisk
	default:
		return TableUnknown
	}
}

// CutoffAt returns the date before which a revision is overdue.
func (e Extractor) CutoffAt() time.Time {
	if e.Cutoff != nil {
		return *e.Cutoff
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	window := e.StalenessWindow
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	return now().Add(-window)
}

// Extract reads every table on the configured pages. It never fails: broken
// pages, tables and rows are recorded in the outcomes and skipped.
func (e Extractor) Extract(doc document.Document) Extraction {
	ex := newExtraction()
	cutoff := e.CutoffAt()

	pages := e.TablePages
	if pages == nil {
		pages = DefaultTablePages
	}

	for _, page := range pages {
		if page < 0 || page >= doc.PageCount() {
			ex.Tables = append(ex.Tables, TableOutcome{Page: page, Table: -1, Reason: SkipPageMissing})
			continue
		}

		tables, err := readTables(doc, page)
		if err != nil {
			ex.Tables = append(ex.Tables, TableOutcome{Page: page, Table: -1, Reason: SkipPageError, Detail: err.Error()})
			continue
		}

		for i, table := range tables {
			e.extractTable(&ex, page, i, table, cutoff)
		}
	}
	return ex
}

func readTables(doc document.Document, page int) (tables []document.Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reading tables: %v", rec)
		}
	}()
	return doc.Tables(page)
}

func (e Extractor) extractTable(ex *Extraction, page, index int, table document.Table, cutoff time.Time) {
	outcome := TableOutcome{Page: page, Table: index, Rows: len(table)}
	defer func() {
		if rec := recover(); rec != nil {
			outcome.Reason = SkipTableError
			outcome.Detail = fmt.Sprint(rec)
		}
		ex.Tables = append(ex.Tables, outcome)
	}()

	outcome.Kind = Classify(table)
	if outcome.Kind == TableUnknown {
		outcome.Reason = SkipUnknownTable
		return
	}
	if len(table) < 3 {
		outcome.Reason = SkipTooFewRows
		return
	}

	fields := e.fieldsFor(outcome.Kind)
	cols := ResolveColumns(cellTexts(table[1]), fields)

	for r := 2; r < len(table); r++ {
		row := rowContext{ex: ex, page: page, table: index, row: r, cells: table[r], cols: cols}

		first := ""
		if len(row.cells) > 0 {
			first = row.cells[0].Text
		}
		if !strings.Contains(first, e.prefix()) {
			ex.Outcomes = append(ex.Outcomes, RowOutcome{Page: page, Table: index, Row: r, Reason: SkipNoEntity})
			continue
		}
		row.entity = EntityID(strings.TrimSpace(first))

		if err := row.read(func() {
			switch outcome.Kind {
			case TableLimit:
				ex.Limits[row.entity] = row.limit(cutoff)
			case TableRisk:
				ex.Risks[row.entity] = row.risk()
			}
		}); err != nil {
			ex.Outcomes = append(ex.Outcomes, RowOutcome{
				Page: page, Table: index, Row: r, Entity: row.entity,
				Reason: SkipRowError, Detail: err.Error(),
			})
			continue
		}
		outcome.Accepted++
	}
}

func (e Extractor) prefix() string {
	if e.EntityPrefix == "" {
		return DefaultEntityPrefix
	}
	return e.EntityPrefix
}

func (e Extractor) fieldsFor(kind TableKind) []FieldPattern {
	if kind == TableLimit {
		if e.LimitFields != nil {
			return e.LimitFields
		}
		return LimitFields
	}
	if e.RiskFields != nil {
		return e.RiskFields
	}
	return RiskFields
}

// rowContext reads one data row and records defaulted fields.
type rowContext struct {
	ex     *Extraction
	page   int
	table  int
	row    int
	entity EntityID
	cells  []document.Cell
	cols   ColumnIndex
}

func (rc rowContext) read(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("row %d: %v", rc.row, rec)
		}
	}()
	fn()
	return nil
}

func (rc rowContext) limit(cutoff time.Time) LimitRecord {
	rec := LimitRecord{
		Group:   rc.amount(FieldGroup),
		Cash:    rc.amount(FieldCash),
		NonCash: rc.amount(FieldNonCash),
		Total:   rc.amount(FieldTotal),
	}
	rec.RevisionDate = laterOf(rc.date(FieldRevisionDue), rc.date(FieldLastRevision))
	rec.RevisionOverdue = rec.RevisionDate != nil && rec.RevisionDate.Before(cutoff)
	return rec
}

func (rc rowContext) risk() RiskRecord {
	return RiskRecord{
		Cash:            rc.amount(FieldCash),
		NonCash:         rc.amount(FieldNonCash),
		Total:           rc.amount(FieldTotal),
		DelinquencyDays: int(rc.amount(FieldDelinquency).IntPart()),
	}
}

func (rc rowContext) amount(f Field) decimal.Decimal {
	raw, ok := rc.cols.Cell(rc.cells, f)
	if !ok {
		return decimal.Zero
	}
	d, err := money.ParseAmount(raw)
	if err != nil {
		if !errors.Is(err, money.ErrEmptyAmount) {
			rc.note(f, err.Error())
		}
		return decimal.Zero
	}
	return d
}

func (rc rowContext) date(f Field) *time.Time {
	raw, ok := rc.cols.Cell(rc.cells, f)
	if !ok || strings.Trim(raw, " -") == "" {
		return nil
	}
	t := NormalizeDate(raw)
	if t == nil {
		rc.note(f, fmt.Sprintf("invalid date %q", raw))
	}
	return t
}

func (rc rowContext) note(f Field, detail string) {
	rc.ex.Outcomes = append(rc.ex.Outcomes, RowOutcome{
		Page: rc.page, Table: rc.table, Row: rc.row, Entity: rc.entity,
		Field: f, Reason: FieldUnparsed, Detail: detail,
	})
}
