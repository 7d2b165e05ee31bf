package krm

import (
	"strings"

	"github.com/FACorreiaa/krm-analyzer/internal/platform/document"
	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// Field is a semantic table column.
type Field string

const (
	FieldGroup        Field = "grup"
	FieldCash         Field = "nakdi"
	FieldNonCash      Field = "gayrinakdi"
	FieldTotal        Field = "toplam"
	FieldRevisionDue  Field = "revize_vade"
	FieldLastRevision Field = "son_revize"
	FieldDelinquency  Field = "gecikme"
)

// FieldPattern declares how a header cell is recognized. A cell matches when
// it contains every token of at least one alternative.
type FieldPattern struct {
	Field Field
	AnyOf [][]string
}

// Tokens builds a pattern with a single alternative.
func Tokens(field Field, tokens ...string) FieldPattern {
	return FieldPattern{Field: field, AnyOf: [][]string{tokens}}
}

// LimitFields are the columns of the limit table, in resolution order.
var LimitFields = []FieldPattern{
	Tokens(FieldGroup, "grup limit"),
	Tokens(FieldCash, "nakdi limit"),
	Tokens(FieldNonCash, "gayrinakdi", "limit"),
	Tokens(FieldTotal, "toplam limit"),
	{Field: FieldRevisionDue, AnyOf: [][]string{{"genel revize"}, {"revize vadesi"}}},
	Tokens(FieldLastRevision, "son revize"),
}

// RiskFields are the columns of the risk table, in resolution order.
var RiskFields = []FieldPattern{
	Tokens(FieldCash, "nakdi risk"),
	Tokens(FieldNonCash, "gayrinakdi", "risk"),
	Tokens(FieldTotal, "toplam risk"),
	{Field: FieldDelinquency, AnyOf: [][]string{{"max gecikme"}, {"gecikme gun"}}},
}

// ColumnIndex maps resolved fields to column positions. Unresolved fields are
// absent.
type ColumnIndex map[Field]int

// ResolveColumns assigns each field the first header cell, left to right,
// that matches it. Fields are independent: two fields may claim one cell.
func ResolveColumns(header []string, fields []FieldPattern) ColumnIndex {
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = normalizeHeader(h)
	}

	idx := make(ColumnIndex, len(fields))
	for _, f := range fields {
		for i, cell := range cells {
			if f.matches(cell) {
				idx[f.Field] = i
				break
			}
		}
	}
	return idx
}

func (f FieldPattern) matches(cell string) bool {
	for _, alt := range f.AnyOf {
		if len(alt) == 0 {
			continue
		}
		all := true
		for _, tok := range alt {
			if !strings.Contains(cell, textfold.Fold(tok)) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// normalizeHeader lowercases, folds Turkish letters and turns wrapped header
// text into a single spaced line.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(textfold.Fold(s)), " ")
}

// Cell returns the text of field's column in row. ok is false when the field
// was not resolved, the row is too short or the cell is empty.
func (c ColumnIndex) Cell(row []document.Cell, field Field) (string, bool) {
	i, found := c[field]
	if !found || i < 0 || i >= len(row) || !row[i].Present {
		return "", false
	}
	return row[i].Text, true
}

func cellTexts(row []document.Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Text
	}
	return out
}
