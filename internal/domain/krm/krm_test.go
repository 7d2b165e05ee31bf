package krm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/krm-analyzer/internal/platform/document"
	"github.com/FACorreiaa/krm-analyzer/pkg/money"
)

// null stands for a cell the layout left empty.
const null = "\x00"

func tbl(rows ...[]string) document.Table {
	t := make(document.Table, 0, len(rows))
	for _, r := range rows {
		cells := make([]document.Cell, len(r))
		for i, c := range r {
			if c != null {
				cells[i] = document.TextCell(c)
			}
		}
		t = append(t, cells)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

var (
	limitHeader = []string{"Kaynak", "Grup Limit", "Nakdi Limit", "Gayrinakdi\nLimit", "Toplam Limit", "Genel Revize\nVadesi", "Son Revize\nTarihi"}
	riskHeader  = []string{"Kaynak", "Nakdi Risk", "Gayrinakdi Risk", "Toplam Risk", "Max Gecikme\nGün"}
)

func sampleReport() *document.Memory {
	limits := tbl(
		[]string{"LİMİT BİLGİLERİ", null, null, null, null, null, null},
		limitHeader,
		[]string{"KAYNAK-1", "5.000,00", "1.000,00", "500,00", "2.000,00", "01/06/25", "15/01/2025"},
		[]string{"KAYNAK-2", "0", "0", "0", "0", "01/01/20", null},
		[]string{"ARA TOPLAM", "5.000,00", null, null, null, null, null},
		[]string{"KAYNAK-3", "1.000", "abc", "0", "1.000,00", "31/02/24", "-"},
	)
	risks := tbl(
		[]string{"RİSK BİLGİLERİ", null, null, null, null},
		riskHeader,
		[]string{"KAYNAK-1", "1.100,00", "0", "1.100,00", "45"},
		[]string{"KAYNAK-4", "0", "250,50", "250,50", "0"},
	)

	return document.NewMemory(
		document.MemoryPage{Text: "KRM SORGU ÖZET RAPORU\nACME Tekstil A.Ş.\nSorgu Tarihi 12.03.25"},
		document.MemoryPage{Tables: []document.Table{
			limits,
			tbl([]string{"TEMİNAT BİLGİLERİ"}, []string{"x"}, []string{"KAYNAK-9"}),
		}},
		document.MemoryPage{Tables: []document.Table{
			risks,
			tbl([]string{"LİMİT BİLGİLERİ"}, limitHeader),
		}},
	)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{"15/03/24", ptr(day(2024, time.March, 15))},
		{"15/03/2024", ptr(day(2024, time.March, 15))},
		{"01/01/49", ptr(day(2049, time.January, 1))},
		{"01/01/50", ptr(day(1950, time.January, 1))},
		{"29/02/24", ptr(day(2024, time.February, 29))},
		{" 1/2/1999 ", ptr(day(1999, time.February, 1))},
		{"", nil},
		{"15-03-2024", nil},
		{"15/03", nil},
		{"1/2/3/4", nil},
		{"aa/bb/cc", nil},
		{"31/02/24", nil},
		{"29/02/23", nil},
		{"00/01/24", nil},
		{"15/13/24", nil},
		{"-1/02/24", nil},
		{"15/03/+24", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw))
		})
	}
}

func TestNormalizeDate_RoundTrip(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(11)
	from, to := day(1950, time.January, 1), day(2049, time.December, 31)

	for i := 0; i < 300; i++ {
		want := gen.Date(from, to)
		for _, short := range []bool{true, false} {
			raw := gen.ReportDate(want, short)
			got := NormalizeDate(raw)
			require.NotNil(t, got, raw)
			assert.True(t, want.Equal(*got), "%s: got %s want %s", raw, got, want)
		}
	}
}

func TestNormalizeDate_GarbageNeverParses(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(3)
	for i := 0; i < 200; i++ {
		raw := gen.Garbage()
		assert.NotPanics(t, func() { assert.Nil(t, NormalizeDate(raw), raw) })
	}
}

func ptr[T any](v T) *T { return &v }

func TestResolveColumns(t *testing.T) {
	t.Run("first matching cell per field", func(t *testing.T) {
		header := []string{"Grup Limit", "Nakdi Limit", "Gayrinakdi Limit"}
		fields := []FieldPattern{Tokens(FieldGroup, "grup limit"), Tokens(FieldCash, "nakdi limit")}

		assert.Equal(t, ColumnIndex{FieldGroup: 0, FieldCash: 1}, ResolveColumns(header, fields))
	})

	t.Run("all tokens required", func(t *testing.T) {
		header := []string{"Kaynak", "Limit", "Gayrinakdi Risk", "GAYRİNAKDİ\nLİMİT"}
		idx := ResolveColumns(header, []FieldPattern{Tokens(FieldNonCash, "gayrinakdi", "limit")})

		assert.Equal(t, ColumnIndex{FieldNonCash: 3}, idx)
	})

	t.Run("alternatives", func(t *testing.T) {
		idx := ResolveColumns(riskHeader, RiskFields)
		assert.Equal(t, ColumnIndex{FieldCash: 1, FieldNonCash: 2, FieldTotal: 3, FieldDelinquency: 4}, idx)

		idx = ResolveColumns([]string{"Kaynak", "Gecikme Gün Sayısı"}, RiskFields)
		assert.Equal(t, ColumnIndex{FieldDelinquency: 1}, idx)
	})

	t.Run("missing fields are absent", func(t *testing.T) {
		idx := ResolveColumns([]string{"Kaynak"}, LimitFields)
		assert.Empty(t, idx)

		v, ok := idx.Cell([]document.Cell{document.TextCell("KAYNAK-1")}, FieldCash)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("short rows and null cells", func(t *testing.T) {
		idx := ColumnIndex{FieldCash: 1, FieldTotal: 5}
		row := []document.Cell{document.TextCell("KAYNAK-1"), {}}

		_, ok := idx.Cell(row, FieldCash)
		assert.False(t, ok)
		_, ok = idx.Cell(row, FieldTotal)
		assert.False(t, ok)
	})
}

func TestExtractor_Extract(t *testing.T) {
	ex := Extractor{Cutoff: ptr(day(2025, time.January, 1))}
	got := ex.Extract(sampleReport())

	require.Len(t, got.Limits, 3)
	k1 := got.Limits["KAYNAK-1"]
	assert.True(t, dec("5000").Equal(k1.Group))
	assert.True(t, dec("1000").Equal(k1.Cash))
	assert.True(t, dec("500").Equal(k1.NonCash))
	assert.True(t, dec("2000").Equal(k1.Total))
	require.NotNil(t, k1.RevisionDate)
	assert.Equal(t, day(2025, time.June, 1), *k1.RevisionDate)
	assert.False(t, k1.RevisionOverdue)

	k2 := got.Limits["KAYNAK-2"]
	assert.True(t, k2.Total.IsZero())
	assert.Equal(t, day(2020, time.January, 1), *k2.RevisionDate)
	assert.True(t, k2.RevisionOverdue)

	k3 := got.Limits["KAYNAK-3"]
	assert.True(t, k3.Cash.IsZero())
	assert.True(t, dec("1000").Equal(k3.Group))
	assert.Nil(t, k3.RevisionDate)
	assert.False(t, k3.RevisionOverdue)

	require.Len(t, got.Risks, 2)
	r1 := got.Risks["KAYNAK-1"]
	assert.True(t, dec("1100").Equal(r1.Cash))
	assert.True(t, r1.NonCash.IsZero())
	assert.Equal(t, 45, r1.DelinquencyDays)
	assert.True(t, dec("250.5").Equal(got.Risks["KAYNAK-4"].Total))

	assert.Equal(t, 1, got.Skipped(SkipNoEntity))
	assert.Equal(t, 2, got.Skipped(FieldUnparsed))
	for _, o := range got.Outcomes {
		if o.Reason == FieldUnparsed {
			assert.Equal(t, EntityID("KAYNAK-3"), o.Entity)
		}
	}

	reasons := map[SkipReason]int{}
	for _, to := range got.Tables {
		reasons[to.Reason]++
	}
	assert.Equal(t, map[SkipReason]int{"": 2, SkipUnknownTable: 1, SkipTooFewRows: 1}, reasons)
}

func TestExtractor_LaterDateWins(t *testing.T) {
	doc := document.NewMemory(
		document.MemoryPage{},
		document.MemoryPage{Tables: []document.Table{tbl(
			[]string{"LİMİT BİLGİLERİ"},
			limitHeader,
			[]string{"KAYNAK-1", "0", "0", "0", "0", "01/01/20", "05/05/2024"},
			[]string{"KAYNAK-2", "0", "0", "0", "0", "garbage", "05/05/2024"},
			[]string{"KAYNAK-3", "0", "0", "0", "0", "05/05/24", null},
		)}},
	)

	got := Extractor{TablePages: []int{1}, Cutoff: ptr(day(2030, time.January, 1))}.Extract(doc)
	for _, id := range []EntityID{"KAYNAK-1", "KAYNAK-2", "KAYNAK-3"} {
		rec := got.Limits[id]
		require.NotNil(t, rec.RevisionDate, id)
		assert.Equal(t, day(2024, time.May, 5), *rec.RevisionDate, id)
		assert.True(t, rec.RevisionOverdue, id)
	}
}

func TestExtractor_LastRowWins(t *testing.T) {
	doc := document.NewMemory(
		document.MemoryPage{},
		document.MemoryPage{},
		document.MemoryPage{Tables: []document.Table{tbl(
			[]string{"RİSK BİLGİLERİ"},
			riskHeader,
			[]string{"KAYNAK-1", "10", "0", "10", "0"},
			[]string{" KAYNAK-1 ", "20", "0", "20", "3"},
		)}},
	)

	got := Extractor{}.Extract(doc)
	require.Len(t, got.Risks, 1)
	assert.True(t, dec("20").Equal(got.Risks["KAYNAK-1"].Cash))
	assert.Equal(t, 3, got.Risks["KAYNAK-1"].DelinquencyDays)
}

func TestExtractor_StalenessWindow(t *testing.T) {
	now := day(2025, time.July, 1)
	ex := Extractor{Now: func() time.Time { return now }}
	assert.Equal(t, now.Add(-DefaultStalenessWindow), ex.CutoffAt())

	ex.StalenessWindow = 30 * 24 * time.Hour
	assert.Equal(t, day(2025, time.June, 1), ex.CutoffAt())
}

type brokenDoc struct{ pages int }

func (b brokenDoc) PageCount() int { return b.pages }

func (b brokenDoc) Tables(page int) ([]document.Table, error) {
	if page == 1 {
		panic("corrupt content stream")
	}
	return []document.Table{{{document.TextCell("RİSK BİLGİLERİ")}, {document.TextCell("Nakdi Risk")}}}, nil
}

func (b brokenDoc) Text(int) (string, error) { return "", nil }

func TestExtractor_PageFailuresAreRecorded(t *testing.T) {
	got := Extractor{TablePages: []int{1, 2, 7}}.Extract(brokenDoc{pages: 3})

	require.Len(t, got.Tables, 3)
	assert.Equal(t, SkipPageError, got.Tables[0].Reason)
	assert.Equal(t, -1, got.Tables[0].Table)
	assert.Contains(t, got.Tables[0].Detail, "corrupt")
	assert.Equal(t, SkipTooFewRows, got.Tables[1].Reason)
	assert.Equal(t, TableRisk, got.Tables[1].Kind)
	assert.Equal(t, SkipPageMissing, got.Tables[2].Reason)
	assert.Empty(t, got.Limits)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  TableKind
	}{
		{"LİMİT BİLGİLERİ", TableLimit},
		{"Limit Bilgileri (TL)", TableLimit},
		{"RİSK BİLGİLERİ", TableRisk},
		{"LİMİT BİLGİLERİ VE RİSK", TableUnknown},
		{"LİMİT VE RİSK BİLGİLERİ", TableRisk},
		{"TEMİNAT", TableUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tbl([]string{tt.title})))
		})
	}
	assert.Equal(t, TableUnknown, Classify(nil))
}

func TestPassive(t *testing.T) {
	overdue := LimitRecord{RevisionOverdue: true}

	t.Run("overdue with no limit and no exposure", func(t *testing.T) {
		assert.True(t, IsPassive(overdue, RiskRecord{}))
	})

	t.Run("total limit keeps it active regardless of date", func(t *testing.T) {
		l := overdue
		l.Total = dec("1")
		assert.False(t, IsPassive(l, RiskRecord{}))
	})

	t.Run("exposure keeps it active", func(t *testing.T) {
		assert.False(t, IsPassive(overdue, RiskRecord{Total: dec("0.01")}))
	})

	t.Run("recent revision keeps it active", func(t *testing.T) {
		assert.False(t, IsPassive(LimitRecord{}, RiskRecord{}))
	})

	t.Run("partition", func(t *testing.T) {
		limits := map[EntityID]LimitRecord{
			"KAYNAK-2": overdue,
			"KAYNAK-1": {Total: dec("100")},
			"KAYNAK-3": overdue,
		}
		risks := map[EntityID]RiskRecord{
			"KAYNAK-3": {Total: dec("5")},
			"KAYNAK-5": {},
		}

		active, passive := Partition(limits, risks)
		assert.Equal(t, []EntityID{"KAYNAK-2"}, passive)
		assert.Equal(t, []EntityID{"KAYNAK-1", "KAYNAK-3", "KAYNAK-5"}, active)
		assert.Equal(t, passive, IdentifyPassive(limits, risks))
	})
}

func TestParseHeader(t *testing.T) {
	assert.Equal(t, Header{Company: "ACME Tekstil A.Ş.", ReportDate: "12.03.25"}, ParseHeader(sampleReport()))

	noTitle := document.NewMemory(document.MemoryPage{Text: "something else"})
	assert.Equal(t, Header{Company: "", ReportDate: UnknownDate}, ParseHeader(noTitle))

	empty := document.NewMemory()
	assert.Equal(t, Header{Company: UnknownCompany, ReportDate: UnknownDate}, ParseHeader(empty))
}
