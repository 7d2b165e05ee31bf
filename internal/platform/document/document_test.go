package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word places s at x on baseline y with a fixed 5pt advance per byte.
func word(x, y float64, s string) Glyph {
	return Glyph{X: x, Y: y, W: 5 * float64(len(s)), Size: 8, S: s}
}

func samplePage() []Glyph {
	return []Glyph{
		// out of order on purpose
		word(100, 750, "1.234"),
		word(10, 800, "LİMİT"),
		word(48, 800, "BİLGİLERİ"),
		word(10, 780, "Kaynak"),
		word(100, 780, "Grup"),
		word(200, 780, "Nakdi"),
		word(100, 770, "Limit"),
		word(200, 770, "Limit"),
		word(10, 750, "KAYNAK-1"),
		word(205, 750, "500,00"),
		word(100, 740, ".567,00"),
		word(10, 720, "KAYNAK-2"),
		word(200, 720, "0"),
		word(10, 710, "TOPLAM"),
		word(10, 690, "RİSK"),
		word(38, 690, "BİLGİLERİ"),
		word(10, 680, "Kaynak"),
		word(10, 660, "KAYNAK-1"),
		{X: 60, Y: 660, W: 2, S: " "},
	}
}

func TestLayout_DetectTables(t *testing.T) {
	lay := defaultLayout()
	tables := lay.detectTables(lay.groupLines(samplePage()))
	require.Len(t, tables, 2)

	limit := tables[0]
	require.Len(t, limit, 5)

	assert.Equal(t, "LİMİT BİLGİLERİ", limit[0][0].Text)
	assert.False(t, limit[0][1].Present)

	assert.Equal(t, []Cell{TextCell("Kaynak"), TextCell("Grup\nLimit"), TextCell("Nakdi\nLimit")}, limit[1])
	assert.Equal(t, []Cell{TextCell("KAYNAK-1"), TextCell("1.234\n.567,00"), TextCell("500,00")}, limit[2])
	assert.Equal(t, []Cell{TextCell("KAYNAK-2"), {}, TextCell("0")}, limit[3])
	assert.Equal(t, "TOPLAM", limit[4][0].Text)

	risk := tables[1]
	require.Len(t, risk, 3)
	assert.Equal(t, "RİSK BİLGİLERİ", risk[0][0].Text)
	assert.Equal(t, "KAYNAK-1", risk[2][0].Text)
}

func TestLayout_AmountBelowRowIsNotMerged(t *testing.T) {
	lay := defaultLayout()
	tables := lay.detectTables(lay.groupLines([]Glyph{
		word(10, 800, "LİMİT"),
		word(48, 800, "BİLGİLERİ"),
		word(10, 780, "Kaynak"),
		word(100, 780, "Tutar"),
		word(10, 760, "KAYNAK-1"),
		word(100, 760, "1.000"),
		word(100, 750, "5.000"),
	}))
	require.Len(t, tables, 1)

	limit := tables[0]
	require.Len(t, limit, 4)
	assert.Equal(t, []Cell{TextCell("KAYNAK-1"), TextCell("1.000")}, limit[2])
	assert.Equal(t, []Cell{{}, TextCell("5.000")}, limit[3])
}

func TestLayout_DistantLineIsNotMerged(t *testing.T) {
	lay := defaultLayout()
	tables := lay.detectTables(lay.groupLines([]Glyph{
		word(10, 800, "BİLGİLERİ"),
		word(10, 780, "Kaynak"),
		word(100, 780, "Banka"),
		word(10, 760, "KAYNAK-1"),
		word(100, 760, "Ziraat"),
		word(100, 720, "Bankası"),
	}))
	require.Len(t, tables, 1)
	require.Len(t, tables[0], 4)
	assert.Equal(t, TextCell("Ziraat"), tables[0][2][1])
	assert.Equal(t, TextCell("Bankası"), tables[0][3][1])
}

func TestLayout_WrappedTextCell(t *testing.T) {
	lay := defaultLayout()
	tables := lay.detectTables(lay.groupLines([]Glyph{
		word(10, 800, "BİLGİLERİ"),
		word(10, 780, "Kaynak"),
		word(100, 780, "Banka"),
		word(10, 760, "KAYNAK-1"),
		word(100, 760, "Ziraat"),
		word(100, 750, "Bankası"),
	}))
	require.Len(t, tables, 1)
	require.Len(t, tables[0], 3)
	assert.Equal(t, TextCell("Ziraat\nBankası"), tables[0][2][1])
}

func TestLayout_WordAndCellGaps(t *testing.T) {
	lay := defaultLayout()
	lines := lay.groupLines([]Glyph{
		word(10, 100, "Son"),
		word(28, 100, "Revize"),
		word(100, 100, "Tarihi"),
		word(10, 50, "second"),
	})

	require.Len(t, lines, 2)
	require.Len(t, lines[0].spans, 2)
	assert.Equal(t, "Son Revize", lines[0].spans[0].text)
	assert.Equal(t, "Tarihi", lines[0].spans[1].text)
	assert.Equal(t, "Son Revize Tarihi\nsecond", pageText(lines))
}

func TestLayout_TitleWithoutBody(t *testing.T) {
	lay := defaultLayout()
	tables := lay.detectTables(lay.groupLines([]Glyph{word(10, 100, "BİLGİLERİ")}))

	require.Len(t, tables, 1)
	assert.Len(t, tables[0], 2)
}

func TestDecodeJSON(t *testing.T) {
	src := `{"pages": [
		{"text": "KRM SORGU ÖZET RAPORU\nACME A.Ş."},
		{"tables": [[["LİMİT BİLGİLERİ", null], ["Kaynak", "Grup Limit"], ["KAYNAK-1", "1.000,00"]]]}
	]}`

	doc, err := DecodeJSON(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	text, err := doc.Text(0)
	require.NoError(t, err)
	assert.Contains(t, text, "ACME")

	tables, err := doc.Tables(1)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.False(t, tables[0][0][1].Present)
	assert.Equal(t, TextCell("1.000,00"), tables[0][2][1])

	_, err = doc.Tables(5)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	_, err := Open("report.docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
