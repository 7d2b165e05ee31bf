package document

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// Glyph is one positioned text run as it comes out of a PDF content stream.
// Y grows upwards.
type Glyph struct {
	X, Y, W float64
	Size    float64
	S       string
}

// fallbackFontSize is used for line height when the content stream carries
// no font size.
const fallbackFontSize = 8.0

type layout struct {
	lineTolerance float64
	lineSpacing   float64
	wordGap       float64
	cellGap       float64
	titleMarker   string
	rowMarker     string
}

func defaultLayout() layout {
	return layout{
		lineTolerance: 2.0,
		lineSpacing:   1.5,
		wordGap:       0.8,
		cellGap:       6.0,
		titleMarker:   "bilgileri",
		rowMarker:     "KAYNAK-",
	}
}

// Option tunes grid reconstruction.
type Option func(*layout)

// WithRowMarker sets the text that marks the first data line under a table
// header. Lines above it and below the title form the header.
func WithRowMarker(marker string) Option {
	return func(l *layout) { l.rowMarker = marker }
}

// WithTitleMarker sets the folded text that starts a new table.
func WithTitleMarker(marker string) Option {
	return func(l *layout) { l.titleMarker = textfold.Fold(marker) }
}

// WithGaps sets the horizontal gaps (in points) that separate words and cells.
func WithGaps(word, cell float64) Option {
	return func(l *layout) {
		l.wordGap = word
		l.cellGap = cell
	}
}

type span struct {
	x0, x1 float64
	text   string
}

func (s span) center() float64 { return (s.x0 + s.x1) / 2 }

type line struct {
	y     float64
	size  float64
	spans []span
}

func (l line) text() string {
	parts := make([]string, len(l.spans))
	for i, s := range l.spans {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

// groupLines clusters glyphs into lines top to bottom and splits each line
// into spans on horizontal gaps.
func (lay layout) groupLines(glyphs []Glyph) []line {
	sorted := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			continue
		}
		sorted = append(sorted, g)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var (
		lines []line
		cur   []Glyph
		curY  float64
	)
	for _, g := range sorted {
		if len(cur) > 0 && math.Abs(g.Y-curY) > lay.lineTolerance {
			lines = append(lines, lay.buildLine(cur))
			cur = nil
		}
		if len(cur) == 0 {
			curY = g.Y
		}
		cur = append(cur, g)
	}
	if len(cur) > 0 {
		lines = append(lines, lay.buildLine(cur))
	}
	return lines
}

func (lay layout) buildLine(glyphs []Glyph) line {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	l := line{y: glyphs[0].Y}
	var b strings.Builder
	var cur span
	for i, g := range glyphs {
		l.size = math.Max(l.size, g.Size)
		if i > 0 {
			gap := g.X - cur.x1
			if gap > lay.cellGap {
				cur.text = b.String()
				l.spans = append(l.spans, cur)
				b.Reset()
				cur = span{x0: g.X, x1: g.X}
			} else if gap > lay.wordGap {
				b.WriteByte(' ')
			}
		} else {
			cur = span{x0: g.X, x1: g.X}
		}
		b.WriteString(g.S)
		cur.x1 = math.Max(cur.x1, g.X+g.W)
	}
	cur.text = b.String()
	l.spans = append(l.spans, cur)
	return l
}

func (lay layout) isTitle(l line) bool {
	return strings.Contains(textfold.Fold(l.text()), lay.titleMarker)
}

// detectTables cuts the page into tables, one per title line. Row 0 of each
// table holds the title, row 1 the merged header and the rest the data lines.
func (lay layout) detectTables(lines []line) []Table {
	var tables []Table
	for i := 0; i < len(lines); {
		if !lay.isTitle(lines[i]) {
			i++
			continue
		}
		end := i + 1
		for end < len(lines) && !lay.isTitle(lines[end]) {
			end++
		}
		tables = append(tables, lay.buildTable(lines[i], lines[i+1:end]))
		i = end
	}
	return tables
}

func (lay layout) buildTable(title line, body []line) Table {
	headerEnd := -1
	for i, l := range body {
		if strings.Contains(l.spans[0].text, lay.rowMarker) {
			headerEnd = i
			break
		}
	}
	if headerEnd < 0 {
		headerEnd = min(1, len(body))
	}
	header, data := body[:headerEnd], body[headerEnd:]

	cols := columnsOf(header)
	if len(cols) == 0 && len(data) > 0 {
		cols = columnsOf(data[:1])
	}
	width := max(len(cols), 1)

	titleRow := make([]Cell, width)
	titleRow[0] = TextCell(title.text())
	table := Table{titleRow}

	headerRow := make([]Cell, width)
	for _, l := range header {
		for _, s := range l.spans {
			c := assignColumn(cols, s)
			headerRow[c] = joinCell(headerRow[c], s.text, "\n")
		}
	}
	table = append(table, headerRow)

	var last line
	for i, l := range data {
		row := make([]Cell, width)
		for _, s := range l.spans {
			c := assignColumn(cols, s)
			row[c] = joinCell(row[c], s.text, " ")
		}
		if i > 0 && lay.continues(table[len(table)-1], last, row, l) {
			prev := table[len(table)-1]
			for c, cell := range row {
				if cell.Present {
					prev[c] = joinCell(prev[c], cell.Text, "\n")
				}
			}
			last = l
			continue
		}
		table = append(table, row)
		last = l
	}
	return table
}

// continues reports whether row, read from line l, wraps the cells of prev,
// read from line above. The first cell must be empty, l must sit within one
// line height of above, and every filled cell must extend an unfinished cell.
func (lay layout) continues(prev []Cell, above line, row []Cell, l line) bool {
	if row[0].Present {
		return false
	}
	size := math.Max(above.size, l.size)
	if size <= 0 {
		size = fallbackFontSize
	}
	if above.y-l.y > size*lay.lineSpacing {
		return false
	}
	for c, cell := range row {
		if cell.Present && !wraps(prev[c], cell.Text) {
			return false
		}
	}
	return true
}

// wraps reports whether next reads as the rest of cell: text that holds
// letters, or a number split at a separator.
func wraps(cell Cell, next string) bool {
	if !cell.Present {
		return false
	}
	head, tail := strings.TrimSpace(cell.Text), strings.TrimSpace(next)
	if hasSeparatorAt(tail, 0) || hasSeparatorAt(head, len(head)-1) {
		return true
	}
	return strings.IndexFunc(head, unicode.IsLetter) >= 0
}

func hasSeparatorAt(s string, i int) bool {
	return i >= 0 && i < len(s) && (s[i] == '.' || s[i] == ',')
}

func joinCell(cell Cell, text, sep string) Cell {
	if !cell.Present {
		return TextCell(text)
	}
	return TextCell(cell.Text + sep + text)
}

// columnsOf merges the spans of the given lines into column ranges; spans
// that overlap horizontally belong to the same column.
func columnsOf(lines []line) []span {
	var all []span
	for _, l := range lines {
		all = append(all, l.spans...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].x0 < all[j].x0 })

	var cols []span
	for _, s := range all {
		if n := len(cols); n > 0 && s.x0 <= cols[n-1].x1 {
			cols[n-1].x1 = math.Max(cols[n-1].x1, s.x1)
			continue
		}
		cols = append(cols, span{x0: s.x0, x1: s.x1})
	}
	return cols
}

// assignColumn returns the column with the largest horizontal overlap, or the
// nearest by center when nothing overlaps.
func assignColumn(cols []span, s span) int {
	if len(cols) == 0 {
		return 0
	}
	best, bestOverlap := -1, 0.0
	for i, c := range cols {
		overlap := math.Min(c.x1, s.x1) - math.Max(c.x0, s.x0)
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best >= 0 {
		return best
	}

	best, bestDist := 0, math.Inf(1)
	for i, c := range cols {
		if d := math.Abs(c.center() - s.center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// pageText renders lines top to bottom, one per row.
func pageText(lines []line) string {
	rows := make([]string, len(lines))
	for i, l := range lines {
		rows[i] = l.text()
	}
	return strings.Join(rows, "\n")
}
