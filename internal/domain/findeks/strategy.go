package findeks

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/pkg/money"
	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// DefaultWindow is how many characters after a block start are searched for
// its fields.
const DefaultWindow = 1200

// Block is one candidate entity block on a page. Start and End are byte
// offsets into the page text; Text is the window the fields are read from.
// Rejected blocks carry no window.
type Block struct {
	Name        string
	Start, End  int
	Text        string
	AnchorTotal decimal.Decimal
	Rejected    bool
}

// BlockStrategy splits OCR page text into candidate blocks. Candidates whose
// name fails accept are returned as rejected and do not end the window of
// the block before them. A nil accept takes every candidate.
type BlockStrategy interface {
	Blocks(pageText string, accept func(name string) bool) []Block
}

var totalAnchor = regexp.MustCompile(`\btotal\b[ \t:]*([0-9][0-9.,]*)`)

// TotalAnchorStrategy finds blocks laid out as "<bank name> ... Total <amount>".
// The name is the text before "Total" on the same line, or the previous
// non-empty line when "Total" starts its line.
type TotalAnchorStrategy struct {
	Window int
}

func (s TotalAnchorStrategy) Blocks(pageText string, accept func(name string) bool) []Block {
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}

	folded := textfold.FoldMapped(pageText)
	matches := totalAnchor.FindAllStringSubmatchIndex(folded.Text, -1)

	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		anchor := folded.Origin(m[0])
		name, start := nameBefore(pageText, anchor)
		if name == "" {
			continue
		}
		blocks = append(blocks, Block{
			Name:        name,
			Start:       start,
			AnchorTotal: parseOCRAmount(folded.Text[m[2]:m[3]]),
			Rejected:    accept != nil && !accept(name),
		})
	}

	for i := range blocks {
		if blocks[i].Rejected {
			blocks[i].End = blocks[i].Start
			continue
		}
		end := min(blocks[i].Start+window, len(pageText))
		if next := nextAccepted(blocks, i); next >= 0 && blocks[next].Start < end {
			end = blocks[next].Start
		}
		blocks[i].End = max(end, blocks[i].Start)
		blocks[i].Text = pageText[blocks[i].Start:blocks[i].End]
	}
	return blocks
}

func nextAccepted(blocks []Block, i int) int {
	for j := i + 1; j < len(blocks); j++ {
		if !blocks[j].Rejected {
			return j
		}
	}
	return -1
}

// nameBefore returns the candidate name preceding the anchor at offset and
// the offset where the name starts.
func nameBefore(text string, offset int) (string, int) {
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	if name := cleanName(text[lineStart:offset]); name != "" {
		return name, lineStart
	}

	end := lineStart - 1
	for end > 0 {
		start := strings.LastIndexByte(text[:end], '\n') + 1
		if name := cleanName(text[start:end]); name != "" {
			return name, start
		}
		end = start - 1
	}
	return "", lineStart
}

func cleanName(s string) string {
	s = strings.Trim(s, " \t\r:-|.")
	return strings.Join(strings.Fields(s), " ")
}

// parseOCRAmount reads a Turkish formatted amount, ignoring separators OCR
// left dangling at either end.
func parseOCRAmount(raw string) decimal.Decimal {
	return money.NormalizeAmount(strings.Trim(raw, ".,"))
}
