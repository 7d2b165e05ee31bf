// Package textfold folds Turkish text for case and diacritic insensitive
// matching. "GAYRİNAKDİ LİMİT", "Gayrinakdi Limit" and "gayrınakdı lımıt" all
// fold to "gayrinakdi limit".
package textfold

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"
)

var marks = runes.In(unicode.Mn)

// Fold lowercases s and strips combining marks. Dotted and dotless i both
// become "i".
func Fold(s string) string {
	return FoldMapped(s).Text
}

// Mapped is folded text that remembers where each byte came from.
type Mapped struct {
	Text    string
	offsets []int
}

// Origin returns the byte offset in the original string of folded byte i.
// i may equal len(Text), which maps to the end of the original.
func (m Mapped) Origin(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(m.offsets) {
		return m.offsets[len(m.offsets)-1]
	}
	return m.offsets[i]
}

// FoldMapped folds s rune by rune, keeping an offset map back into s so that
// matches found on the folded text can be sliced out of the original.
func FoldMapped(s string) Mapped {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	for i, r := range s {
		f := foldRune(r)
		b.WriteString(f)
		for range len(f) {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(s))

	return Mapped{Text: b.String(), offsets: offsets}
}

func foldRune(r rune) string {
	switch r {
	case 'ı', 'İ':
		return "i"
	case '\r':
		return ""
	}
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}

	var b strings.Builder
	for _, d := range norm.NFD.String(string(unicode.ToLower(r))) {
		if marks.Contains(d) {
			continue
		}
		b.WriteRune(d)
	}
	return b.String()
}

// Title title-cases s with Turkish casing rules ("ZİRAAT BANKASI" becomes
// "Ziraat Bankası"). Plain ASCII input, as OCR usually yields, is cased
// without them so that "ZIRAAT" becomes "Ziraat".
func Title(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if isASCII(s) {
		return cases.Title(language.Und).String(s)
	}
	return cases.Title(language.Turkish).String(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
