package findeks

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// minFuzzyKeyRunes is the shortest alias keyword that may match with one edit.
const minFuzzyKeyRunes = 5

// Alias maps a keyword fragment to a canonical bank name.
type Alias struct {
	Keyword string `yaml:"keyword"`
	Name    string `yaml:"name"`
}

// AliasResolver normalizes OCR variants of bank names. Keywords are matched
// on folded text with a single Aho-Corasick pass; the earliest declared alias
// that occurs wins.
type AliasResolver struct {
	aliases []Alias
	keys    []string // folded alias keywords, same order as aliases
	gate    *ahocorasick.Matcher
	lookup  *ahocorasick.Matcher
	mu      sync.Mutex // the matchers keep per-call state
}

// NewAliasResolver builds a resolver from the alias table and extra gate
// keywords. Every alias keyword is also a gate keyword.
func NewAliasResolver(aliases []Alias, keywords []string) *AliasResolver {
	r := &AliasResolver{aliases: make([]Alias, 0, len(aliases))}

	seen := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		key := strings.TrimSpace(textfold.Fold(a.Keyword))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		r.aliases = append(r.aliases, a)
		r.keys = append(r.keys, key)
	}

	gate := append([]string(nil), r.keys...)
	for _, k := range keywords {
		if k = strings.TrimSpace(textfold.Fold(k)); k != "" {
			gate = append(gate, k)
		}
	}

	if len(r.keys) > 0 {
		r.lookup = ahocorasick.NewStringMatcher(r.keys)
	}
	if len(gate) > 0 {
		r.gate = ahocorasick.NewStringMatcher(gate)
	}
	return r
}

// HasKeyword reports whether text contains any known bank keyword.
func (r *AliasResolver) HasKeyword(text string) bool {
	if r.gate == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gate.Match([]byte(textfold.Fold(text)))) > 0
}

// Resolve returns the canonical name for raw. When no keyword occurs as a
// substring, a keyword of five or more letters may match one word window of
// raw within edit distance one. Unmapped names are title-cased.
func (r *AliasResolver) Resolve(raw string) string {
	folded := textfold.Fold(raw)

	if i, ok := r.exact(folded); ok {
		return r.aliases[i].Name
	}
	if i, ok := r.near(folded); ok {
		return r.aliases[i].Name
	}
	return textfold.Title(raw)
}

func (r *AliasResolver) exact(folded string) (int, bool) {
	if r.lookup == nil {
		return 0, false
	}
	r.mu.Lock()
	hits := r.lookup.Match([]byte(folded))
	r.mu.Unlock()

	if len(hits) == 0 {
		return 0, false
	}
	first := hits[0]
	for _, h := range hits[1:] {
		first = min(first, h)
	}
	return first, true
}

func (r *AliasResolver) near(folded string) (int, bool) {
	words := strings.Fields(folded)
	for i, key := range r.keys {
		if utf8.RuneCountInString(key) < minFuzzyKeyRunes {
			continue
		}
		n := len(strings.Fields(key))
		for start := 0; start+n <= len(words); start++ {
			window := strings.Join(words[start:start+n], " ")
			if fuzzy.LevenshteinDistance(key, window) <= 1 {
				return i, true
			}
		}
	}
	return 0, false
}
