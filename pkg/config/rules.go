package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules are the tunable tables of the analysis: thresholds, the bank alias
// table and the Findeks keyword gate.
type Rules struct {
	EntityPrefix  string         `yaml:"entity_prefix"`
	StalenessDays int            `yaml:"staleness_days"`
	Thresholds    ThresholdRules `yaml:"thresholds"`
	Match         MatchRules     `yaml:"match"`
	OCR           OCRRules       `yaml:"ocr"`

	// ReplaceAliases drops the built-in aliases and keywords instead of
	// appending them after the file's own.
	ReplaceAliases bool     `yaml:"replace_aliases"`
	Aliases        []Alias  `yaml:"aliases"`
	Keywords       []string `yaml:"keywords"`
}

type ThresholdRules struct {
	HighUtilization     float64 `yaml:"high_utilization"`
	CriticalUtilization float64 `yaml:"critical_utilization"`
	DelinquencyDays     int     `yaml:"delinquency_days"`
}

type MatchRules struct {
	Threshold float64 `yaml:"threshold"`
	Exclusive bool    `yaml:"exclusive"`
}

// OCRRules shape Findeks block detection. FirstPage is the zero-based index
// of the first page read.
type OCRRules struct {
	Window    int `yaml:"window"`
	FirstPage int `yaml:"first_page"`
}

// Alias maps a folded keyword fragment to a display name.
type Alias struct {
	Keyword string `yaml:"keyword"`
	Name    string `yaml:"name"`
}

// DefaultRules returns the built-in rule set. Aliases are ordered so that
// participation bank variants come before the base name they contain.
func DefaultRules() Rules {
	return Rules{
		EntityPrefix:  "KAYNAK-",
		StalenessDays: 180,
		Thresholds: ThresholdRules{
			HighUtilization:     95,
			CriticalUtilization: 100,
			DelinquencyDays:     30,
		},
		Match: MatchRules{Threshold: 0.15},
		OCR:   OCRRules{Window: 1200, FirstPage: 2},
		Aliases: []Alias{
			{Keyword: "ziraat katilim", Name: "Ziraat Katılım"},
			{Keyword: "vakif katilim", Name: "Vakıf Katılım"},
			{Keyword: "emlak katilim", Name: "Emlak Katılım"},
			{Keyword: "turkiye finans", Name: "Türkiye Finans"},
			{Keyword: "kuveyt turk", Name: "Kuveyt Türk"},
			{Keyword: "albaraka", Name: "Albaraka Türk"},
			{Keyword: "ziraat", Name: "Ziraat Bankası"},
			{Keyword: "halkbank", Name: "Halkbank"},
			{Keyword: "halk bankasi", Name: "Halkbank"},
			{Keyword: "vakifbank", Name: "VakıfBank"},
			{Keyword: "vakiflar", Name: "VakıfBank"},
			{Keyword: "is bankasi", Name: "İş Bankası"},
			{Keyword: "isbank", Name: "İş Bankası"},
			{Keyword: "garanti", Name: "Garanti BBVA"},
			{Keyword: "akbank", Name: "Akbank"},
			{Keyword: "yapi kredi", Name: "Yapı Kredi"},
			{Keyword: "yapikredi", Name: "Yapı Kredi"},
			{Keyword: "finansbank", Name: "QNB"},
			{Keyword: "qnb", Name: "QNB"},
			{Keyword: "denizbank", Name: "DenizBank"},
			{Keyword: "turk ekonomi", Name: "TEB"},
			{Keyword: "ing bank", Name: "ING"},
			{Keyword: "hsbc", Name: "HSBC"},
			{Keyword: "sekerbank", Name: "Şekerbank"},
			{Keyword: "odeabank", Name: "Odeabank"},
			{Keyword: "fibabanka", Name: "Fibabanka"},
			{Keyword: "alternatif", Name: "Alternatif Bank"},
			{Keyword: "anadolubank", Name: "Anadolubank"},
			{Keyword: "burgan", Name: "Burgan Bank"},
			{Keyword: "icbc", Name: "ICBC Turkey"},
		},
		Keywords: []string{"bank", "banka", "katilim", "finans", "leasing", "faktoring"},
	}
}

// LoadRules reads a YAML rules file over DefaultRules. An empty path returns
// the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules over DefaultRules.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()
	defaultAliases, defaultKeywords := rules.Aliases, rules.Keywords
	rules.Aliases, rules.Keywords = nil, nil

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules: %w", err)
	}

	if !rules.ReplaceAliases {
		rules.Aliases = append(rules.Aliases, defaultAliases...)
		rules.Keywords = append(rules.Keywords, defaultKeywords...)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate rejects rule sets the engine cannot work with.
func (r Rules) Validate() error {
	if r.EntityPrefix == "" {
		return errors.New("entity_prefix must not be empty")
	}
	if r.StalenessDays <= 0 {
		return errors.New("staleness_days must be positive")
	}
	t := r.Thresholds
	if t.HighUtilization <= 0 || t.CriticalUtilization <= 0 {
		return errors.New("utilization thresholds must be positive")
	}
	if t.HighUtilization > t.CriticalUtilization {
		return fmt.Errorf("high_utilization %.1f is above critical_utilization %.1f", t.HighUtilization, t.CriticalUtilization)
	}
	if t.DelinquencyDays < 0 {
		return errors.New("delinquency_days must not be negative")
	}
	if r.Match.Threshold <= 0 {
		return errors.New("match threshold must be positive")
	}
	if r.OCR.Window <= 0 {
		return errors.New("ocr window must be positive")
	}
	if r.OCR.FirstPage < 0 {
		return errors.New("ocr first_page must not be negative")
	}
	for i, a := range r.Aliases {
		if a.Keyword == "" || a.Name == "" {
			return fmt.Errorf("alias %d needs both keyword and name", i)
		}
	}
	return nil
}

// StalenessWindow is the revision age after which a limit is overdue.
func (r Rules) StalenessWindow() time.Duration {
	return time.Duration(r.StalenessDays) * 24 * time.Hour
}
