package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates report-shaped fixture values using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// Amount returns a random amount with two decimals between min and max whole units.
func (g *TestDataGenerator) Amount(min, max int) decimal.Decimal {
	units := g.faker.IntRange(min, max)
	cents := g.faker.IntRange(0, 99)
	return decimal.New(int64(units)*100+int64(cents), -2)
}

// TurkishAmount renders d the way bureau cells print it: "1.234.567,89".
func (g *TestDataGenerator) TurkishAmount(d decimal.Decimal) string {
	return FormatTurkishCell(d)
}

// FormatTurkishCell renders d with dot grouping and a two digit comma fraction.
func FormatTurkishCell(d decimal.Decimal) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + frac
	if negative {
		out = "-" + out
	}
	return out
}

// Garbage returns a random string that is not a valid amount or date.
func (g *TestDataGenerator) Garbage() string {
	choices := []string{
		g.faker.Word(),
		g.faker.LetterN(uint(g.faker.IntRange(1, 8))),
		"1,2,3",
		"--",
		"12/ab/99",
		"N/A",
		g.faker.Emoji(),
	}
	return choices[g.faker.IntRange(0, len(choices)-1)]
}

// Date returns a random date between from and to, truncated to midnight UTC.
func (g *TestDataGenerator) Date(from, to time.Time) time.Time {
	d := g.faker.DateRange(from, to).UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// ReportDate renders t as dd/mm/yyyy or, when short is set, dd/mm/yy.
func (g *TestDataGenerator) ReportDate(t time.Time, short bool) string {
	if short {
		return fmt.Sprintf("%02d/%02d/%02d", t.Day(), int(t.Month()), t.Year()%100)
	}
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}

// Days returns a random delinquency day count.
func (g *TestDataGenerator) Days(max int) int {
	return g.faker.IntRange(0, max)
}
