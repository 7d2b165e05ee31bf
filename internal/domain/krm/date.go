package krm

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeDate parses dd/mm/yy or dd/mm/yyyy. Two digit years below 50 are
// 20xx, the rest 19xx. Anything malformed, including impossible calendar
// dates such as 31/02/24, yields nil.
func NormalizeDate(raw string) *time.Time {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return nil
	}

	var nums [3]int
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return nil
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if len(strings.TrimSpace(parts[2])) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return nil
	}
	return &t
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
