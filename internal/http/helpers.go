package http

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var templateFuncs = template.FuncMap{
	"monthName": monthName,
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

// parseYearMonth extracts year and month from the request (query or form
// body), defaulting to the current period when absent or invalid.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.FormValue("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.FormValue("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, month
}

// formatAmount renders a decimal with two fraction digits for display.
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// monthOption is one entry of a month select.
type monthOption struct {
	Value    int
	Name     string
	Selected bool
}

func monthOptions(selected int) []monthOption {
	opts := make([]monthOption, 0, 12)
	for m := 1; m <= 12; m++ {
		opts = append(opts, monthOption{Value: m, Name: monthName(m), Selected: m == selected})
	}
	return opts
}

// yearOption is one entry of a year select.
type yearOption struct {
	Value    int
	Selected bool
}

func yearOptions(selected int) []yearOption {
	current := time.Now().Year()
	first := current - 2
	if selected < first {
		first = selected
	}
	last := current + 1
	if selected > last {
		last = selected
	}

	opts := make([]yearOption, 0, last-first+1)
	for y := first; y <= last; y++ {
		opts = append(opts, yearOption{Value: y, Selected: y == selected})
	}
	return opts
}
