// Package normalize canonicalizes customer names, amounts, and dates so the
// two record sources become comparable. Invoice files arrive with arbitrary
// casing, padding, currency symbols, and separator conventions.
package normalize

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// Name lowercases, trims, and collapses internal whitespace runs to a single
// space. Never fails; empty input yields an empty string.
func Name(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// dateLayouts are tried in order when parsing invoice dates.
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
}

// Date parses a calendar date, discarding any time component.
func Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", model.ErrMalformedDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", model.ErrMalformedDate, raw)
}

// Amount parses a numeric string into a decimal, accepting currency symbols
// and thousands separators. A comma is treated as a decimal separator only
// when it is the final separator and is followed by at most two digits;
// otherwise separators are stripped as grouping marks.
func Amount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", model.ErrMalformedAmount)
	}

	negative := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		case r == '(':
			negative = true
		}
	}
	cleaned := b.String()
	if !strings.ContainsFunc(cleaned, unicode.IsDigit) {
		return decimal.Zero, fmt.Errorf("%w: %q has no digits", model.ErrMalformedAmount, raw)
	}

	cleaned = resolveSeparators(cleaned)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", model.ErrMalformedAmount, raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// resolveSeparators reduces mixed '.'/',' usage to a single '.' decimal point.
func resolveSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The later separator is the decimal point.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// Multiple dots means grouping, e.g. "1.234.500".
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
