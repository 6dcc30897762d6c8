package table

import (
	"fmt"
	"strings"

	"github.com/driftdb/driftdb/internal/errors"
)

// Monetary convention: any column named with a cents suffix stores an
// integer number of cents but accepts a decimal string on write and renders
// a two-decimal string on read. This is a naming contract implemented as a
// value transform above the generic INTEGER handling, not a column type.

const centsSuffix = "_cents"

// IsMoneyColumn reports whether the column participates in the monetary
// cents convention.
func IsMoneyColumn(name string) bool {
	return strings.HasSuffix(name, centsSuffix) && name != centsSuffix
}

// ParseCents converts a decimal string like "12.50" to cents (1250),
// rounding to the nearest cent with exact half-cent ties going to the even
// cent ("12.504" -> 1250, "12.505" -> 1250, "12.515" -> 1252).
// Parsing is digit-based rather than float-based so no precision is lost.
func ParseCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.NewRecordError(errors.CodeTypeCoercionError, "empty monetary literal")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, errors.NewRecordError(errors.CodeTypeCoercionError,
			fmt.Sprintf("malformed monetary literal %q", raw))
	}

	var cents int64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, errors.NewRecordError(errors.CodeTypeCoercionError,
				fmt.Sprintf("malformed monetary literal %q", raw))
		}
		cents = cents*10 + int64(c-'0')
	}
	cents *= 100

	// First two fraction digits are cents; the rest decide rounding. An
	// exact half-cent tie rounds to the even cent, anything past a 5 in the
	// third digit forces rounding up.
	var roundDigit byte
	sticky := false
	for i := 0; i < len(fracPart); i++ {
		c := fracPart[i]
		if c < '0' || c > '9' {
			return 0, errors.NewRecordError(errors.CodeTypeCoercionError,
				fmt.Sprintf("malformed monetary literal %q", raw))
		}
		switch {
		case i == 0:
			cents += int64(c-'0') * 10
		case i == 1:
			cents += int64(c - '0')
		case i == 2:
			roundDigit = c - '0'
		case c != '0':
			sticky = true
		}
	}
	switch {
	case roundDigit > 5 || (roundDigit == 5 && sticky):
		cents++
	case roundDigit == 5 && cents%2 == 1:
		cents++
	}

	if negative {
		cents = -cents
	}
	return cents, nil
}

// RenderCents formats stored cents back to a two-decimal string:
// 1250 -> "12.50".
func RenderCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
