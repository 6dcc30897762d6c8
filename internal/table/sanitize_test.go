package table

import (
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"price", "price"},
		{"unit price", "unit_price"},
		{"drop table;--", "drop_table___"},
		{"Ünïcode", "_n_code"},
		{"a-b.c", "a_b_c"},
		{"", ""},
		{"__ok__", "__ok__"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.in); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("it's"); got != "'it''s'" {
		t.Errorf("quoteLiteral escaping broken: got %s", got)
	}
	if got := quoteLiteral("plain"); got != "'plain'" {
		t.Errorf("quoteLiteral mismatch: got %s", got)
	}
}

func isIdentRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

func TestProperty_SanitizeIdentifier(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("output contains only identifier characters", prop.ForAll(
		func(raw string) bool {
			for _, r := range SanitizeIdentifier(raw) {
				if !isIdentRune(r) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("sanitizing is idempotent", prop.ForAll(
		func(raw string) bool {
			once := SanitizeIdentifier(raw)
			return SanitizeIdentifier(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("rune count is preserved", prop.ForAll(
		func(raw string) bool {
			return utf8.RuneCountInString(SanitizeIdentifier(raw)) == utf8.RuneCountInString(raw)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
