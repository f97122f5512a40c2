package format

import (
	"math"
	"testing"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

func TestKRW(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		amount int64
		want   string
	}{
		{name: "zero", amount: 0, want: "₩0"},
		{name: "below thousand", amount: 999, want: "₩999"},
		{name: "shipping fee", amount: 3000, want: "₩3,000"},
		{name: "sale price", amount: 1490000, want: "₩1,490,000"},
		{name: "revenue", amount: 12345678, want: "₩12,345,678"},
		{name: "negative", amount: -1000, want: "-₩1,000"},
		{name: "min int64", amount: math.MinInt64, want: "-₩9,223,372,036,854,775,808"},
		{name: "max int64", amount: math.MaxInt64, want: "₩9,223,372,036,854,775,807"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := KRW(tc.amount); got != tc.want {
				t.Fatalf("KRW(%d) = %q, want %q", tc.amount, got, tc.want)
			}
		})
	}
}

func TestFormatterMinorUnits(t *testing.T) {
	t.Parallel()

	f := Formatter{Unit: currency.USD, Tag: language.English}
	if got := f.Format(123456); got != "$1,234.56" {
		t.Fatalf("unexpected USD format: %q", got)
	}
	if got := f.Format(-5); got != "-$0.05" {
		t.Fatalf("unexpected negative USD format: %q", got)
	}
}

func TestFormatterZeroValueDefaultsToKRW(t *testing.T) {
	t.Parallel()

	if got := (Formatter{}).Format(50000); got != "₩50,000" {
		t.Fatalf("unexpected zero-value format: %q", got)
	}
}
