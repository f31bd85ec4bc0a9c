package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,5", "12.5", true},
		{"7", "7", true},
		{"-3.2", "-3.2", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("ParseAmount(%q) expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestFormatUsage(t *testing.T) {
	cases := map[string]string{
		"0":      "0.0",
		"-10":    "-10.0",
		"30":     "+30.0",
		"2.5":    "+2.5",
		"-0.333": "-0.33",
		"1.005":  "+1.01",
	}
	for in, want := range cases {
		if got := FormatUsage(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatUsage(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("4.5")); got != "4.50" {
		t.Fatalf("got %q", got)
	}
}
