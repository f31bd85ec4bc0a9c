package console

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

func init() {
	color.NoColor = true
}

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"Y\n":   true,
		"n\n":   false,
		"yes\n": false,
		"\n":    false,
		"":      false,
		"y":     true,
	}
	for in, want := range cases {
		var out bytes.Buffer
		got, err := New(strings.NewReader(in), &out).Confirm("Are you sure? y/n")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Confirm(%q) = %v, want %v", in, got, want)
		}
		if out.String() != "Are you sure? y/n\n!>> " {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestStartingBalanceReprompts(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("lots\n\n123.456\n"), &out)
	got, err := p.StartingBalance()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.RequireFromString("123.46")) {
		t.Fatalf("balance = %s", got)
	}
	if n := strings.Count(out.String(), BalanceError); n != 2 {
		t.Fatalf("expected 2 error lines, got %d:\n%s", n, out.String())
	}
	if n := strings.Count(out.String(), BalanceQuestion); n != 3 {
		t.Fatalf("expected 3 questions, got %d", n)
	}
}

func TestStartingBalanceEOF(t *testing.T) {
	_, err := New(strings.NewReader("nope"), io.Discard).StartingBalance()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	got, err := New(strings.NewReader("42"), io.Discard).StartingBalance()
	if err != nil || !got.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("answer without newline: %s %v", got, err)
	}
}
