package main

import (
	"strings"
	"testing"

	"tycoon/internal/market"
)

func TestParseDollars(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1500", want: 150_000},
		{in: "$1,500.25", want: 150_025},
		{in: "0.01", want: 1},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "lots", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseDollars(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %d err %v want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if q, err := parseQuantity(" 12 "); err != nil || q != 12 {
		t.Fatalf("got %d err %v", q, err)
	}
	for _, bad := range []string{"0", "-3", "1.5", "x"} {
		if _, err := parseQuantity(bad); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}

func TestTruncateAndEventMarker(t *testing.T) {
	if got := truncate("Semiconductors and more", 10); got != "Semicon..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("Wheat", 10); got != "Wheat" {
		t.Fatalf("got %q", got)
	}
	if got := eventMarker(market.Quote{Event: 1}); got != "" {
		t.Fatalf("neutral event got %q", got)
	}
	if got := eventMarker(market.Quote{Event: 1.6}); got != "x1.60 up" {
		t.Fatalf("got %q", got)
	}
	if got := eventMarker(market.Quote{Event: 0.7}); got != "x0.70 down" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderTableIncludesRows(t *testing.T) {
	out := renderTable([]string{"ID", "PRICE"}, [][]string{{"wheat", "$25.00"}}, nil)
	for _, want := range []string{"ID", "wheat", "$25.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
