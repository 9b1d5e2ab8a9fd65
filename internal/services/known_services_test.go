package services

import (
	"testing"

	"subwatch/internal/core"
)

func TestLookupKnownService(t *testing.T) {
	cases := []struct {
		in        string
		canonical string
		frequency core.Frequency
		found     bool
	}{
		{"netflix", "Netflix", core.Monthly, true},
		{"netflix payment", "Netflix", core.Monthly, true}, // key inside merchant
		{"flix", "Netflix", core.Monthly, true},            // merchant inside key
		{"spotify usa", "Spotify", core.Monthly, true},
		{"microsoft 365", "Microsoft 365", core.Yearly, true},
		{"corner bakery", "", "", false},
		{"", "", "", false}, // empty must never match
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			svc, ok := LookupKnownService(tc.in)
			if ok != tc.found {
				t.Fatalf("found=%v, expected %v", ok, tc.found)
			}
			if !tc.found {
				return
			}
			if svc.Canonical != tc.canonical {
				t.Fatalf("expected %q, got %q", tc.canonical, svc.Canonical)
			}
			if svc.TypicalFrequency != tc.frequency {
				t.Fatalf("expected %s, got %s", tc.frequency, svc.TypicalFrequency)
			}
		})
	}
}

func TestLookupKnownServiceExactWinsOverSubstring(t *testing.T) {
	// "disney plus" matches both its own entry and the shorter "disney"
	// substring entry; the exact match must win.
	svc, ok := LookupKnownService("disney plus")
	if !ok || svc.Pattern != "disney plus" {
		t.Fatalf("expected exact match on 'disney plus', got %+v (ok=%v)", svc, ok)
	}
}
