package util

import "testing"

func TestCanonicalDate(t *testing.T) {
	cases := map[string]string{
		"2026-07-01":           "2026-07-01",
		"07/01/2026":           "2026-07-01",
		"20260701":             "2026-07-01",
		"2026-07-01T00:00:00Z": "2026-07-01",
		"not-a-date":           "not-a-date",
	}
	for in, want := range cases {
		if got := CanonicalDate(in); got != want {
			t.Fatalf("CanonicalDate(%q) = %q, want %q", in, got, want)
		}
	}
}
