package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"5500", 5500, true},
		{"12,5", 13, true}, // half-up rounding
		{"12.49", 12, true},
		{" 250 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	cases := map[float64]int64{
		0:       0,
		1649.5:  1650,
		1649.49: 1649,
		2750:    2750,
	}
	for in, want := range cases {
		if got := RoundAmount(in); got != want {
			t.Fatalf("RoundAmount(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	if got := PercentOf(5500, 30); got != 1650 {
		t.Fatalf("expected 1650, got %d", got)
	}
	if got := PercentOf(3333, 50); got != 1667 {
		t.Fatalf("expected 1667, got %d", got)
	}
	if got := PercentOf(0, 50); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
