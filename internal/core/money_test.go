package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.34", 12.34, true},
		{"12,34", 12.34, true},
		{" 7 ", 7, true},
		{"0", 0, true},
		{"1e2", 100, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"-5", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseAmount(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseAmount(%q) expected error, got %v", tc.in, got)
		}
	}
}

func TestRoundTotal(t *testing.T) {
	if got := RoundTotal(0.1 + 0.2); got != 0.3 {
		t.Fatalf("RoundTotal(0.1+0.2) = %v", got)
	}
	if got := SumAmounts(50, 30); got != 80 {
		t.Fatalf("SumAmounts(50,30) = %v", got)
	}
	if got := SumAmounts(); got != 0 {
		t.Fatalf("SumAmounts() = %v", got)
	}
}
