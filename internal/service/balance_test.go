package service

import "testing"

func strPtr(s string) *string { return &s }

func TestNormalizeBalance(t *testing.T) {
	tests := []struct {
		name    string
		primary *string
		legacy  *string
		want    float64
		wantOK  bool
	}{
		{"plain number", strPtr("250"), nil, 250, true},
		{"decimal", strPtr("99.50"), nil, 99.50, true},
		{"currency formatted", strPtr("₹1,234.50"), nil, 1234.50, true},
		{"currency with spaces", strPtr("₹ 2,500.75"), nil, 2500.75, true},
		{"negative", strPtr("-42.00"), nil, -42, true},
		{"legacy field only", nil, strPtr("₹500"), 500, true},
		{"primary wins over legacy", strPtr("100"), strPtr("999"), 100, true},
		{"both missing", nil, nil, 0, true},
		{"empty string", strPtr(""), nil, 0, false},
		{"garbage", strPtr("not a number"), nil, 0, false},
		{"lone currency symbol", strPtr("₹"), nil, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeBalance(tc.primary, tc.legacy)
			if got != tc.want {
				t.Fatalf("NormalizeBalance() = %v, want %v", got, tc.want)
			}
			if ok != tc.wantOK {
				t.Fatalf("NormalizeBalance() ok = %v, want %v", ok, tc.wantOK)
			}
		})
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{10, "10.00"},
		{1234.5, "1234.50"},
		{99.999, "100.00"},
		{0.004, "0.00"},
	}

	for _, tc := range tests {
		if got := formatBalance(tc.in); got != tc.want {
			t.Errorf("formatBalance(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatNormalizeRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 10, 9.99, 1234.50, 100000} {
		s := formatBalance(v)
		got, ok := NormalizeBalance(&s, nil)
		if !ok || got != v {
			t.Errorf("round trip of %v via %q gave %v (ok=%v)", v, s, got, ok)
		}
	}
}
