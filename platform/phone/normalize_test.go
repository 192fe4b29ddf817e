package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"already canonical", "380501234567", "380501234567"},
		{"e164 with plus", "+380501234567", "380501234567"},
		{"local with leading zero", "0501234567", "380501234567"},
		{"formatted", "+38 (050) 123-45-67", "380501234567"},
		{"ten digits no prefix", "5012345678", "385012345678"},
		{"garbage characters stripped", "tel: 050-123-45-67", "380501234567"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"+380501234567", "0501234567", "380501234567"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164("0501234567"); got != "+380501234567" {
		t.Errorf("NormalizeE164(0501234567) = %q, want +380501234567", got)
	}
	if got := NormalizeE164(""); got != "" {
		t.Errorf("NormalizeE164(empty) = %q, want empty", got)
	}
}
