package permgroup

import "testing"

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input      string
		wantLong   bool
		wantString string
	}{
		{input: "42", wantLong: true, wantString: "42"},
		{input: "-7", wantLong: true, wantString: "-7"},
		{input: "3.14", wantLong: false, wantString: "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePriority(tt.input)
			if err != nil {
				t.Fatalf("ParsePriority(%q) error: %v", tt.input, err)
			}
			if p.IsLong != tt.wantLong {
				t.Errorf("IsLong = %v, want %v", p.IsLong, tt.wantLong)
			}
			if got := p.String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
		})
	}
}

func TestParsePriorityInvalid(t *testing.T) {
	if _, err := ParsePriority("not-a-number"); err == nil {
		t.Error("expected an error for a non-numeric priority")
	}
}

func TestPriorityAsFloatComparesLongAndDouble(t *testing.T) {
	l := LongPriority(3)
	d := DoublePriority(3.0)
	if l.AsFloat() != d.AsFloat() {
		t.Errorf("expected a long and a double of equal value to compare equal, got %v != %v", l.AsFloat(), d.AsFloat())
	}

	higher := DoublePriority(3.5)
	if !(higher.AsFloat() > l.AsFloat()) {
		t.Errorf("expected 3.5 > 3, got %v <= %v", higher.AsFloat(), l.AsFloat())
	}
}
