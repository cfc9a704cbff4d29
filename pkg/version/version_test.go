package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major || v.Minor != tt.minor {
				t.Errorf("Parse(%q) = %s, want %d.%d", tt.input, v, tt.major, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "1", "abc", "1.0.0", "1.x", "-1.0", ".1"} {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		announced    string
		wantErr      bool
		incompatible bool
	}{
		{"", false, false},
		{Current, false, false},
		{"1.7", false, false},
		{"2.0", true, true},
		{"0.9", true, true},
		{"one", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.announced, func(t *testing.T) {
			err := Supported(tt.announced)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Supported(%q) = %v, wantErr %v", tt.announced, err, tt.wantErr)
			}
			if got := errors.Is(err, ErrIncompatible); got != tt.incompatible {
				t.Errorf("errors.Is(ErrIncompatible) = %v, want %v", got, tt.incompatible)
			}
		})
	}
}

func TestCurrentParses(t *testing.T) {
	if _, err := Parse(Current); err != nil {
		t.Fatalf("Current %q does not parse: %v", Current, err)
	}
}
