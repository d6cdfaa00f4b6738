package symbols

import (
	"reflect"
	"testing"
)

func TestExpandRange(t *testing.T) {
	patterns := []Pattern{{Format: "ES{MYY}_FUT_CME", Months: "HMUZ", Enabled: true}}
	got, err := Expand(patterns, "N23", "Z23")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"ESU23_FUT_CME", "ESZ23_FUT_CME"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expand: got %v want %v", got, want)
	}
}

func TestExpandAcrossYears(t *testing.T) {
	patterns := []Pattern{{Format: "NQ{MYY}_FUT_CME", Months: "HMUZ", Enabled: true}}
	got, err := Expand(patterns, "Z23", "H24")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"NQZ23_FUT_CME", "NQH24_FUT_CME"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expand: got %v want %v", got, want)
	}
}

func TestExpandSkipsDisabled(t *testing.T) {
	patterns := []Pattern{{Format: "CL{MYY}_FUT_CME", Months: MonthCodes, Enabled: false}}
	got, err := Expand(patterns, "F23", "Z23")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no IDs from disabled pattern, got %v", got)
	}
}

func TestExpandRejectsBadCodes(t *testing.T) {
	if _, err := Expand(DefaultPatterns, "A23", "Z23"); err == nil {
		t.Fatalf("expected error for unknown month code")
	}
	if _, err := Expand(DefaultPatterns, "Z24", "H23"); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}
