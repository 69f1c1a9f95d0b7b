package ats

import "testing"

func TestEntityKindRoundTrip(t *testing.T) {
	for _, kind := range Kinds {
		got, err := ParseEntityKind(kind.String())
		if err != nil {
			t.Errorf("ParseEntityKind(%q): %v", kind.String(), err)
			continue
		}
		if got != kind {
			t.Errorf("ParseEntityKind(%q) = %v, want %v", kind.String(), got, kind)
		}
	}
}

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityKind
		wantErr bool
	}{
		{"area", KindArea, false},
		{"areas", KindArea, false},
		{"Zone", KindZone, false},
		{"OUTPUTS", KindOutput, false},
		{"trigger", KindTrigger, false},
		{"", 0, true},
		{"doors", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseEntityKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEntityKind(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntityKind(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEntityKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseArmMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ArmMode
		wantErr bool
	}{
		{"full", ArmFull, false},
		{"", ArmFull, false}, // omitted mode defaults to full set
		{"FULL", ArmFull, false},
		{"part1", ArmPart1, false},
		{"partial1", ArmPart1, false},
		{"part_2", ArmPart2, false},
		{"partial2", ArmPart2, false},
		{"night", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseArmMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseArmMode(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseArmMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseArmMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArmModeRoundTrip(t *testing.T) {
	for _, mode := range []ArmMode{ArmFull, ArmPart1, ArmPart2} {
		got, err := ParseArmMode(mode.String())
		if err != nil {
			t.Errorf("ParseArmMode(%q): %v", mode.String(), err)
			continue
		}
		if got != mode {
			t.Errorf("ParseArmMode(%q) = %v, want %v", mode.String(), got, mode)
		}
	}
}
