package lola

import (
	"errors"
	"testing"
)

func TestIndexMaps_DomainAndCodomain(t *testing.T) {
	tests := []struct {
		group    Group
		domain   int
		codomain int
	}{
		{JointPositions, NumJoints, NumJoints},
		{JointStiffnesses, NumJoints, NumJoints},
		{LeftEarLeds, NumEarLeds, NumEarLeds},
		{RightEarLeds, NumEarLeds, NumEarLeds},
		{LeftEyeLeds, NumEyeLeds, NumEyeLeds},
		{RightEyeLeds, NumEyeLeds, NumEyeLeds},
		{HeadLeds, NumSkullLeds, NumSkullLeds},
	}

	for _, tt := range tests {
		t.Run(tt.group.String(), func(t *testing.T) {
			if got := DomainSize(tt.group); got != tt.domain {
				t.Fatalf("DomainSize(%s) = %d, want %d", tt.group, got, tt.domain)
			}
			seen := make(map[int]int)
			for i := 0; i < tt.domain; i++ {
				hw, err := Lookup(tt.group, i)
				if err != nil {
					t.Fatalf("Lookup(%s, %d) failed: %v", tt.group, i, err)
				}
				if hw < 0 || hw >= tt.codomain {
					t.Errorf("Lookup(%s, %d) = %d, outside [0, %d)", tt.group, i, hw, tt.codomain)
				}
				if prev, dup := seen[hw]; dup {
					t.Errorf("external indices %d and %d both map to hardware %d", prev, i, hw)
				}
				seen[hw] = i

				back, err := ExternalIndex(tt.group, hw)
				if err != nil || back != i {
					t.Errorf("ExternalIndex(%s, %d) = %d, %v; want %d", tt.group, hw, back, err, i)
				}
			}
		})
	}
}

func TestLookup_KnownLayouts(t *testing.T) {
	tests := []struct {
		name  string
		group Group
		index int
		want  int
	}{
		{"head yaw is first joint", JointPositions, 0, 0},
		{"right hand is last joint", JointStiffnesses, 24, 24},
		{"left ear 0deg", LeftEarLeds, 0, 0},
		{"right ear 0deg is reversed", RightEarLeds, 0, 9},
		{"right ear 324deg", RightEarLeds, 9, 0},
		{"left eye 0deg", LeftEyeLeds, 0, 1},
		{"left eye 45deg", LeftEyeLeds, 1, 0},
		{"left eye 90deg", LeftEyeLeds, 2, 7},
		{"right eye 90deg", RightEyeLeds, 2, 2},
		{"skull front left 0", HeadLeds, 0, 1},
		{"skull front right 1", HeadLeds, 3, 11},
		{"skull rear right 2", HeadLeds, 11, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(tt.group, tt.index)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Lookup(%s, %d) = %d, want %d", tt.group, tt.index, got, tt.want)
			}
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name  string
		group Group
		index int
	}{
		{"negative", JointPositions, -1},
		{"at domain size", JointPositions, NumJoints},
		{"eye at hardware length", LeftEyeLeds, 24},
		{"ear beyond domain", RightEarLeds, 10},
		{"full replace group", ChestLed, 0},
		{"sonar", SonarUsage, 0},
		{"invalid group", Group(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lookup(tt.group, tt.index)
			if !errors.Is(err, ErrUnknownIndex) {
				t.Fatalf("Lookup(%s, %d) error = %v, want ErrUnknownIndex", tt.group, tt.index, err)
			}
		})
	}
}

func TestGroups_KeysAndLengths(t *testing.T) {
	want := map[string]int{
		"Position": 25, "Stiffness": 25, "Chest": 3, "LEar": 10, "REar": 10,
		"LEye": 24, "REye": 24, "LFoot": 3, "RFoot": 3, "Skull": 12, "Sonar": 2,
	}
	groups := AllGroups()
	if len(groups) != len(want) {
		t.Fatalf("got %d groups, want %d", len(groups), len(want))
	}
	for _, g := range groups {
		n, ok := want[g.Key()]
		if !ok {
			t.Errorf("unexpected key %q for %s", g.Key(), g)
			continue
		}
		if g.HardwareLength() != n {
			t.Errorf("%s hardware length = %d, want %d", g.Key(), g.HardwareLength(), n)
		}
		back, ok := GroupForKey(g.Key())
		if !ok || back != g {
			t.Errorf("GroupForKey(%q) = %v, %v", g.Key(), back, ok)
		}
	}
	if !SonarUsage.Boolean() || JointPositions.Boolean() {
		t.Error("only SonarUsage should be boolean")
	}
}
