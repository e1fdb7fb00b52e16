package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/udisondev/regionwatch/internal/model"
)

const sampleRegions = `
regions:
  - id: spawn
    name: Spawn
    world: overworld
    type: passive
    min: {x: 50, y: 0, z: 50}
    max: {x: -50, y: 255, z: -50}
  - id: market
    world: overworld
    enter_priority: 5
    leave_priority: 1
    min: {x: 0, y: 60, z: 0}
    max: {x: 31, y: 80, z: 31}
    params:
      enter_message: "Welcome to the market"
  - id: draft
    world: nether
`

func TestParseRegions(t *testing.T) {
	defs, err := ParseRegions([]byte(sampleRegions))
	if err != nil {
		t.Fatalf("ParseRegions: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}

	spawn := defs[0]
	if spawn.DisplayName() != "Spawn" || spawn.Type != "passive" {
		t.Errorf("spawn = %q/%q, want Spawn/passive", spawn.DisplayName(), spawn.Type)
	}
	b, ok := spawn.Bounds()
	if !ok {
		t.Fatal("spawn bounds undefined")
	}
	// Углы задаются в любом порядке.
	want := model.Bounds{MinX: -50, MinY: 0, MinZ: -50, MaxX: 50, MaxY: 255, MaxZ: 50}
	if b != want {
		t.Errorf("spawn bounds = %+v, want %+v", b, want)
	}

	market := defs[1]
	if got := market.DisplayName(); got != "market" {
		t.Errorf("DisplayName() = %q, want id fallback", got)
	}
	if market.EnterPriority != 5 || market.LeavePriority != 1 {
		t.Errorf("priorities = %d/%d, want 5/1", market.EnterPriority, market.LeavePriority)
	}
	if got := market.Param("enter_message", ""); got != "Welcome to the market" {
		t.Errorf("Param(enter_message) = %q", got)
	}
	if got := market.Param("leave_message", "bye"); got != "bye" {
		t.Errorf("Param(leave_message) = %q, want default", got)
	}

	if _, ok := defs[2].Bounds(); ok {
		t.Error("region without corners must stay undefined")
	}
}

func TestParseRegionsValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "regions:\n  - world: w\n"},
		{"missing world", "regions:\n  - id: a\n"},
		{"half defined", "regions:\n  - id: a\n    world: w\n    min: {x: 1, y: 1, z: 1}\n"},
		{"duplicate id", "regions:\n  - id: a\n    world: w\n  - id: a\n    world: w\n"},
		{"non-finite corner", "regions:\n  - id: a\n    world: w\n    min: {x: .inf, y: 1, z: 1}\n    max: {x: 1, y: 1, z: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegions([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("err = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestParseRegionsMalformed(t *testing.T) {
	if _, err := ParseRegions([]byte("regions: [unterminated")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	if err := os.WriteFile(path, []byte(sampleRegions), 0o600); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadRegions(path)
	if err != nil {
		t.Fatalf("LoadRegions: %v", err)
	}
	if len(defs) != 3 {
		t.Errorf("got %d definitions, want 3", len(defs))
	}

	if _, err := LoadRegions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
