// Package data loads region definitions from YAML files. Definitions are
// read-only inputs; the tracker never writes them back.
package data

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/regionwatch/internal/model"
)

// ErrInvalidDefinition is wrapped by every validation failure.
var ErrInvalidDefinition = errors.New("invalid region definition")

// Point is one corner of a region cuboid.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// RegionDef describes one region as written in a definitions file.
// Min and Max may be given in any order; a region without corners is
// loaded but stays undefined.
type RegionDef struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	World         string            `yaml:"world"`
	Type          string            `yaml:"type"`
	Min           *Point            `yaml:"min"`
	Max           *Point            `yaml:"max"`
	EnterPriority int               `yaml:"enter_priority"`
	LeavePriority int               `yaml:"leave_priority"`
	Params        map[string]string `yaml:"params"`
}

// Bounds returns the cuboid spanned by Min and Max, or false if either corner is missing.
func (d RegionDef) Bounds() (model.Bounds, bool) {
	if d.Min == nil || d.Max == nil {
		return model.Bounds{}, false
	}
	return model.NewBounds(d.Min.X, d.Min.Y, d.Min.Z, d.Max.X, d.Max.Y, d.Max.Z), true
}

// DisplayName returns Name, falling back to ID.
func (d RegionDef) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Param returns a parameter value or def when missing.
func (d RegionDef) Param(key, def string) string {
	if v, ok := d.Params[key]; ok {
		return v
	}
	return def
}

type regionFile struct {
	Regions []RegionDef `yaml:"regions"`
}

// LoadRegions reads region definitions from a YAML file.
func LoadRegions(path string) ([]RegionDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading region definitions %s: %w", path, err)
	}

	defs, err := ParseRegions(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing region definitions %s: %w", path, err)
	}

	slog.Info("loaded region definitions", "path", path, "count", len(defs))
	return defs, nil
}

// ParseRegions decodes and validates region definitions.
func ParseRegions(raw []byte) ([]RegionDef, error) {
	var f regionFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(f.Regions))
	for i, d := range f.Regions {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("region #%d: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("region %q: duplicate id: %w", d.ID, ErrInvalidDefinition)
		}
		seen[d.ID] = struct{}{}
	}

	return f.Regions, nil
}

func (d RegionDef) validate() error {
	if d.ID == "" {
		return fmt.Errorf("missing id: %w", ErrInvalidDefinition)
	}
	if d.World == "" {
		return fmt.Errorf("region %q: missing world: %w", d.ID, ErrInvalidDefinition)
	}
	if (d.Min == nil) != (d.Max == nil) {
		return fmt.Errorf("region %q: both min and max are required: %w", d.ID, ErrInvalidDefinition)
	}
	for _, p := range []*Point{d.Min, d.Max} {
		if p == nil {
			continue
		}
		for _, v := range []float64{p.X, p.Y, p.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("region %q: non-finite corner: %w", d.ID, ErrInvalidDefinition)
			}
		}
	}
	return nil
}
