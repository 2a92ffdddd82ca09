// Package scene reads YAML scripts that place and move probes on an image,
// and replays them against a Deformer.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/probedeform"
	"github.com/phanxgames/probedeform/internal/config"
)

// Point is an x, y pair written as a two element sequence.
type Point [2]float64

// Scene is a scripted deformation.
//
//	image: face.png
//	mesh:
//	  weight_model: biharmonic
//	stages:
//	  - probes:
//	      - at: [120, 80]
//	        move: [10, 0]
//	        rotate: 15
//	    freeze: true
type Scene struct {
	// Image is resolved relative to the scene file by Load.
	Image string     `yaml:"image"`
	Mesh  *Overrides `yaml:"mesh,omitempty"`
	// Relative interprets every coordinate as a fraction of the image size.
	Relative bool    `yaml:"relative,omitempty"`
	Stages   []Stage `yaml:"stages"`
}

// Overrides replaces selected mesh settings from the CLI configuration.
type Overrides struct {
	WeightModel string   `yaml:"weight_model,omitempty"`
	DeformModel string   `yaml:"deform_model,omitempty"`
	Divisions   []int    `yaml:"divisions,omitempty,flow"`
	ProbeRadius *float64 `yaml:"probe_radius,omitempty"`
}

// Stage adds probes, poses them and optionally freezes the result into the
// rest mesh before the next stage.
type Stage struct {
	Probes []Probe `yaml:"probes"`
	Freeze bool    `yaml:"freeze,omitempty"`
}

// Probe places one probe. Radius zero keeps the deformer's default.
type Probe struct {
	At     Point   `yaml:"at,flow"`
	Radius float64 `yaml:"radius,omitempty"`
	Move   Point   `yaml:"move,omitempty,flow"`
	Rotate float64 `yaml:"rotate,omitempty"` // degrees
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	if s.Image != "" && !filepath.IsAbs(s.Image) {
		s.Image = filepath.Join(filepath.Dir(path), s.Image)
	}
	return s, nil
}

// Parse decodes and validates a scene. Unknown keys are rejected.
func Parse(r io.Reader) (*Scene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scene
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks coordinates, radii and overrides.
func (s *Scene) Validate() error {
	if s.Mesh != nil {
		if n := len(s.Mesh.Divisions); n != 0 && n != 2 {
			return fmt.Errorf("mesh.divisions: want [vertical, horizontal], got %d values", n)
		}
		if s.Mesh.ProbeRadius != nil && *s.Mesh.ProbeRadius < 0 {
			return fmt.Errorf("mesh.probe_radius: %g is negative", *s.Mesh.ProbeRadius)
		}
	}
	for i, st := range s.Stages {
		for j, p := range st.Probes {
			for _, v := range [...]float64{p.At[0], p.At[1], p.Move[0], p.Move[1], p.Rotate, p.Radius} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("stages[%d].probes[%d]: non-finite value", i, j)
				}
			}
			if p.Radius < 0 {
				return fmt.Errorf("stages[%d].probes[%d]: radius %g is negative", i, j, p.Radius)
			}
		}
	}
	return nil
}

// ApplyOverrides merges the scene's mesh overrides into m.
func (s *Scene) ApplyOverrides(m *config.MeshConfig) {
	o := s.Mesh
	if o == nil {
		return
	}
	if o.WeightModel != "" {
		m.WeightModel = o.WeightModel
	}
	if o.DeformModel != "" {
		m.DeformModel = o.DeformModel
	}
	if len(o.Divisions) == 2 {
		m.VerticalDivisions, m.HorizontalDivisions = o.Divisions[0], o.Divisions[1]
	}
	if o.ProbeRadius != nil {
		m.ProbeRadius = *o.ProbeRadius
	}
}

// NumProbes returns the number of probes placed over all stages.
func (s *Scene) NumProbes() int {
	n := 0
	for _, st := range s.Stages {
		n += len(st.Probes)
	}
	return n
}

// Apply replays every stage on d and leaves d deformed. Frozen stages bank
// their result, so later stages deform the already warped mesh.
func (s *Scene) Apply(d *probedeform.Deformer) error {
	w, h := d.Grid().Size()
	sx, sy := 1.0, 1.0
	if s.Relative {
		sx, sy = w, h
	}
	for i, st := range s.Stages {
		for j, ps := range st.Probes {
			p, err := d.AddProbe(ps.At[0]*sx, ps.At[1]*sy)
			if err != nil {
				return fmt.Errorf("stages[%d].probes[%d]: %w", i, j, err)
			}
			if ps.Radius > 0 {
				r := ps.Radius
				if s.Relative {
					r *= math.Min(w, h)
				}
				if err := p.SetRadius(r); err != nil {
					return fmt.Errorf("stages[%d].probes[%d]: %w", i, j, err)
				}
			}
			if err := p.Move(ps.Move[0]*sx, ps.Move[1]*sy, ps.Rotate*math.Pi/180); err != nil {
				return fmt.Errorf("stages[%d].probes[%d]: %w", i, j, err)
			}
		}
		if st.Freeze {
			d.FreezeProbes()
		}
	}
	d.Deform()
	return nil
}
