package probedeform_test

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/phanxgames/probedeform"
)

const bddTolerance = 1e-9

// deformWorld is the per-scenario state.
type deformWorld struct {
	d *probedeform.Deformer
}

func (w *deformWorld) aGrid(vdiv, hdiv int, width, height float64, weights, deform string) error {
	wm, err := probedeform.ParseWeightModel(weights)
	if err != nil {
		return err
	}
	dm, err := probedeform.ParseDeformModel(deform)
	if err != nil {
		return err
	}
	cfg := probedeform.DefaultConfig(width, height)
	cfg.VerticalDivisions, cfg.HorizontalDivisions = vdiv, hdiv
	cfg.WeightModel, cfg.DeformModel = wm, dm
	w.d, err = probedeform.NewDeformer(cfg)
	return err
}

func (w *deformWorld) aProbeAt(x, y float64) error {
	_, err := w.d.AddProbe(x, y)
	return err
}

func (w *deformWorld) aProbeWithRadius(x, y, r float64) error {
	p, err := w.d.AddProbe(x, y)
	if err != nil {
		return err
	}
	return p.SetRadius(r)
}

func (w *deformWorld) probe(n int) (*probedeform.Probe, error) {
	p := w.d.Probe(n - 1)
	if p == nil {
		return nil, fmt.Errorf("no probe %d", n)
	}
	return p, nil
}

func (w *deformWorld) probeRotated(n int, degrees float64) error {
	p, err := w.probe(n)
	if err != nil {
		return err
	}
	p.Move(0, 0, degrees*math.Pi/180)
	return nil
}

func (w *deformWorld) probeMoved(n int, dx, dy float64) error {
	p, err := w.probe(n)
	if err != nil {
		return err
	}
	p.Move(dx, dy, 0)
	return nil
}

func (w *deformWorld) theMeshIsDeformed() error {
	w.d.Deform()
	return nil
}

func (w *deformWorld) theGridIsRedivided(vdiv, hdiv int) error {
	return w.d.SetDivisions(vdiv, hdiv)
}

func (w *deformWorld) vertexIsAt(row, col int, x, y float64) error {
	v := w.d.Vertices()[w.d.Grid().Index(row, col)]
	if math.Abs(v.X-x) > bddTolerance || math.Abs(v.Y-y) > bddTolerance {
		return fmt.Errorf("vertex (%d, %d) at (%g, %g), want (%g, %g)", row, col, v.X, v.Y, x, y)
	}
	return nil
}

func (w *deformWorld) everyVertexKeepsDistance(x, y float64) error {
	c := probedeform.Vec2{X: x, Y: y}
	for i, rest := range w.d.RestVertices() {
		got := w.d.Vertices()[i].Sub(c).Len()
		if want := rest.Sub(c).Len(); math.Abs(got-want) > bddTolerance {
			return fmt.Errorf("vertex %d at distance %g, want %g", i, got, want)
		}
	}
	return nil
}

func (w *deformWorld) everyVertexIsAt(x, y float64) error {
	c := probedeform.Vec2{X: x, Y: y}
	for i, v := range w.d.Vertices() {
		if v.Sub(c).Len() > bddTolerance {
			return fmt.Errorf("vertex %d at (%g, %g), want (%g, %g)", i, v.X, v.Y, x, y)
		}
	}
	return nil
}

func (w *deformWorld) weightsFellBackTo(model string) error {
	st := w.d.Status()
	if !st.Fallback {
		return fmt.Errorf("no fallback recorded")
	}
	if st.Used.String() != model {
		return fmt.Errorf("fell back to %s, want %s", st.Used, model)
	}
	return nil
}

func (w *deformWorld) everyProbeHasWeights(n int) error {
	for i, p := range w.d.Probes() {
		if got := p.Weights().Len(); got != n {
			return fmt.Errorf("probe %d has %d weights, want %d", i+1, got, n)
		}
	}
	return nil
}

// InitializeScenario registers the deformation steps with a fresh world.
func InitializeScenario(sc *godog.ScenarioContext) {
	w := &deformWorld{}

	const num = `(-?\d+(?:\.\d+)?)`
	sc.Step(`^a (\d+)x(\d+) grid over a (\d+)x(\d+) image using "([^"]*)" weights and "([^"]*)" deformation$`, w.aGrid)
	sc.Step(`^a probe at \(`+num+`, `+num+`\)$`, w.aProbeAt)
	sc.Step(`^a probe at \(`+num+`, `+num+`\) with radius `+num+`$`, w.aProbeWithRadius)
	sc.Step(`^probe (\d+) is rotated by `+num+` degrees$`, w.probeRotated)
	sc.Step(`^probe (\d+) is moved by \(`+num+`, `+num+`\)$`, w.probeMoved)
	sc.Step(`^the mesh is deformed$`, w.theMeshIsDeformed)
	sc.Step(`^the grid is re-divided into (\d+)x(\d+)$`, w.theGridIsRedivided)
	sc.Step(`^vertex \((\d+), (\d+)\) is at \(`+num+`, `+num+`\)$`, w.vertexIsAt)
	sc.Step(`^every vertex keeps its distance to \(`+num+`, `+num+`\)$`, w.everyVertexKeepsDistance)
	sc.Step(`^every vertex is at \(`+num+`, `+num+`\)$`, w.everyVertexIsAt)
	sc.Step(`^the weights fell back to "([^"]*)"$`, w.weightsFellBackTo)
	sc.Step(`^every probe has (\d+) weights$`, w.everyProbeHasWeights)
}

// TestFeatures runs the Gherkin scenarios under features/.
func TestFeatures(t *testing.T) {
	entries, err := os.ReadDir("features")
	if err != nil {
		t.Fatalf("failed to read features directory: %v", err)
	}

	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "progress"
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".feature") {
			continue
		}
		featurePath := filepath.Join("features", e.Name())
		t.Run(e.Name(), func(t *testing.T) {
			suite := godog.TestSuite{
				ScenarioInitializer: InitializeScenario,
				Options: &godog.Options{
					Format:   format,
					Paths:    []string{featurePath},
					Strict:   true,
					TestingT: t,
				},
			}
			if suite.Run() != 0 {
				t.Fatalf("non-zero status returned for %s", featurePath)
			}
		})
	}
}
