package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/probedeform/internal/raster"
	"github.com/phanxgames/probedeform/internal/scene"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

type inspectReport struct {
	Width       float64        `yaml:"width"`
	Height      float64        `yaml:"height"`
	Divisions   [2]int         `yaml:"divisions,flow"`
	WeightModel string         `yaml:"weight_model"`
	DeformModel string         `yaml:"deform_model"`
	UsedModel   string         `yaml:"used_model"`
	Fallback    string         `yaml:"fallback,omitempty"`
	Probes      []probeReport  `yaml:"probes"`
	Vertices    []vertexReport `yaml:"vertices,omitempty"`
}

type probeReport struct {
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Theta     float64 `yaml:"theta"`
	Radius    float64 `yaml:"radius"`
	Closest   int     `yaml:"closest"`
	WeightSum float64 `yaml:"weight_sum"`
}

type vertexReport struct {
	Index    int        `yaml:"index"`
	Rest     [2]float64 `yaml:"rest,flow"`
	Deformed [2]float64 `yaml:"deformed,flow"`
	Weights  []float64  `yaml:"weights,flow"`
}

func newInspectCommand(a *app) *cobra.Command {
	var (
		format   string
		size     string
		vertices []int
	)
	c := &cobra.Command{
		Use:   "inspect <scene.yaml>",
		Short: "Print probe weights and vertex positions for a scene",
		Long: `Inspect replays a scene without rasterizing and reports the weight
status, each probe, and optionally selected vertices with their weights.

Examples:
  probedeform inspect smile.yaml
  probedeform inspect smile.yaml --size 400x300 --vertex 0 --vertex 12 --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatYAML {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatText, formatYAML)
			}
			rep, err := a.inspect(args[0], size, vertices)
			if err != nil {
				return err
			}
			if format == formatYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(rep); err != nil {
					return err
				}
				return enc.Close()
			}
			return writeInspectText(cmd.OutOrStdout(), rep)
		},
	}
	f := c.Flags()
	f.StringVar(&format, "format", formatText, "output format (text, yaml)")
	f.StringVar(&size, "size", "", "image size as WxH instead of reading the scene's image")
	f.IntSliceVar(&vertices, "vertex", nil, "vertex indices to report (repeatable)")
	return c
}

func (a *app) inspect(scenePath, size string, vertices []int) (*inspectReport, error) {
	sc, err := scene.Load(scenePath)
	if err != nil {
		return nil, err
	}
	bounds, err := sceneBounds(sc, size)
	if err != nil {
		return nil, err
	}
	d, err := a.sceneDeformer(sc, bounds, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	if err := sc.Apply(d); err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	n := d.Grid().NumVertices()
	if d.NumProbes() > 0 && d.Probe(0).Weights().Len() != n {
		d.RecomputeWeights()
	}
	a.reportStatus(d)

	w, h := d.Grid().Size()
	st := d.Status()
	rep := &inspectReport{
		Width:       w,
		Height:      h,
		Divisions:   [2]int{d.Grid().VerticalDivisions(), d.Grid().HorizontalDivisions()},
		WeightModel: d.WeightModel().String(),
		DeformModel: d.DeformModel().String(),
		UsedModel:   st.Used.String(),
	}
	if st.Fallback && st.Err != nil {
		rep.Fallback = st.Err.Error()
	}
	for _, p := range d.Probes() {
		x, y, theta := p.Pose()
		rep.Probes = append(rep.Probes, probeReport{
			X: x, Y: y, Theta: theta,
			Radius:    p.EffectiveRadius(),
			Closest:   p.ClosestPt(),
			WeightSum: p.Weights().Sum(),
		})
	}
	for _, i := range vertices {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("vertex %d out of range [0, %d)", i, n)
		}
		rest, cur := d.RestVertices()[i], d.Vertices()[i]
		vr := vertexReport{
			Index:    i,
			Rest:     [2]float64{rest.X, rest.Y},
			Deformed: [2]float64{cur.X, cur.Y},
		}
		for _, p := range d.Probes() {
			vr.Weights = append(vr.Weights, p.Weights().At(i))
		}
		rep.Vertices = append(rep.Vertices, vr)
	}
	return rep, nil
}

// sceneBounds returns the image rectangle for a scene, parsing size as WxH
// when it is set and decoding the scene image otherwise.
func sceneBounds(sc *scene.Scene, size string) (image.Rectangle, error) {
	if size != "" {
		var w, h int
		if _, err := fmt.Sscanf(strings.ToLower(size), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
			return image.Rectangle{}, fmt.Errorf("invalid --size %q, want WxH", size)
		}
		return image.Rect(0, 0, w, h), nil
	}
	if sc.Image == "" {
		return image.Rectangle{}, errors.New("scene has no image; pass --size")
	}
	img, err := raster.Load(sc.Image)
	if err != nil {
		return image.Rectangle{}, err
	}
	return img.Bounds(), nil
}

func writeInspectText(w io.Writer, rep *inspectReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "image\t%gx%g\n", rep.Width, rep.Height)
	fmt.Fprintf(tw, "divisions\t%dx%d\n", rep.Divisions[0], rep.Divisions[1])
	fmt.Fprintf(tw, "models\t%s / %s\n", rep.WeightModel, rep.DeformModel)
	fmt.Fprintf(tw, "weights\t%s\n", rep.UsedModel)
	if rep.Fallback != "" {
		fmt.Fprintf(tw, "fallback\t%s\n", rep.Fallback)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "probe\tx\ty\ttheta\tradius\tclosest\tweight sum")
	for i, p := range rep.Probes {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.4f\t%.3f\t%d\t%.4f\n",
			i, p.X, p.Y, p.Theta, p.Radius, p.Closest, p.WeightSum)
	}
	if len(rep.Vertices) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "vertex\trest\tdeformed\tweights")
		for _, v := range rep.Vertices {
			ws := make([]string, len(v.Weights))
			for k, x := range v.Weights {
				ws[k] = fmt.Sprintf("%.4f", x)
			}
			fmt.Fprintf(tw, "%d\t(%.3f, %.3f)\t(%.3f, %.3f)\t%s\n",
				v.Index, v.Rest[0], v.Rest[1], v.Deformed[0], v.Deformed[1], strings.Join(ws, " "))
		}
	}
	return tw.Flush()
}
