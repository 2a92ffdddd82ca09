package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phanxgames/probedeform"
	"github.com/phanxgames/probedeform/internal/config"
	"github.com/phanxgames/probedeform/internal/raster"
	"github.com/phanxgames/probedeform/internal/scene"
)

var wireColor = color.NRGBA{R: 0x30, G: 0xff, B: 0x60, A: 0xff}

func newRenderCommand(a *app) *cobra.Command {
	var (
		imagePath string
		maxSize   int
	)
	c := &cobra.Command{
		Use:   "render <scene.yaml>",
		Short: "Replay a scene and write the warped image",
		Long: `Render loads a scene script, places and moves its probes on the scene's
image and writes the deformed result.

Examples:
  probedeform render smile.yaml -o smile.png
  probedeform render smile.yaml --image other.jpg --scale 2 --wireframe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(args[0], imagePath, maxSize)
		},
	}

	f := c.Flags()
	f.StringVar(&imagePath, "image", "", "source image (overrides the scene's image)")
	f.IntVar(&maxSize, "max-size", 0, "shrink the source so neither side exceeds this many pixels")
	f.StringP("output", "o", "", "output image path; the extension selects the format")
	f.Float64("scale", 0, "output scale factor")
	f.String("background", "", "background colour, #RRGGBB or #RRGGBBAA")
	f.Bool("wireframe", false, "outline the deformed mesh")

	v := a.loader.Viper()
	_ = v.BindPFlag("render.output", f.Lookup("output"))
	_ = v.BindPFlag("render.scale", f.Lookup("scale"))
	_ = v.BindPFlag("render.background", f.Lookup("background"))
	_ = v.BindPFlag("render.wireframe", f.Lookup("wireframe"))
	return c
}

func (a *app) render(scenePath, imagePath string, maxSize int) error {
	sc, err := scene.Load(scenePath)
	if err != nil {
		return err
	}
	if imagePath == "" {
		imagePath = sc.Image
	}
	if imagePath == "" {
		return errors.New("render: scene has no image and --image is not set")
	}
	src, err := raster.Load(imagePath)
	if err != nil {
		return err
	}
	src = raster.Fit(src, maxSize)

	d, err := a.sceneDeformer(sc, src.Bounds(), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if err := sc.Apply(d); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	a.reportStatus(d)

	bg, err := config.ParseColor(a.cfg.Render.Background)
	if err != nil {
		return err
	}
	opts := raster.Options{Background: bg, Scale: a.cfg.Render.Scale}
	if a.cfg.Render.Wireframe {
		opts.Wireframe = wireColor
	}

	start := time.Now()
	out, st := raster.Warp(src, d, opts)
	if err := raster.Save(out, a.cfg.Render.Output); err != nil {
		return err
	}
	a.log.Info("rendered",
		zap.String("output", a.cfg.Render.Output),
		zap.Int("probes", d.NumProbes()),
		zap.Int("triangles", st.Triangles),
		zap.Int("skipped", st.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// sceneDeformer builds a deformer for an image of the given bounds, with the
// scene's mesh overrides applied on top of the configuration.
func (a *app) sceneDeformer(sc *scene.Scene, bounds image.Rectangle, reg prometheus.Registerer) (*probedeform.Deformer, error) {
	mesh := a.cfg.Mesh
	sc.ApplyOverrides(&mesh)
	cfg, err := mesh.Deformer(float64(bounds.Dx()), float64(bounds.Dy()))
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	cfg.Logger = a.log
	cfg.Metrics = probedeform.NewMetrics(reg)
	return probedeform.NewDeformer(cfg)
}

func (a *app) reportStatus(d *probedeform.Deformer) {
	st := d.Status()
	if !st.Fallback {
		return
	}
	a.log.Warn("weights fell back",
		zap.Stringer("requested", st.Requested),
		zap.Stringer("used", st.Used),
		zap.Error(st.Err),
	)
}
