package cmd

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/probedeform"
)

const (
	metricFactor = "probedeform_factorization_duration_seconds"
	metricDeform = "probedeform_deform_duration_seconds"
)

type benchResult struct {
	WeightModel string        `yaml:"weight_model"`
	DeformModel string        `yaml:"deform_model"`
	Weights     time.Duration `yaml:"weights"`
	Factor      time.Duration `yaml:"factor"`
	Fallback    bool          `yaml:"fallback,omitempty"`
	Deforms     uint64        `yaml:"deforms"`
	DeformMean  time.Duration `yaml:"deform_mean"`
}

func newBenchCommand(a *app) *cobra.Command {
	var (
		format      string
		metricsFile string
	)
	c := &cobra.Command{
		Use:   "bench",
		Short: "Time weight computation and deformation for every model pair",
		Long: `Bench builds a square mesh, places probes on a ring and, for every weight
and deform model pair, times the weight computation and repeated deforms
while the probes orbit.

Examples:
  probedeform bench
  probedeform bench --probes 32 --size 1024 --divisions 80 --metrics-file bench.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatText && format != formatYAML {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatText, formatYAML)
			}
			reg := prometheus.NewRegistry()
			results, err := a.bench(reg)
			if err != nil {
				return err
			}
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			if format == formatYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(results); err != nil {
					return err
				}
				return enc.Close()
			}
			return writeBenchText(cmd.OutOrStdout(), results)
		},
	}

	f := c.Flags()
	f.StringVar(&format, "format", formatText, "output format (text, yaml)")
	f.StringVar(&metricsFile, "metrics-file", "", "write the collected Prometheus metrics to this file")
	f.Int("iterations", 0, "deforms per model pair")
	f.Int("probes", 0, "number of probes")
	f.Int("size", 0, "image side length in pixels")

	v := a.loader.Viper()
	_ = v.BindPFlag("bench.iterations", f.Lookup("iterations"))
	_ = v.BindPFlag("bench.probes", f.Lookup("probes"))
	_ = v.BindPFlag("bench.size", f.Lookup("size"))
	return c
}

func (a *app) bench(reg *prometheus.Registry) ([]benchResult, error) {
	var results []benchResult
	for wm := probedeform.WeightEuclidean; wm <= probedeform.WeightBiharmonic; wm++ {
		for dm := probedeform.DeformDCN; dm <= probedeform.DeformMLSSimilarity; dm++ {
			r, err := a.benchPair(reg, wm, dm)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
	}

	mfs, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for i := range results {
		r := &results[i]
		pair := r.WeightModel + "/" + r.DeformModel
		_, sum := histogram(mfs, metricFactor, pair)
		r.Factor = seconds(sum)
		n, sum := histogram(mfs, metricDeform, pair)
		r.Deforms = n
		if n > 0 {
			r.DeformMean = seconds(sum / float64(n))
		}
	}
	return results, nil
}

func (a *app) benchPair(reg prometheus.Registerer, wm probedeform.WeightModel, dm probedeform.DeformModel) (benchResult, error) {
	bc := a.cfg.Bench
	side := float64(bc.Size)
	pair := wm.String() + "/" + dm.String()

	cfg, err := a.cfg.Mesh.Deformer(side, side)
	if err != nil {
		return benchResult{}, err
	}
	cfg.WeightModel, cfg.DeformModel = wm, dm
	cfg.Logger = a.log.With(zap.String("pair", pair))
	cfg.Metrics = probedeform.NewMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"pair": pair}, reg))
	d, err := probedeform.NewDeformer(cfg)
	if err != nil {
		return benchResult{}, err
	}

	c, ring := side/2, side/3
	for k := range bc.Probes {
		phi := 2 * math.Pi * float64(k) / float64(bc.Probes)
		if _, err := d.AddProbe(c+ring*math.Cos(phi), c+ring*math.Sin(phi)); err != nil {
			return benchResult{}, err
		}
	}

	r := benchResult{WeightModel: wm.String(), DeformModel: dm.String()}
	start := time.Now()
	st := d.RecomputeWeights()
	r.Weights = time.Since(start)
	r.Fallback = st.Fallback

	step := side / 200
	for it := range bc.Iterations {
		phi := 2 * math.Pi * float64(it) / float64(bc.Iterations)
		for _, p := range d.Probes() {
			p.Move(step*math.Cos(phi), step*math.Sin(phi), 0.01)
		}
		d.Deform()
	}
	a.log.Debug("bench pair done", zap.String("pair", pair), zap.Duration("weights", r.Weights))
	return r, nil
}

// histogram sums sample count and sum over every series of the named
// histogram carrying pair="pair".
func histogram(mfs []*dto.MetricFamily, name, pair string) (uint64, float64) {
	var (
		n   uint64
		sum float64
	)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabel(m, "pair", pair) {
				continue
			}
			n += m.GetHistogram().GetSampleCount()
			sum += m.GetHistogram().GetSampleSum()
		}
	}
	return n, sum
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func writeBenchText(w io.Writer, results []benchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "weights\tdeform\tweight time\tfactor\tdeforms\tmean deform\tfallback")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%d\t%v\t%t\n",
			r.WeightModel, r.DeformModel,
			r.Weights.Round(time.Microsecond), r.Factor.Round(time.Microsecond),
			r.Deforms, r.DeformMean.Round(time.Microsecond), r.Fallback)
	}
	return tw.Flush()
}
