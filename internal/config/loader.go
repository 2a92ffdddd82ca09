package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "probedeform"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PROBEDEFORM"
)

// Loader handles loading configuration from files, environment variables and
// bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader backed by v, or by a fresh viper instance if v
// is nil.
func NewLoader(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// Viper returns the underlying viper instance, for binding flags.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads configuration from the first probedeform.{yaml,json,toml} found
// in the search paths, or from configFile if it is set. A missing default
// file is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "probedeform"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("mesh.vertical_divisions", d.Mesh.VerticalDivisions)
	l.v.SetDefault("mesh.horizontal_divisions", d.Mesh.HorizontalDivisions)
	l.v.SetDefault("mesh.weight_model", d.Mesh.WeightModel)
	l.v.SetDefault("mesh.deform_model", d.Mesh.DeformModel)
	l.v.SetDefault("mesh.probe_radius", d.Mesh.ProbeRadius)
	l.v.SetDefault("mesh.size_multiplier", d.Mesh.SizeMultiplier)
	l.v.SetDefault("mesh.constraint_weight", d.Mesh.ConstraintWeight)
	l.v.SetDefault("mesh.euclidean_floor", d.Mesh.EuclideanFloor)
	l.v.SetDefault("mesh.mls_alpha", d.Mesh.MLSAlpha)

	l.v.SetDefault("render.output", d.Render.Output)
	l.v.SetDefault("render.background", d.Render.Background)
	l.v.SetDefault("render.scale", d.Render.Scale)
	l.v.SetDefault("render.wireframe", d.Render.Wireframe)

	l.v.SetDefault("bench.iterations", d.Bench.Iterations)
	l.v.SetDefault("bench.probes", d.Bench.Probes)
	l.v.SetDefault("bench.size", d.Bench.Size)
}
