package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}
type Services struct {
	Synthesizer Service `yaml:"synthesizer"`
}
type Pipeline struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogLvl  string `yaml:"log_level"`
	Workers int    `yaml:"workers"`
}
type Paths struct {
	DBRoot  string `yaml:"db_root"` // scores and reference labels
	Outputs string `yaml:"out_dir"`
	Table   string `yaml:"table"` // Sinsy phoneme table
}
type Labels struct {
	ScoreExt string `yaml:"score_ext"`
	LabelExt string `yaml:"label_ext"`
}
type Quantize struct {
	Quantum int64 `yaml:"quantum"`
	// output directories whose labels must stay gap-free after rounding
	Contiguous []string `yaml:"contiguous"`
}
type Silence struct {
	Categories []string `yaml:"categories"` // most general first
}
type Vocab struct {
	Reserved []string `yaml:"reserved"`
}
type Align struct {
	Radius            int      `yaml:"radius"` // <= 0: no band
	StrictPairing     bool     `yaml:"strict_pairing"`
	Excludes          []string `yaml:"excludes"`
	MaxNormalizedCost float64  `yaml:"max_normalized_cost"` // 0 disables
}
type Root struct {
	Pipeline Pipeline `yaml:"pipeline"`
	Services Services `yaml:"services"`
	Paths    Paths    `yaml:"paths"`
	Labels   Labels   `yaml:"labels"`
	Quantize Quantize `yaml:"quantize"`
	Silence  Silence  `yaml:"silence"`
	Vocab    Vocab    `yaml:"vocab"`
	Align    Align    `yaml:"align"`
}

func Default() Root {
	return Root{
		Pipeline: Pipeline{Name: "svs-labels", LogLvl: "info", Workers: 1},
		Services: Services{Synthesizer: Service{Timeout: 60 * time.Second}},
		Paths: Paths{
			DBRoot:  "~/data/OFUTON_P_UTAGOE_DB",
			Outputs: "data",
			Table:   "dic/japanese.table",
		},
		Labels:   Labels{ScoreExt: ".musicxml", LabelExt: ".lab"},
		Quantize: Quantize{Quantum: 50000, Contiguous: []string{"mono_label"}},
		Silence:  Silence{Categories: []string{"sil", "pau"}},
		Vocab:    Vocab{Reserved: []string{"sil", "pau", "br"}},
		Align:    Align{StrictPairing: true},
	}
}

type LoadOptions struct {
	File  string         // explicit config file; search path otherwise
	Flags *pflag.FlagSet // flags registered with RegisterFlags
}

// Load starts from Default, decodes the first config file found, then applies
// SVSLAB_* environment variables and changed flags, in that order.
func Load(opts LoadOptions) (*Root, error) {
	c := Default()

	path, err := findFile(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := decodeFile(path, &c); err != nil {
			return nil, err
		}
	}
	if err := applyOverrides(&c, opts.Flags); err != nil {
		return nil, err
	}
	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"svs-labels.yaml",
	}
	for _, p := range guess {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func decodeFile(path string, c *Root) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var flagKeys = map[string]string{
	"pipeline.log_level":        "log-level",
	"pipeline.workers":          "workers",
	"paths.db_root":             "db-root",
	"paths.out_dir":             "out-dir",
	"paths.table":               "table",
	"services.synthesizer.url":  "synthesizer-url",
	"quantize.quantum":          "quantum",
	"silence.categories":        "silence",
	"align.radius":              "radius",
	"align.strict_pairing":      "strict-pairing",
	"align.excludes":            "exclude",
	"align.max_normalized_cost": "max-cost",
}

func RegisterFlags(fs *pflag.FlagSet, d Root) {
	fs.String("log-level", d.Pipeline.LogLvl, "Log level (debug|info|warn|error)")
	fs.Int("workers", d.Pipeline.Workers, "Utterances processed concurrently")
	fs.String("db-root", d.Paths.DBRoot, "Directory holding scores and reference labels")
	fs.String("out-dir", d.Paths.Outputs, "Output root")
	fs.String("table", d.Paths.Table, "Sinsy phoneme table used to build the vocabulary")
	fs.String("synthesizer-url", d.Services.Synthesizer.URL, "Base URL of the label synthesizer service")
	fs.Int64("quantum", d.Quantize.Quantum, "Boundary quantum in 100ns units")
	fs.StringSlice("silence", d.Silence.Categories, "Silence categories, most general first")
	fs.Int("radius", d.Align.Radius, "DTW band radius (<= 0 disables the band)")
	fs.Bool("strict-pairing", d.Align.StrictPairing, "Require matching basenames when pairing label files")
	fs.StringSlice("exclude", d.Align.Excludes, "Label file names skipped by the align stage")
	fs.Float64("max-cost", d.Align.MaxNormalizedCost, "Flag alignments above this cost per step (0 disables)")
}

func applyOverrides(c *Root, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix("SVSLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	set := func(key string, apply func()) {
		if v.IsSet(key) {
			apply()
		}
	}
	set("pipeline.log_level", func() { c.Pipeline.LogLvl = v.GetString("pipeline.log_level") })
	set("pipeline.workers", func() { c.Pipeline.Workers = v.GetInt("pipeline.workers") })
	set("paths.db_root", func() { c.Paths.DBRoot = v.GetString("paths.db_root") })
	set("paths.out_dir", func() { c.Paths.Outputs = v.GetString("paths.out_dir") })
	set("paths.table", func() { c.Paths.Table = v.GetString("paths.table") })
	set("services.synthesizer.url", func() { c.Services.Synthesizer.URL = v.GetString("services.synthesizer.url") })
	set("quantize.quantum", func() { c.Quantize.Quantum = v.GetInt64("quantize.quantum") })
	set("silence.categories", func() { c.Silence.Categories = v.GetStringSlice("silence.categories") })
	set("align.radius", func() { c.Align.Radius = v.GetInt("align.radius") })
	set("align.strict_pairing", func() { c.Align.StrictPairing = v.GetBool("align.strict_pairing") })
	set("align.excludes", func() { c.Align.Excludes = v.GetStringSlice("align.excludes") })
	set("align.max_normalized_cost", func() { c.Align.MaxNormalizedCost = v.GetFloat64("align.max_normalized_cost") })
	return nil
}

func (c *Root) expandPaths() error {
	for _, p := range []*string{&c.Paths.DBRoot, &c.Paths.Outputs, &c.Paths.Table} {
		exp, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = exp
	}
	return nil
}

func (c *Root) Validate() error {
	var errs []error
	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers))
	}
	if c.Paths.Outputs == "" {
		errs = append(errs, errors.New("paths.out_dir is empty"))
	}
	if c.Quantize.Quantum <= 0 {
		errs = append(errs, fmt.Errorf("quantize.quantum must be positive, got %d", c.Quantize.Quantum))
	}
	if len(c.Silence.Categories) == 0 {
		errs = append(errs, errors.New("silence.categories is empty"))
	}
	if c.Align.MaxNormalizedCost < 0 {
		errs = append(errs, fmt.Errorf("align.max_normalized_cost must be >= 0, got %g", c.Align.MaxNormalizedCost))
	}
	if c.Labels.LabelExt == "" || c.Labels.ScoreExt == "" {
		errs = append(errs, errors.New("labels.score_ext and labels.label_ext are required"))
	}
	return errors.Join(errs...)
}
