package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if d.Quantize.Quantum != 50000 {
		t.Errorf("Quantum = %d, want 50000", d.Quantize.Quantum)
	}
	if !d.Align.StrictPairing {
		t.Error("strict pairing should default to true")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
pipeline:
  log_level: debug
  workers: 3
paths:
  db_root: /srv/db
  out_dir: /srv/out
services:
  synthesizer:
    url: http://localhost:9000
silence:
  categories: [sil, pau, br]
align:
  radius: 12
  excludes: [bad.lab]
`)
	c, err := Load(LoadOptions{File: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Pipeline.LogLvl != "debug" || c.Pipeline.Workers != 3 {
		t.Errorf("Pipeline = %+v", c.Pipeline)
	}
	if c.Paths.DBRoot != "/srv/db" || c.Paths.Outputs != "/srv/out" {
		t.Errorf("Paths = %+v", c.Paths)
	}
	if c.Services.Synthesizer.URL != "http://localhost:9000" {
		t.Errorf("synthesizer url = %q", c.Services.Synthesizer.URL)
	}
	if !reflect.DeepEqual(c.Silence.Categories, []string{"sil", "pau", "br"}) {
		t.Errorf("Categories = %v", c.Silence.Categories)
	}
	if c.Align.Radius != 12 || !reflect.DeepEqual(c.Align.Excludes, []string{"bad.lab"}) {
		t.Errorf("Align = %+v", c.Align)
	}
	// untouched keys keep their defaults
	if c.Quantize.Quantum != 50000 || !c.Align.StrictPairing {
		t.Errorf("defaults lost: %+v %+v", c.Quantize, c.Align)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "align:\n  radius: 12\npipeline:\n  workers: 2\n")

	t.Setenv("SVSLAB_ALIGN_RADIUS", "5")
	t.Setenv("SVSLAB_PATHS_OUT_DIR", "/tmp/env-out")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, Default())
	if err := fs.Parse([]string{"--workers=4", "--silence=sil,pau,br", "--strict-pairing=false"}); err != nil {
		t.Fatal(err)
	}

	c, err := Load(LoadOptions{File: path, Flags: fs})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Align.Radius != 5 {
		t.Errorf("Radius = %d, want env value 5", c.Align.Radius)
	}
	if c.Paths.Outputs != "/tmp/env-out" {
		t.Errorf("Outputs = %q", c.Paths.Outputs)
	}
	if c.Pipeline.Workers != 4 {
		t.Errorf("Workers = %d, want flag value 4", c.Pipeline.Workers)
	}
	if !reflect.DeepEqual(c.Silence.Categories, []string{"sil", "pau", "br"}) {
		t.Errorf("Categories = %v", c.Silence.Categories)
	}
	if c.Align.StrictPairing {
		t.Error("StrictPairing should be false from flag")
	}
	// unchanged flags do not clobber file values
	if c.Quantize.Quantum != 50000 {
		t.Errorf("Quantum = %d", c.Quantize.Quantum)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(LoadOptions{File: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("expected error for missing explicit file")
	}

	bad := writeFile(t, dir, "bad.yaml", "pipeline: [1, 2\n")
	if _, err := Load(LoadOptions{File: bad}); err == nil {
		t.Error("expected decode error")
	}

	invalid := writeFile(t, dir, "invalid.yaml", "quantize:\n  quantum: 0\npipeline:\n  workers: 0\n")
	if _, err := Load(LoadOptions{File: invalid}); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "paths:\n  db_root: ~/songs\n")
	c, err := Load(LoadOptions{File: path})
	if err != nil {
		t.Fatal(err)
	}
	if c.Paths.DBRoot != filepath.Join(home, "songs") {
		t.Errorf("DBRoot = %q", c.Paths.DBRoot)
	}
}
