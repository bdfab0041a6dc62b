package label

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPhoneme(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    string
	}{
		{"mono", "a", "a"},
		{"mono_sil", "sil", "sil"},
		{"full_context", "xx^sil-k+a=o@xx_xx/A:xx-xx", "k"},
		{"full_context_sil", "k^a-sil+xx=xx@1_1", "sil"},
		{"dash_without_plus", "a-b", "a-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment{Context: tt.context}.Phoneme()
			if got != tt.want {
				t.Errorf("Phoneme() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	in := "0 100 sil\n\n100 300 a\n  300 450 sil  \n"
	seq, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Sequence{{0, 100, "sil"}, {100, 300, "a"}, {300, 450, "sil"}}
	if len(seq) != len(want) {
		t.Fatalf("len = %d, want %d", len(seq), len(want))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("seq[%d] = %+v, want %+v", i, seq[i], want[i])
		}
	}
	if got := seq.String(); got != "0 100 sil\n100 300 a\n300 450 sil\n" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"missing_field", "0 100 sil\n100 a\n", 2},
		{"bad_start", "x 100 sil\n", 1},
		{"bad_end", "0 1e5 sil\n", 1},
		{"start_after_end", "0 100 sil\n\n300 200 a\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}

	_, err := Parse(strings.NewReader("300 200 a\n"))
	if !errors.Is(err, ErrStartAfterEnd) {
		t.Errorf("err = %v, want ErrStartAfterEnd", err)
	}
}

func TestLoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.lab")
	seq := Sequence{{0, 50000, "sil"}, {50000, 1200000, "xx^sil-a+k=i"}}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seq.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.String() != seq.String() {
		t.Errorf("Load() = %q, want %q", got.String(), seq.String())
	}

	if _, err := Load(filepath.Join(dir, "missing.lab")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) err = %v, want ErrNotExist", err)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	seq := Sequence{{0, 100, "a"}}
	c := seq.Clone()
	c[0].Start = 50
	if seq[0].Start != 0 {
		t.Error("Clone shares backing array with original")
	}
	if Sequence(nil).Clone() != nil {
		t.Error("Clone(nil) should be nil")
	}
}

func TestSpanAndDuration(t *testing.T) {
	seq := Sequence{{100, 200, "sil"}, {200, 50200, "a"}}
	s, e := seq.Span()
	if s != 100 || e != 50200 {
		t.Errorf("Span() = (%d, %d)", s, e)
	}
	if d := seq[1].Duration(); d != 5*time.Millisecond {
		t.Errorf("Duration() = %v, want 5ms", d)
	}
	if s, e := (Sequence{}).Span(); s != 0 || e != 0 {
		t.Errorf("empty Span() = (%d, %d)", s, e)
	}
}
