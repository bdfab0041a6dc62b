package align

import (
	"reflect"
	"strings"
	"testing"

	"github.com/maastricht-university/svs-labels/label"
	"github.com/maastricht-university/svs-labels/vocab"
)

func TestTransferLastWins(t *testing.T) {
	dst := label.Sequence{{Start: 0, End: 1, Context: "a"}, {Start: 1, End: 2, Context: "b"}}
	src := label.Sequence{
		{Start: 0, End: 100, Context: "x"},
		{Start: 100, End: 200, Context: "y"},
		{Start: 200, End: 300, Context: "z"},
	}
	got, err := Transfer(dst, src, Path{{0, 0}, {0, 1}, {1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	want := label.Sequence{{Start: 100, End: 200, Context: "a"}, {Start: 200, End: 300, Context: "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Transfer() = %v, want %v", got, want)
	}
	if dst[0].End != 1 {
		t.Error("Transfer modified dst")
	}
}

func TestTransferOutOfRange(t *testing.T) {
	dst := label.Sequence{{Context: "a"}}
	if _, err := Transfer(dst, dst, Path{{0, 1}}); err == nil {
		t.Error("expected error for J out of range")
	}
	if _, err := Transfer(dst, dst, Path{{-1, 0}}); err == nil {
		t.Error("expected error for negative I")
	}
}

func mustParse(t *testing.T, s string) label.Sequence {
	t.Helper()
	seq, err := label.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func TestAlign(t *testing.T) {
	v := vocab.New("sil", "pau", "a", "i")
	synth := mustParse(t, `0 50000 sil
50000 100000 a
100000 150000 i
150000 200000 sil
`)
	ref := mustParse(t, `0 1000000 sil
1000000 3000000 a
3000000 4500000 sil
`)

	got, err := NewAligner(v, 0).Align(synth, ref)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if got.Cost != 1 {
		t.Errorf("Cost = %d, want 1", got.Cost)
	}
	want := `0 1000000 sil
1000000 3000000 a
1000000 3000000 i
3000000 4500000 sil
`
	if got.Labels.String() != want {
		t.Errorf("Labels =\n%s\nwant\n%s", got.Labels, want)
	}

	refStart, refEnd := ref.Span()
	for _, seg := range got.Labels {
		if seg.Start < refStart || seg.End > refEnd {
			t.Errorf("segment %v outside reference span", seg)
		}
	}
	if synth[2].Start != 100000 {
		t.Error("Align modified the synthesizer sequence")
	}
}

func TestAlignEmpty(t *testing.T) {
	v := vocab.New("sil")
	if _, err := NewAligner(v, 0).Align(nil, label.Sequence{{Context: "sil"}}); err == nil {
		t.Error("expected error for empty synthesizer sequence")
	}
}
