package align

import (
	"fmt"

	"github.com/maastricht-university/svs-labels/label"
	"github.com/maastricht-university/svs-labels/vocab"
)

// Transfer returns a copy of dst where, for every step of path in order,
// dst[I] takes the start and end time of src[J]. When a path maps one I to
// several J the last step wins.
func Transfer(dst, src label.Sequence, path Path) (label.Sequence, error) {
	out := dst.Clone()
	for _, s := range path {
		if s.I < 0 || s.I >= len(out) || s.J < 0 || s.J >= len(src) {
			return nil, fmt.Errorf("align: step (%d,%d) outside %dx%d", s.I, s.J, len(out), len(src))
		}
		out[s.I].Start = src[s.J].Start
		out[s.I].End = src[s.J].End
	}
	return out, nil
}

type Aligner struct {
	vocab  *vocab.Vocabulary
	radius int
}

// NewAligner returns an aligner encoding with v. A non-positive radius
// aligns without a band.
func NewAligner(v *vocab.Vocabulary, radius int) *Aligner {
	return &Aligner{vocab: v, radius: radius}
}

type Alignment struct {
	Labels label.Sequence
	Result
}

// Align gives synth the timing of ref. A high cost is not an error; callers
// decide what to do with it.
func (a *Aligner) Align(synth, ref label.Sequence) (Alignment, error) {
	res, err := DTW(a.vocab.Encode(synth), a.vocab.Encode(ref), a.radius)
	if err != nil {
		return Alignment{}, err
	}
	labels, err := Transfer(synth, ref, res.Path)
	if err != nil {
		return Alignment{}, err
	}
	return Alignment{Labels: labels, Result: res}, nil
}
