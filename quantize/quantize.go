// Package quantize snaps label boundaries to a fixed time quantum and checks
// that gap-free sequences stay contiguous afterwards.
package quantize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maastricht-university/svs-labels/label"
)

// DefaultQuantum is 5ms in 100ns label units.
const DefaultQuantum int64 = 50000

var ErrBadQuantum = errors.New("quantize: quantum must be positive")

type Quantizer struct {
	quantum int64
}

func New(quantum int64) (*Quantizer, error) {
	if quantum <= 0 {
		return nil, ErrBadQuantum
	}
	return &Quantizer{quantum: quantum}, nil
}

func (q *Quantizer) Quantum() int64 { return q.quantum }

// Round returns the multiple of the quantum nearest to t. Exact halves go to
// the even multiple.
func (q *Quantizer) Round(t int64) int64 {
	n, r := t/q.quantum, t%q.quantum
	if r < 0 {
		n--
		r += q.quantum
	}
	switch {
	case 2*r > q.quantum:
		n++
	case 2*r == q.quantum && n%2 != 0:
		n++
	}
	return n * q.quantum
}

// Apply rounds every start and end independently and returns a new sequence.
func (q *Quantizer) Apply(seq label.Sequence) label.Sequence {
	out := seq.Clone()
	for i := range out {
		out[i].Start = q.Round(out[i].Start)
		out[i].End = q.Round(out[i].End)
	}
	return out
}

// Violation is a pair of adjacent segments that do not touch.
type Violation struct {
	Index     int   `json:"index"`
	End       int64 `json:"end"`
	NextStart int64 `json:"next_start"`
}

func (v Violation) String() string {
	return fmt.Sprintf("segments %d/%d: end %d != start %d", v.Index, v.Index+1, v.End, v.NextStart)
}

// Check lists every i where seq[i].End != seq[i+1].Start.
func Check(seq label.Sequence) []Violation {
	var out []Violation
	for i := 0; i+1 < len(seq); i++ {
		if seq[i].End != seq[i+1].Start {
			out = append(out, Violation{Index: i, End: seq[i].End, NextStart: seq[i+1].Start})
		}
	}
	return out
}

type ContiguityError struct {
	File       string
	Violations []Violation
}

func (e *ContiguityError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: not contiguous after quantization: %s", e.File, strings.Join(parts, "; "))
}

// ApplyContiguous quantizes seq and returns a *ContiguityError alongside the
// result when the quantized sequence has gaps or overlaps.
func (q *Quantizer) ApplyContiguous(file string, seq label.Sequence) (label.Sequence, error) {
	out := q.Apply(seq)
	if v := Check(out); len(v) > 0 {
		return out, &ContiguityError{File: file, Violations: v}
	}
	return out, nil
}
