// Package label holds the time-labeled phoneme sequence shared by every
// stage, and the line-oriented HTS label codec used to read and write it.
package label

import (
	"strings"
	"time"
)

// Unit is the duration of one label time unit (HTS labels use 100ns).
const Unit = 100 * time.Nanosecond

type Segment struct {
	Start   int64 // 100ns units
	End     int64 // 100ns units
	Context string
}

// Phoneme returns the phoneme identity of the segment. Full-context labels
// ("p1^p2-p3+p4=...") carry it between the first '-' and the next '+';
// mono labels are the phoneme itself.
func (s Segment) Phoneme() string {
	i := strings.IndexByte(s.Context, '-')
	if i < 0 {
		return s.Context
	}
	rest := s.Context[i+1:]
	j := strings.IndexByte(rest, '+')
	if j < 0 {
		return s.Context
	}
	return rest[:j]
}

func (s Segment) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * Unit
}

// Sequence is one utterance. Stages never mutate a sequence they were
// handed; they return a new one.
type Sequence []Segment

func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Span returns the start of the first and the end of the last segment.
func (s Sequence) Span() (start, end int64) {
	if len(s) == 0 {
		return 0, 0
	}
	return s[0].Start, s[len(s)-1].End
}

func (s Sequence) Contexts() []string {
	out := make([]string, len(s))
	for i, seg := range s {
		out[i] = seg.Context
	}
	return out
}
