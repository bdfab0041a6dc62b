// Package silence merges runs of silence segments that a label synthesizer
// splits apart (e.g. a "pau" next to a boundary "sil").
package silence

import (
	"errors"
	"fmt"

	"github.com/maastricht-university/svs-labels/label"
)

// DefaultCategories lists the silence categories, most general first.
var DefaultCategories = []string{"sil", "pau"}

var ErrNoCategories = errors.New("silence: no categories")

type Merger struct {
	categories []string
	rank       map[string]int
}

// NewMerger builds a merger whose silence set is categories. The order is
// also the precedence used to pick the context of a merged run.
func NewMerger(categories ...string) (*Merger, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	m := &Merger{
		categories: append([]string(nil), categories...),
		rank:       make(map[string]int, len(categories)),
	}
	for i, c := range categories {
		if _, dup := m.rank[c]; dup {
			return nil, fmt.Errorf("silence: duplicate category %q", c)
		}
		m.rank[c] = i
	}
	return m, nil
}

func (m *Merger) Categories() []string {
	return append([]string(nil), m.categories...)
}

func (m *Merger) IsSilence(seg label.Segment) bool {
	_, ok := m.rank[seg.Phoneme()]
	return ok
}

// Merge replaces every run of two or more consecutive silence segments with a
// single segment covering the run. The input is not modified.
func (m *Merger) Merge(seq label.Sequence) label.Sequence {
	out := make(label.Sequence, 0, len(seq))
	for i := 0; i < len(seq); {
		if !m.IsSilence(seq[i]) {
			out = append(out, seq[i])
			i++
			continue
		}
		j := i + 1
		best := i
		for j < len(seq) && m.IsSilence(seq[j]) {
			if m.rank[seq[j].Phoneme()] < m.rank[seq[best].Phoneme()] {
				best = j
			}
			j++
		}
		out = append(out, label.Segment{
			Start:   seq[i].Start,
			End:     seq[j-1].End,
			Context: seq[best].Context,
		})
		i = j
	}
	return out
}
