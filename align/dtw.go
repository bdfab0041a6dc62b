// Package align computes a monotonic alignment between two encoded phoneme
// sequences with banded dynamic time warping and uses it to carry the
// timing of one label sequence over to the other.
package align

import (
	"errors"
	"fmt"
	"math"
)

var ErrEmptySequence = errors.New("align: empty sequence")

const unreachable = math.MaxInt

// Step is one cell (I in a, J in b) of an alignment path.
type Step struct {
	I int `json:"i"`
	J int `json:"j"`
}

type Path []Step

type Result struct {
	Cost int  `json:"cost"`
	Path Path `json:"-"`
}

// Normalized is the cost per path step, 0 for an empty path.
func (r Result) Normalized() float64 {
	if len(r.Path) == 0 {
		return 0
	}
	return float64(r.Cost) / float64(len(r.Path))
}

// Band returns the radius actually enforced for sequences of length m and n.
// A non-positive radius selects max(m, n), which leaves every cell reachable.
// The band is never narrower than |m-n|, otherwise (m-1, n-1) could not be
// reached.
func Band(m, n, radius int) int {
	if radius <= 0 {
		return max(m, n)
	}
	r := radius
	if d := m - n; d > r {
		r = d
	} else if -d > r {
		r = -d
	}
	return r
}

// costs holds the accumulated cost of the cells inside the band only: row i
// stores columns max(0, i-r) .. min(n-1, i+r), at most 2r+1 cells.
type costs struct {
	r, n int
	rows [][]int
}

func newCosts(m, n, r int) *costs {
	c := &costs{r: r, n: n, rows: make([][]int, m)}
	for i := range c.rows {
		lo, hi := c.span(i)
		row := make([]int, hi-lo+1)
		for k := range row {
			row[k] = unreachable
		}
		c.rows[i] = row
	}
	return c
}

func (c *costs) span(i int) (lo, hi int) {
	return max(0, i-c.r), min(c.n-1, i+c.r)
}

// at is unreachable for cells outside the band.
func (c *costs) at(i, j int) int {
	lo, hi := c.span(i)
	if j < lo || j > hi {
		return unreachable
	}
	return c.rows[i][j-lo]
}

func (c *costs) set(i, j, v int) {
	lo, _ := c.span(i)
	c.rows[i][j-lo] = v
}

// DTW aligns a and b. The local cost is 0 for equal codes and 1 otherwise,
// and only cells with |i-j| <= Band(len(a), len(b), radius) are visited.
// Time and memory are O(len(a) * min(len(b), 2r+1)).
//
// The path runs from (0,0) to (len(a)-1, len(b)-1). Among equal-cost
// predecessors the backtrace prefers the diagonal (i-1,j-1), then down
// (i-1,j), then right (i,j-1).
func DTW(a, b []int, radius int) (Result, error) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return Result{}, ErrEmptySequence
	}
	r := Band(m, n, radius)
	d := newCosts(m, n, r)

	for i := 0; i < m; i++ {
		lo, hi := d.span(i)
		for j := lo; j <= hi; j++ {
			c := 1
			if a[i] == b[j] {
				c = 0
			}
			if i == 0 && j == 0 {
				d.set(i, j, c)
				continue
			}
			best := unreachable
			if i > 0 && j > 0 {
				best = d.at(i-1, j-1)
			}
			if i > 0 {
				best = min(best, d.at(i-1, j))
			}
			if j > 0 {
				best = min(best, d.at(i, j-1))
			}
			if best != unreachable {
				d.set(i, j, c+best)
			}
		}
	}

	end := d.at(m-1, n-1)
	if end == unreachable {
		return Result{}, fmt.Errorf("align: end cell unreachable with radius %d", r)
	}
	return Result{Cost: end, Path: backtrace(d, m, n)}, nil
}

func backtrace(d *costs, m, n int) Path {
	i, j := m-1, n-1
	path := Path{{I: i, J: j}}
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag, down, right := d.at(i-1, j-1), d.at(i-1, j), d.at(i, j-1)
			switch {
			case diag <= down && diag <= right:
				i, j = i-1, j-1
			case down <= right:
				i--
			default:
				j--
			}
		}
		path = append(path, Step{I: i, J: j})
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}
