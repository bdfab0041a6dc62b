package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// listFiles returns every file below root with extension ext, sorted. The
// directory skip (usually the output root) is not descended into.
func listFiles(root, ext, skip string) ([]string, error) {
	var skipAbs string
	if skip != "" {
		if a, err := filepath.Abs(skip); err == nil {
			skipAbs = a
		}
	}
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipAbs != "" && path != root {
				if a, err := filepath.Abs(path); err == nil && a == skipAbs {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func utteranceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pairFiles pairs two sorted lists by position. In strict mode both lists
// must have the same length and matching basenames.
func pairFiles(synth, ref []string, strict bool) ([]Pair, error) {
	n := min(len(synth), len(ref))
	if strict && len(synth) != len(ref) {
		e := &PairingError{Index: n, Reason: fmt.Sprintf("%d synthesizer files vs %d reference files", len(synth), len(ref))}
		if n < len(synth) {
			e.Synth = synth[n]
		}
		if n < len(ref) {
			e.Ref = ref[n]
		}
		return nil, e
	}
	out := make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		sn, rn := utteranceName(synth[i]), utteranceName(ref[i])
		if strict && sn != rn {
			return nil, &PairingError{Index: i, Synth: synth[i], Ref: ref[i], Reason: "utterance names differ"}
		}
		out = append(out, Pair{Name: filepath.Base(synth[i]), Synth: synth[i], Ref: ref[i]})
	}
	return out, nil
}

// nameSet matches file names with or without their extension.
type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := nameSet{}
	s.add(names...)
	return s
}

func (s nameSet) add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
		s[utteranceName(n)] = struct{}{}
	}
}

func (s nameSet) has(name string) bool {
	if _, ok := s[name]; ok {
		return true
	}
	_, ok := s[utteranceName(name)]
	return ok
}

// forEach runs body for 0..n-1 on at most workers goroutines. Items not yet
// started when ctx is done are never run.
func forEach(ctx context.Context, n, workers int, body func(i int)) {
	p := pool.New().WithMaxGoroutines(max(1, workers))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		p.Go(func() { body(i) })
	}
	p.Wait()
}
