package orchestrator

import (
	"fmt"
	"time"

	"github.com/maastricht-university/svs-labels/quantize"
)

// Output directories under paths.out_dir.
const (
	DirSynthMono = "sinsy_mono"
	DirSynthFull = "sinsy_full"
	DirReference = "mono_label"
	DirAligned   = "mono_dtw"
	DirReports   = "reports"
	RoundSuffix  = "_round"
)

const (
	StageGen   = "gen"
	StageRound = "round"
	StageAlign = "align"
)

type Status string

const (
	StatusOK           Status = "ok"
	StatusFailed       Status = "failed"
	StatusInconsistent Status = "inconsistent" // gaps after quantization
	StatusPoor         Status = "poor"         // alignment cost above threshold
	StatusSkipped      Status = "skipped"
)

// Pair is one utterance seen from both label sources.
type Pair struct {
	Name  string
	Synth string // synthesizer-side label file
	Ref   string // reference label file
}

// Item is the outcome of one utterance in one stage.
type Item struct {
	Name       string               `json:"name"`
	Source     string               `json:"source,omitempty"`
	Status     Status               `json:"status"`
	Segments   int                  `json:"segments,omitempty"`
	Cost       int                  `json:"cost"`
	Normalized float64              `json:"normalized_cost"`
	Violations []quantize.Violation `json:"violations,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type Report struct {
	Stage       string    `json:"stage"`
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Item    `json:"items"`
}

func (r *Report) Count(s Status) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Names returns the names of all items with status s.
func (r *Report) Names(s Status) []string {
	var out []string
	for _, it := range r.Items {
		if it.Status == s {
			out = append(out, it.Name)
		}
	}
	return out
}

// PairingError reports two label lists that do not describe the same
// utterances.
type PairingError struct {
	Index      int
	Synth, Ref string
	Reason     string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("pairing #%d (%q, %q): %s", e.Index, e.Synth, e.Ref, e.Reason)
}
