package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/maastricht-university/svs-labels/label"
)

// --- Synthesizer (/synthesize) ---
type SynthResp struct {
	Mono []string `json:"mono"`
	Full []string `json:"full"`
}

// Synthesize uploads a musical score and returns the mono and full-context
// label lines produced for it.
func (h *HTTP) Synthesize(ctx context.Context, url, scorePath string) (*SynthResp, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(scorePath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(scorePath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/synthesize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("synthesize %s: %s", resp.Status, string(body))
	}

	var out SynthResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("synthesize decode: %w", err)
	}
	return &out, nil
}

// Synthesizer binds the HTTP client to one service URL and decodes the
// returned label lines.
type Synthesizer struct {
	h   *HTTP
	url string
}

func NewSynthesizer(h *HTTP, url string) *Synthesizer {
	return &Synthesizer{h: h, url: url}
}

func (s *Synthesizer) Synthesize(ctx context.Context, scorePath string) (mono, full label.Sequence, err error) {
	resp, err := s.h.Synthesize(ctx, s.url, scorePath)
	if err != nil {
		return nil, nil, err
	}
	if mono, err = label.ParseLines(resp.Mono); err != nil {
		return nil, nil, fmt.Errorf("mono labels: %w", err)
	}
	if full, err = label.ParseLines(resp.Full); err != nil {
		return nil, nil, fmt.Errorf("full labels: %w", err)
	}
	return mono, full, nil
}
