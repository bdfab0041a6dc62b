// Package vocab maps phoneme tokens to small integer codes so that label
// sequences from different sources can be compared symbol by symbol.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/maastricht-university/svs-labels/label"
)

// Unknown is the code of every token missing from the vocabulary.
const Unknown = -1

// DefaultReserved are the categories that always take the lowest codes.
var DefaultReserved = []string{"sil", "pau", "br"}

// Vocabulary is read-only after construction and safe for concurrent use.
type Vocabulary struct {
	codes  map[string]int
	tokens []string
}

// New assigns codes in first-occurrence order starting at 0.
func New(tokens ...string) *Vocabulary {
	v := &Vocabulary{codes: make(map[string]int, len(tokens))}
	for _, t := range tokens {
		v.add(t)
	}
	return v
}

func (v *Vocabulary) add(token string) {
	token = norm.NFC.String(token)
	if _, ok := v.codes[token]; ok {
		return
	}
	v.codes[token] = len(v.tokens)
	v.tokens = append(v.tokens, token)
}

// LoadTable builds a vocabulary from a Sinsy phoneme table, where each line
// is "<kana> <phoneme> [<phoneme> ...]". Reserved tokens come first.
func LoadTable(r io.Reader, reserved []string) (*Vocabulary, error) {
	v := New(reserved...)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 2 {
			return nil, fmt.Errorf("table line %d: no phonemes for %q", n, f[0])
		}
		for _, ph := range f[1:] {
			v.add(ph)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return v, nil
}

func LoadTableFile(path string, reserved []string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := LoadTable(f, reserved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (v *Vocabulary) Code(token string) int {
	if c, ok := v.codes[token]; ok {
		return c
	}
	if c, ok := v.codes[norm.NFC.String(token)]; ok {
		return c
	}
	return Unknown
}

// Token returns the token for code, or "" when code is out of range.
func (v *Vocabulary) Token(code int) string {
	if code < 0 || code >= len(v.tokens) {
		return ""
	}
	return v.tokens[code]
}

func (v *Vocabulary) Len() int { return len(v.tokens) }

// Encode returns one code per segment. Unseen phonemes become Unknown, so
// two unknown segments still compare equal during alignment.
func (v *Vocabulary) Encode(seq label.Sequence) []int {
	out := make([]int, len(seq))
	for i, seg := range seq {
		out[i] = v.Code(seg.Phoneme())
	}
	return out
}
