package label

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrStartAfterEnd = errors.New("start time after end time")

// ParseError reports the line of a label file that could not be decoded.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads "start end context" lines. Blank lines are skipped.
func Parse(r io.Reader) (Sequence, error) {
	var seq Sequence
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		seg, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: n, Text: line, Err: err}
		}
		seq = append(seq, seg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return seq, nil
}

func parseLine(line string) (Segment, error) {
	f := strings.Fields(line)
	if len(f) != 3 {
		return Segment{}, fmt.Errorf("want 3 fields, got %d", len(f))
	}
	start, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return Segment{}, fmt.Errorf("start time: %w", err)
	}
	end, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return Segment{}, fmt.Errorf("end time: %w", err)
	}
	if start > end {
		return Segment{}, ErrStartAfterEnd
	}
	return Segment{Start: start, End: end, Context: f[2]}, nil
}

// ParseLines decodes label lines already split by the caller, e.g. from a
// JSON payload.
func ParseLines(lines []string) (Sequence, error) {
	return Parse(strings.NewReader(strings.Join(lines, "\n")))
}

func Load(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seq, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

func (s Sequence) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, seg := range s {
		m, err := fmt.Fprintf(bw, "%d %d %s\n", seg.Start, seg.End, seg.Context)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func (s Sequence) String() string {
	var b bytes.Buffer
	_, _ = s.WriteTo(&b)
	return b.String()
}
