package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/svs-labels/align"
	"github.com/maastricht-university/svs-labels/clients"
	cfg "github.com/maastricht-university/svs-labels/config"
	"github.com/maastricht-university/svs-labels/label"
	"github.com/maastricht-university/svs-labels/quantize"
	"github.com/maastricht-university/svs-labels/silence"
	"github.com/maastricht-university/svs-labels/vocab"
)

// Synthesizer turns a musical score into mono and full-context labels.
type Synthesizer interface {
	Synthesize(ctx context.Context, scorePath string) (mono, full label.Sequence, err error)
}

type Pipeline struct {
	cfg    *cfg.Root
	log    logrus.FieldLogger
	synth  Synthesizer
	vocab  *vocab.Vocabulary
	merger *silence.Merger
	quant  *quantize.Quantizer
}

type Option func(*Pipeline)

func WithSynthesizer(s Synthesizer) Option { return func(p *Pipeline) { p.synth = s } }

// WithVocabulary replaces the vocabulary otherwise loaded from paths.table.
func WithVocabulary(v *vocab.Vocabulary) Option { return func(p *Pipeline) { p.vocab = v } }

func NewPipeline(c *cfg.Root, log logrus.FieldLogger, opts ...Option) (*Pipeline, error) {
	merger, err := silence.NewMerger(c.Silence.Categories...)
	if err != nil {
		return nil, err
	}
	quant, err := quantize.New(c.Quantize.Quantum)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: c, log: log, merger: merger, quant: quant}
	if c.Services.Synthesizer.URL != "" {
		p.synth = clients.NewSynthesizer(clients.NewHTTP(c.Services.Synthesizer.Timeout), c.Services.Synthesizer.URL)
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Pipeline) out(parts ...string) string {
	return filepath.Join(append([]string{p.cfg.Paths.Outputs}, parts...)...)
}

// Run executes gen, round and align in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Generate(ctx); err != nil {
		return err
	}
	if _, err := p.Round(ctx); err != nil {
		return err
	}
	_, err := p.Align(ctx)
	return err
}

// Generate synthesizes labels for every score under paths.db_root, merges
// their silences, and copies the reference labels into the output tree.
func (p *Pipeline) Generate(ctx context.Context) (*Report, error) {
	monoDir, fullDir, refDir := p.out(DirSynthMono), p.out(DirSynthFull), p.out(DirReference)
	if err := mkDirs(monoDir, fullDir, refDir); err != nil {
		return nil, err
	}
	scores, err := listFiles(p.cfg.Paths.DBRoot, p.cfg.Labels.ScoreExt, p.cfg.Paths.Outputs)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	refs, err := listFiles(p.cfg.Paths.DBRoot, p.cfg.Labels.LabelExt, p.cfg.Paths.Outputs)
	if err != nil {
		return nil, fmt.Errorf("list reference labels: %w", err)
	}

	if p.synth == nil && len(scores) > 0 {
		p.log.WithField("scores", len(scores)).Warn("no synthesizer configured, skipping score synthesis")
		scores = nil
	}

	items := make([]Item, len(scores)+len(refs))
	for i, s := range scores {
		items[i] = Item{Name: utteranceName(s) + p.cfg.Labels.LabelExt, Source: s}
	}
	for i, r := range refs {
		items[len(scores)+i] = Item{Name: filepath.Base(r), Source: r}
	}
	forEach(ctx, len(scores), p.cfg.Pipeline.Workers, func(i int) {
		items[i] = p.synthesize(ctx, scores[i], monoDir, fullDir)
	})
	forEach(ctx, len(refs), p.cfg.Pipeline.Workers, func(i int) {
		items[len(scores)+i] = p.copyReference(refs[i], refDir)
	})
	return p.finish(ctx, StageGen, items)
}

func (p *Pipeline) synthesize(ctx context.Context, score, monoDir, fullDir string) Item {
	name := utteranceName(score) + p.cfg.Labels.LabelExt
	it := Item{Name: name, Source: score}
	mono, full, err := p.synth.Synthesize(ctx, score)
	if err != nil {
		return p.fail(StageGen, it, err)
	}
	mono, full = p.merger.Merge(mono), p.merger.Merge(full)
	if err := writeLabels(filepath.Join(monoDir, name), mono); err != nil {
		return p.fail(StageGen, it, err)
	}
	if err := writeLabels(filepath.Join(fullDir, name), full); err != nil {
		return p.fail(StageGen, it, err)
	}
	it.Status, it.Segments = StatusOK, len(mono)
	return it
}

func (p *Pipeline) copyReference(path, refDir string) Item {
	it := Item{Name: filepath.Base(path), Source: path}
	seq, err := label.Load(path)
	if err != nil {
		return p.fail(StageGen, it, err)
	}
	if err := writeLabels(filepath.Join(refDir, it.Name), seq); err != nil {
		return p.fail(StageGen, it, err)
	}
	it.Status, it.Segments = StatusOK, len(seq)
	return it
}

// Round quantizes the synthesizer and reference labels into "<dir>_round".
// Directories listed in quantize.contiguous are checked for gaps; offending
// files are still written but reported as inconsistent.
func (p *Pipeline) Round(ctx context.Context) (*Report, error) {
	checked := newNameSet(p.cfg.Quantize.Contiguous...)
	var items []Item
	for _, dir := range []string{DirSynthMono, DirSynthFull, DirReference} {
		src := p.out(dir)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			p.log.WithField("dir", src).Warn("nothing to round")
			continue
		}
		files, err := listFiles(src, p.cfg.Labels.LabelExt, "")
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", src, err)
		}
		dst := p.out(dir + RoundSuffix)
		if err := mkDirs(dst); err != nil {
			return nil, err
		}
		contiguous := checked.has(dir)
		batch := make([]Item, len(files))
		for i, f := range files {
			batch[i] = Item{Name: filepath.Base(f), Source: f}
		}
		forEach(ctx, len(files), p.cfg.Pipeline.Workers, func(i int) {
			batch[i] = p.round(files[i], dst, contiguous)
		})
		items = append(items, batch...)
	}
	return p.finish(ctx, StageRound, items)
}

func (p *Pipeline) round(path, dst string, contiguous bool) Item {
	it := Item{Name: filepath.Base(path), Source: path}
	seq, err := label.Load(path)
	if err != nil {
		return p.fail(StageRound, it, err)
	}

	var rounded label.Sequence
	it.Status = StatusOK
	if contiguous {
		var ce *quantize.ContiguityError
		rounded, err = p.quant.ApplyContiguous(path, seq)
		if errors.As(err, &ce) {
			it.Status, it.Violations, it.Error = StatusInconsistent, ce.Violations, ce.Error()
			for _, v := range ce.Violations {
				p.log.WithFields(logrus.Fields{
					"stage": StageRound,
					"file":  path,
					"index": v.Index,
					"end":   v.End,
					"next":  v.NextStart,
				}).Warn("boundary mismatch after quantization")
			}
		}
	} else {
		rounded = p.quant.Apply(seq)
	}

	if err := writeLabels(filepath.Join(dst, it.Name), rounded); err != nil {
		return p.fail(StageRound, it, err)
	}
	it.Segments = len(rounded)
	return it
}

// Align pairs the rounded synthesizer labels with the rounded reference
// labels and writes synthesizer labels carrying reference timing. Files
// listed in align.excludes or reported inconsistent by the last round stage
// are skipped.
func (p *Pipeline) Align(ctx context.Context) (*Report, error) {
	v, err := p.vocabulary()
	if err != nil {
		return nil, err
	}
	synthFiles, err := listFiles(p.out(DirSynthMono+RoundSuffix), p.cfg.Labels.LabelExt, "")
	if err != nil {
		return nil, fmt.Errorf("list synthesizer labels: %w", err)
	}
	refFiles, err := listFiles(p.out(DirReference+RoundSuffix), p.cfg.Labels.LabelExt, "")
	if err != nil {
		return nil, fmt.Errorf("list reference labels: %w", err)
	}
	pairs, err := pairFiles(synthFiles, refFiles, p.cfg.Align.StrictPairing)
	if err != nil {
		return nil, err
	}
	if len(synthFiles) != len(refFiles) {
		p.log.WithFields(logrus.Fields{"synth": len(synthFiles), "ref": len(refFiles)}).
			Warn("label lists differ in length, pairing by position")
	}

	excludes := newNameSet(p.cfg.Align.Excludes...)
	prev, err := p.LoadReport(StageRound)
	if err != nil {
		return nil, fmt.Errorf("read round report: %w", err)
	}
	if prev != nil {
		excludes.add(prev.Names(StatusInconsistent)...)
	}

	dst := p.out(DirAligned)
	if err := mkDirs(dst); err != nil {
		return nil, err
	}
	aligner := align.NewAligner(v, p.cfg.Align.Radius)
	items := make([]Item, len(pairs))
	for i, pr := range pairs {
		items[i] = Item{Name: pr.Name, Source: pr.Synth}
	}
	forEach(ctx, len(pairs), p.cfg.Pipeline.Workers, func(i int) {
		pr := pairs[i]
		if excludes.has(pr.Name) || excludes.has(filepath.Base(pr.Ref)) {
			p.log.WithField("file", pr.Name).Info("skip")
			items[i] = Item{Name: pr.Name, Source: pr.Synth, Status: StatusSkipped}
			return
		}
		items[i] = p.align(aligner, pr, dst)
	})
	return p.finish(ctx, StageAlign, items)
}

func (p *Pipeline) align(a *align.Aligner, pr Pair, dst string) Item {
	it := Item{Name: pr.Name, Source: pr.Synth}
	synth, err := label.Load(pr.Synth)
	if err != nil {
		return p.fail(StageAlign, it, err)
	}
	ref, err := label.Load(pr.Ref)
	if err != nil {
		return p.fail(StageAlign, it, err)
	}
	res, err := a.Align(synth, ref)
	if err != nil {
		return p.fail(StageAlign, it, err)
	}
	if err := writeLabels(filepath.Join(dst, pr.Name), res.Labels); err != nil {
		return p.fail(StageAlign, it, err)
	}

	it.Status, it.Segments = StatusOK, len(res.Labels)
	it.Cost, it.Normalized = res.Cost, res.Normalized()
	if limit := p.cfg.Align.MaxNormalizedCost; limit > 0 && it.Normalized > limit {
		it.Status = StatusPoor
	}
	p.log.WithFields(logrus.Fields{
		"file":       pr.Name,
		"cost":       res.Cost,
		"normalized": fmt.Sprintf("%.3f", it.Normalized),
		"status":     it.Status,
	}).Info("aligned")
	return it
}

func (p *Pipeline) vocabulary() (*vocab.Vocabulary, error) {
	if p.vocab != nil {
		return p.vocab, nil
	}
	v, err := vocab.LoadTableFile(p.cfg.Paths.Table, p.cfg.Vocab.Reserved)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	p.vocab = v
	return v, nil
}

func (p *Pipeline) fail(stage string, it Item, err error) Item {
	p.log.WithFields(logrus.Fields{"stage": stage, "file": it.Source}).WithError(err).Error("failed")
	it.Status, it.Error = StatusFailed, err.Error()
	return it
}

// finish marks never-started items as skipped, persists the stage report
// and logs a summary.
func (p *Pipeline) finish(ctx context.Context, stage string, items []Item) (*Report, error) {
	for i := range items {
		if items[i].Status == "" {
			items[i].Status = StatusSkipped
		}
	}
	r := &Report{Stage: stage, Items: items}
	if err := p.persist(r); err != nil {
		return r, fmt.Errorf("write %s report: %w", stage, err)
	}
	p.log.WithFields(logrus.Fields{
		"stage":        stage,
		"files":        humanize.Comma(int64(len(items))),
		"failed":       r.Count(StatusFailed),
		"inconsistent": r.Count(StatusInconsistent),
		"poor":         r.Count(StatusPoor),
		"skipped":      r.Count(StatusSkipped),
	}).Info("stage done")
	return r, ctx.Err()
}
