package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/svs-labels/config"
	"github.com/maastricht-university/svs-labels/orchestrator"
)

// Version is set at build time.
var Version = "dev"

type app struct {
	cfgFile string
	conf    *cfg.Root
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	cmd := &cobra.Command{
		Use:          "svs-labels",
		Short:        "Prepare time-aligned phoneme labels for singing voice synthesis",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := cfg.Load(cfg.LoadOptions{File: a.cfgFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			a.conf = loaded
			setupLogger(a.log, loaded.Pipeline.LogLvl)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (yaml)")
	cfg.RegisterFlags(cmd.PersistentFlags(), cfg.Default())

	cmd.AddCommand(newStageCmd(a, "gen", "Synthesize score labels and collect reference labels",
		func(ctx context.Context, p *orchestrator.Pipeline) error {
			_, err := p.Generate(ctx)
			return err
		}))
	cmd.AddCommand(newStageCmd(a, "round", "Quantize label boundaries and check reference contiguity",
		func(ctx context.Context, p *orchestrator.Pipeline) error {
			_, err := p.Round(ctx)
			return err
		}))
	cmd.AddCommand(newStageCmd(a, "align", "Copy reference timing onto synthesizer labels with DTW",
		func(ctx context.Context, p *orchestrator.Pipeline) error {
			_, err := p.Align(ctx)
			return err
		}))
	cmd.AddCommand(newStageCmd(a, "run", "Run gen, round and align",
		func(ctx context.Context, p *orchestrator.Pipeline) error {
			return p.Run(ctx)
		}))
	cmd.AddCommand(newManCmd(cmd))

	return cmd
}

func newStageCmd(a *app, use, short string, stage func(context.Context, *orchestrator.Pipeline) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := orchestrator.NewPipeline(a.conf, a.log)
			if err != nil {
				return err
			}
			a.log.WithField("stage", use).Debug("starting")
			if err := stage(cmd.Context(), p); err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			return nil
		},
	}
}

// setupLogger configures l for level, falling back to info.
func setupLogger(l *logrus.Logger, level string) {
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("level", level).Warn("unknown log level, using info")
		return
	}
	l.SetLevel(lvl)
}
