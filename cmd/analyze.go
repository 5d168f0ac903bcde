package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Mohammed-Akramuddin/agegate/audit"
	"github.com/Mohammed-Akramuddin/agegate/capture"
	"github.com/Mohammed-Akramuddin/agegate/domain/analysis"
	"github.com/Mohammed-Akramuddin/agegate/domain/detect"
	"github.com/Mohammed-Akramuddin/agegate/domain/policy"
	"github.com/Mohammed-Akramuddin/agegate/metrics"
	"github.com/Mohammed-Akramuddin/agegate/worker"
)

var analyzeOpts struct {
	Screen        bool
	ClassifierCmd string
	DetectorCmd   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image...]",
	Short: "Run the analysis pipeline over image files or a screen capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), args)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Screen, "screen", false, "Analyze a live screen capture instead of image files")
	analyzeCmd.Flags().StringVar(&analyzeOpts.ClassifierCmd, "classifier-cmd", "", "Classifier worker command (overrides config)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.DetectorCmd, "detector-cmd", "", "Detector worker command (overrides config)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context, args []string) error {
	if !analyzeOpts.Screen && len(args) == 0 {
		return errors.New("nothing to analyze: pass image paths or --screen")
	}
	if analyzeOpts.ClassifierCmd != "" {
		cfg.ClassifierCmd = analyzeOpts.ClassifierCmd
	}
	if analyzeOpts.DetectorCmd != "" {
		cfg.DetectorCmd = analyzeOpts.DetectorCmd
	}
	if cfg.ClassifierCmd == "" {
		return errors.New("no classifier configured: set classifier_cmd or --classifier-cmd")
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	classifier, err := worker.NewClassifier(cfg.ClassifierCmd, cfg.ClassifierArgs...)
	if err != nil {
		return fmt.Errorf("start classifier worker: %w", err)
	}
	defer classifier.Close()

	detector := detect.Absent()
	if cfg.DetectorCmd != "" {
		d, err := worker.NewDetector(cfg.DetectorCmd, cfg.DetectorArgs...)
		if err != nil {
			// Detector absence is non-fatal: fall back to full-frame analysis.
			logger.Warn("detector worker unavailable, analyzing full frames", "error", err)
		} else {
			defer d.Close()
			detector = d
		}
	}

	var auditor analysis.Auditor
	if cfg.PostgresDSN != "" {
		hist, err := audit.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect analysis history: %w", err)
		}
		defer hist.Close(context.Background())
		auditor = auditRecorder{hist}
	}

	controller := policy.NewController(cfg, st, newLogSink(), logger)
	if err := controller.Restore(ctx); err != nil {
		return err
	}

	analyzer := analysis.New(cfg, logger, detector, classifier, controller, m, auditor)

	if analyzeOpts.Screen {
		res, err := analyzer.Analyze(ctx, capture.NewScreenSource())
		if err != nil {
			return err
		}
		printResult("screen", res)
		return nil
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("analyzing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}
	for _, path := range args {
		src, err := capture.NewFileSource(path)
		if err != nil {
			return err
		}
		res, err := analyzer.Analyze(ctx, src)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		printResult(path, res)
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	return nil
}

func printResult(name string, res analysis.Result) {
	fmt.Printf("%s: verdict=%s probability=%.3f confidence=%.3f passes=%d policy=%s window_until=%s\n",
		name,
		res.Verdict.Category,
		res.Verdict.Result.Probability,
		res.Verdict.Result.Confidence,
		res.Verdict.Result.PassCount,
		res.PolicyState,
		res.AllowedUntil.Format("15:04:05"),
	)
	if res.PolicyErr != nil {
		fmt.Printf("%s: classification succeeded but protection could not be changed: %v\n", name, res.PolicyErr)
	}
}

// auditRecorder adapts audit.Store to the analyzer's Auditor interface.
type auditRecorder struct {
	store *audit.Store
}

func (a auditRecorder) Record(ctx context.Context, rec analysis.AuditRecord) error {
	return a.store.Insert(ctx, audit.Record{
		CycleID:       rec.CycleID,
		DecidedAt:     rec.DecidedAt,
		Probability:   rec.Probability,
		Confidence:    rec.Confidence,
		PassCount:     rec.PassCount,
		Verdict:       rec.Verdict,
		PolicyApplied: rec.PolicyApplied,
	})
}

// newLogSink returns a policy sink that records transitions in the log. The
// real protective mechanism lives outside this binary; hosts embed the
// pipeline with their own Sink.
func newLogSink() policy.Sink {
	return policy.SinkFuncs{
		Enable: func(context.Context) error {
			logger.Info("protective policy enabled")
			return nil
		},
		Disable: func(context.Context) error {
			logger.Info("protective policy disabled")
			return nil
		},
	}
}
