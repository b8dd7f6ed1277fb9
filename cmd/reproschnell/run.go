package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/codefionn/reproschnell/internal/attempt"
	"github.com/codefionn/reproschnell/internal/bugreport"
	"github.com/codefionn/reproschnell/internal/checkpoint"
	"github.com/codefionn/reproschnell/internal/config"
	"github.com/codefionn/reproschnell/internal/device"
	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
	"github.com/codefionn/reproschnell/internal/metrics"
	"github.com/codefionn/reproschnell/internal/provider"
	"github.com/codefionn/reproschnell/internal/results"
)

type runFlags struct {
	provider    string
	model       string
	baseURL     string
	preamble    string
	maxRounds   int
	observation string
	metricsAddr string
	noStore     bool
}

func runCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <bug-report>...",
		Short: "Run one reproduction attempt per bug report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(global)
			if err != nil {
				return err
			}
			defer cleanup()
			applyRunFlags(cfg, flags)
			return runReports(cmd.Context(), cfg, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.provider, "provider", "", "model provider (google, openai, anthropic, openai-compatible)")
	f.StringVar(&flags.model, "model", "", "model name")
	f.StringVar(&flags.baseURL, "base-url", "", "base URL of an OpenAI-compatible endpoint")
	f.StringVar(&flags.preamble, "preamble", "", "JSON file with the instruction preamble")
	f.IntVar(&flags.maxRounds, "max-rounds", 0, "maximum model rounds per attempt")
	f.StringVar(&flags.observation, "observation", "", "observation reported after each dry-run command")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")
	f.BoolVar(&flags.noStore, "no-store", false, "do not record outcomes in the results database")
	return cmd
}

func applyRunFlags(cfg *config.Config, flags *runFlags) {
	if flags.provider != "" {
		cfg.Provider = flags.provider
		if flags.model == "" {
			cfg.Model = ""
		}
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.preamble != "" {
		cfg.PreamblePath = flags.preamble
	}
	if flags.maxRounds > 0 {
		cfg.MaxRounds = flags.maxRounds
	}
}

func runReports(ctx context.Context, cfg *config.Config, flags *runFlags, paths []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	preamble, err := history.LoadPreamble(cfg.PreamblePath)
	if err != nil {
		return err
	}

	client, err := provider.NewClient(ctx, provider.Settings{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		RateLimit: cfg.RateLimitInterval(),
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if flags.metricsAddr != "" {
		srv := serveMetrics(flags.metricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var store *results.Store
	if !flags.noStore {
		store, err = results.Open(cfg.ResultsDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runner, err := attempt.NewRunner(attempt.Options{
		Client:              client,
		Executor:            &device.DryRunExecutor{Observation: flags.observation},
		Preamble:            preamble,
		Budget:              history.NewBudgeter(llm.NewEstimator(cfg.Tokenizer, client.GetModelName()), cfg.MaxContextTokens, cfg.CompactionThreshold, cfg.TurnTokenCeiling),
		Checkpointer:        checkpoint.NewWriter(cfg.CheckpointDir),
		Metrics:             m,
		Temperature:         cfg.Temperature,
		MaxTokens:           cfg.MaxTokens,
		RetryAttempts:       cfg.RetryAttempts,
		RetryBackoff:        cfg.RetryBackoff(),
		SummaryTimeout:      cfg.SummaryTimeout(),
		AttemptTimeout:      cfg.AttemptTimeout(),
		MaxRounds:           cfg.MaxRounds,
		MaxMalformedReplies: cfg.MaxMalformedReplies,
	})
	if err != nil {
		return err
	}

	var failed int
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		fmt.Printf("[%d/%d] %s\n", i+1, len(paths), path)

		report, err := bugreport.Read(path)
		if err != nil {
			logger.Error("Main: %v", err)
			fmt.Printf("  skipped: %v\n", err)
			failed++
			continue
		}

		out, err := runner.Run(ctx, report)
		if err != nil {
			logger.Error("Main: attempt for %s failed to start: %v", path, err)
			failed++
		}
		if store != nil {
			if err := store.Save(ctx, out.Record()); err != nil {
				logger.Error("Main: failed to record outcome: %v", err)
			}
		}
		printOutcome(out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bug reports could not be attempted", failed, len(paths))
	}
	return nil
}

func printOutcome(out *attempt.Outcome) {
	fmt.Printf("  status: %s (%s, %d model calls, %d commands)\n",
		out.Status, out.Duration.Round(time.Second), out.ModelCalls, out.CommandCount)
	if out.FailureReason != "" {
		fmt.Printf("  reason: %s\n", out.FailureReason)
	}
	if out.CheckpointPath != "" {
		fmt.Printf("  history: %s\n", out.CheckpointPath)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("Main: serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Main: metrics server stopped: %v", err)
		}
	}()
	return srv
}
