package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/nemanja-m/memr/internal/output"
	"github.com/nemanja-m/memr/internal/runner"
	"github.com/nemanja-m/memr/internal/shared/config"
	"github.com/nemanja-m/memr/internal/shared/logging"
	"github.com/nemanja-m/memr/pkg/jobs"
	"github.com/nemanja-m/memr/pkg/local"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var inputs, params stringList

	configPath := flag.String("config", "", "path to config file")
	jobName := flag.String("job", "", fmt.Sprintf("job to run, one of %v", jobs.List()))
	flag.Var(&inputs, "input", "input files glob pattern (repeatable)")
	flag.Var(&params, "param", "job parameter as key=value (repeatable)")
	outputPath := flag.String("output", "", "output path, stdout when empty")
	format := flag.String("format", "", "output format: tsv or sqlite")
	mode := flag.String("mode", "", "execution mode: sequential or parallel")
	workers := flag.Int("workers", 0, "number of parallel workers, 0 uses all CPUs")
	flag.Parse()

	cfg, err := config.LoadLocal(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "job":
			cfg.Job.Name = *jobName
		case "input":
			cfg.Input.Paths = inputs
		case "output":
			cfg.Output.Path = *outputPath
		case "format":
			cfg.Output.Format = *format
		case "mode":
			cfg.Engine.Mode = *mode
		case "workers":
			cfg.Engine.Workers = *workers
		}
	})
	if len(params) > 0 {
		if cfg.Job.Params == nil {
			cfg.Job.Params = make(map[string]string)
		}
		for _, p := range params {
			key, value, ok := strings.Cut(p, "=")
			if !ok || key == "" {
				slog.Error("Invalid job parameter, expected key=value", "param", p)
				os.Exit(2)
			}
			cfg.Job.Params[key] = value
		}
	}

	// Logs go to stderr so results can be piped from stdout.
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	if cfg.Job.Name == "" {
		logger.Fatal("Job must be specified", "available", jobs.List())
	}
	if len(cfg.Input.Paths) == 0 {
		logger.Fatal("At least one input pattern must be specified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := runJob(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Job failed", "job", cfg.Job.Name, "error", err)
	}

	logger.Info("Job completed successfully",
		"run_id", run.ID.String(),
		"keys", len(run.Results),
		"output", cfg.Output.Path,
	)
}

// runJob executes the configured job and writes its results. The output is opened only after
// the run succeeds, so a failed run leaves any previous output untouched.
func runJob(ctx context.Context, cfg *config.LocalConfig, logger logging.Logger) (*runner.Run, error) {
	if err := output.ValidateFormat(cfg.Output.Format, cfg.Output.Path); err != nil {
		return nil, err
	}

	svc := runner.NewService(runner.NewInMemoryRunStore(), logger)
	run, err := svc.Submit(ctx, runner.Request{
		Job:    cfg.Job.Name,
		Params: cfg.Job.Params,
		Inputs: cfg.Input.Paths,
		Engine: local.Config{
			Mode:    local.Mode(cfg.Engine.Mode),
			Workers: cfg.Engine.Workers,
		},
	})
	if err != nil {
		return nil, err
	}

	writer, err := output.New(cfg.Output.Format, cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	if err := writer.Write(slices.Values(run.Results)); err != nil {
		writer.Close()
		return nil, fmt.Errorf("write results: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}
	return run, nil
}
