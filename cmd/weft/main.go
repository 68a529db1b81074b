// Weft CLI entry point.
//
// Usage:
//
//	weft run workflow.yaml                 # execute a workflow
//	weft run workflow.yaml --input k=v     # supply initial inputs
//	weft validate workflow.yaml            # check a definition
//	weft version                           # show version information
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/weft-ai/weft/cache"
	"github.com/weft-ai/weft/config"
	"github.com/weft-ai/weft/internal/metrics"
	"github.com/weft-ai/weft/internal/telemetry"
	"github.com/weft-ai/weft/store"
	"github.com/weft-ai/weft/types"
	"github.com/weft-ai/weft/workflow"
	"github.com/weft-ai/weft/workflow/dsl"
)

// Build-time version information.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// inputFlags collects repeated --input key=value pairs.
type inputFlags map[string]string

func (f inputFlags) String() string { return "" }

func (f inputFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("input must be key=value, got %q", v)
	}
	f[key] = value
	return nil
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	workflowID := fs.String("workflow-id", "", "Workflow id for persistence (defaults to the workflow name)")
	inputs := inputFlags{}
	fs.Var(inputs, "input", "Initial input as key=value (repeatable)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: weft run <workflow.yaml> [options]")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting weft",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	g, def, err := dsl.NewParser().ParseFile(path)
	if err != nil {
		logger.Fatal("failed to parse workflow", zap.String("path", path), zap.Error(err))
	}

	collector := metrics.NewCollector("weft", prometheus.DefaultRegisterer, logger)

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithCollaborators(echoCollaborators()),
		workflow.WithTokenCounter(workflow.NewTiktokenCounter(cfg.Engine.TokenEncoding)),
		workflow.WithMetricsRecorder(collector),
	}
	if cfg.Engine.AgentRateLimit > 0 {
		opts = append(opts, workflow.WithAgentRateLimit(
			rate.Limit(cfg.Engine.AgentRateLimit), cfg.Engine.AgentBurst))
	}
	orch := workflow.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initial := types.Bundle{}
	for k, v := range inputs {
		initial[k] = v
	}

	result, err := orch.Run(ctx, g, initial)
	if err != nil {
		logger.Fatal("workflow rejected", zap.Error(err))
	}

	persist(ctx, cfg, logger, collector, def, path, *workflowID, result)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))

	if result.Status == types.RunFailed {
		os.Exit(1)
	}
}

// persist saves the definition and run result when the store or cache
// is enabled. Persistence failures are logged, not fatal.
func persist(ctx context.Context, cfg *config.Config, logger *zap.Logger, collector *metrics.Collector, def *dsl.Definition, path, workflowID string, result *types.RunResult) {
	if workflowID == "" {
		workflowID = def.Name
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store, logger)
		if err != nil {
			logger.Warn("store unavailable, skipping persistence", zap.Error(err))
		} else {
			defer st.Close()
			st.SetMetrics(collector)
			raw, readErr := os.ReadFile(path)
			if readErr == nil {
				rec := &store.WorkflowRecord{
					ID:          workflowID,
					Name:        def.Name,
					Description: def.Description,
					Definition:  raw,
				}
				if err := st.SaveWorkflow(ctx, rec); err != nil {
					logger.Warn("failed to save workflow", zap.Error(err))
				}
			}
			if err := st.SaveRun(ctx, workflowID, result); err != nil {
				logger.Warn("failed to save run", zap.Error(err))
			}
		}
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache, logger)
		if err != nil {
			logger.Warn("cache unavailable, skipping", zap.Error(err))
		} else {
			defer c.Close()
			c.SetMetrics(collector)
			if err := c.PutResult(ctx, result, 0); err != nil {
				logger.Warn("failed to cache run result", zap.Error(err))
			}
		}
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: weft validate <workflow.yaml>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	g, def, err := dsl.NewParser().ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
		os.Exit(1)
	}

	plan, err := workflow.PlanBatches(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: %s (%d steps, %d batches)\n", def.Name, len(g.Steps()), len(plan))
}

// echoCollaborators supplies deterministic local step bodies so
// workflows can be exercised without a model backend. Hosts embedding
// the engine provide real collaborators instead.
func echoCollaborators() workflow.Collaborators {
	return workflow.Collaborators{
		AgentCall: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			prompt, _ := config["prompt"].(string)
			var parts []string
			if prompt != "" {
				parts = append(parts, prompt)
			}
			for _, v := range inputs {
				if s, ok := v.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "\n"), nil
		},
		Analyze: func(ctx context.Context, config map[string]any, inputs types.Bundle) (types.Bundle, error) {
			total := 0
			for _, v := range inputs {
				if s, ok := v.(string); ok {
					total += len(s)
				}
			}
			return types.Bundle{"score": float64(total)}, nil
		},
		Generate: func(ctx context.Context, config map[string]any, inputs types.Bundle) (string, error) {
			prompt, _ := config["prompt"].(string)
			return prompt, nil
		},
	}
}

func printVersion() {
	fmt.Printf("weft %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Weft - workflow execution engine

Usage:
  weft <command> [options]

Commands:
  run       Execute a workflow definition
  validate  Check a workflow definition without running it
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>        Path to configuration file (YAML)
  --input <key=value>    Initial input binding (repeatable)
  --workflow-id <id>     Workflow id used for persistence

Examples:
  weft run examples/summarize.yaml
  weft run examples/summarize.yaml --input text="hello world"
  weft validate examples/summarize.yaml
  weft version`)
}

// initLogger builds the zap logger from config, falling back to the
// production preset on error.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
