package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/config"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/manager"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/metrics"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/observability"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
)

var (
	configPath   string
	logLevel     string
	logFormat    string
	providerFlag string
	modelFlag    string
	showMetrics  bool
)

// managerOptions lets tests swap in mock providers.
var managerOptions []manager.Option

// setupTracing is replaced in tests.
var setupTracing = observability.Setup

// app holds what PersistentPreRunE builds for the subcommands.
var app struct {
	settings config.Settings
	manager  *manager.Manager
	metrics  *metrics.Metrics
	shutdown func(context.Context) error
}

var rootCmd = &cobra.Command{
	Use:          "media-summarizer",
	Short:        "Summarize and clean up video transcripts with OpenAI, OpenRouter or Ollama",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd.ErrOrStderr(), logLevel, logFormat); err != nil {
			return err
		}
		if cmd.Annotations["skipManager"] == "true" {
			return nil
		}
		return setupApp(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.metrics != nil && showMetrics {
			return app.metrics.WriteSummary(cmd.ErrOrStderr())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./media-summarizer.yaml or ~/.config/media-summarizer/media-summarizer.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "provider to use (openai, openrouter, ollama)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "model to use instead of the provider default")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print request metrics to stderr when done")
}

func setupLogging(w io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(w)
	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
	return nil
}

func setupApp(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(settings, providerFlag, modelFlag); err != nil {
		return err
	}

	shutdown, err := setupTracing(ctx, settings.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}

	rec := metrics.New()
	opts := append([]manager.Option{
		manager.WithLogger(logrus.StandardLogger()),
		manager.WithMetrics(rec),
		manager.WithTracer(observability.Tracer()),
	}, managerOptions...)
	m, err := manager.New(*settings, opts...)
	if err != nil {
		return err
	}

	app.settings = *settings
	app.manager = m
	app.metrics = rec
	app.shutdown = shutdown
	return nil
}

// applyOverrides applies --provider and --model on top of loaded settings.
func applyOverrides(s *config.Settings, providerName, model string) error {
	if providerName != "" {
		if _, ok := provider.ParseType(providerName); !ok {
			return fmt.Errorf("unknown provider %q (want openai, openrouter or ollama)", providerName)
		}
		s.Provider = providerName
	}
	if model == "" {
		return nil
	}
	switch s.ActiveType() {
	case provider.TypeOpenAI:
		s.OpenAI.Model = model
	case provider.TypeOpenRouter:
		s.OpenRouter.Model = model
		// a pinned model disables tier selection
		s.OpenRouter.AutoModel = false
	case provider.TypeOllama:
		s.Ollama.Model = model
	}
	return nil
}

// Execute runs the root command. Tracing is flushed after every run,
// including failed ones.
func Execute() (err error) {
	defer func() {
		if serr := shutdownTracing(); serr != nil && err == nil {
			err = serr
		}
	}()
	return rootCmd.Execute()
}

func shutdownTracing() error {
	shutdown := app.shutdown
	app.shutdown = nil
	if shutdown == nil {
		return nil
	}
	if err := shutdown(context.Background()); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}
