package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/wavscribe/config"
	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/observability"
	"github.com/kbukum/wavscribe/provider"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/recognizer/voskws"
	"github.com/kbukum/wavscribe/report"
	"github.com/kbukum/wavscribe/transcription"
	"github.com/kbukum/wavscribe/version"
)

const (
	serviceName       = "wavscribe"
	usageMessage      = "Usage: wavscribe <audio_file> [model_path]"
	defaultChunkFlag  = 4000
	commandServe      = "serve"
	commandVersion    = "version"
	componentCLI      = "cli"
	componentShutdown = "shutdown"
)

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	engines *provider.Registry[recognizer.Engine]
}

func newApp(stdout, stderr io.Writer) *app {
	engines := recognizer.NewRegistry()
	engines.RegisterFactory(voskws.ProviderName, voskws.Factory())
	return &app{stdout: stdout, stderr: stderr, engines: engines}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case commandServe:
			return a.serve(ctx, args[1:])
		case commandVersion:
			return a.version()
		}
	}
	return a.transcribe(ctx, args)
}

// commonFlags are accepted by both transcription and serve.
type commonFlags struct {
	configFile string
	engine     string
	engineURL  string
	logLevel   string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "path to config.yml")
	fs.StringVar(&c.engine, "engine", "", "recognition engine name")
	fs.StringVar(&c.engineURL, "engine-url", "", "recognition engine URL")
	fs.StringVar(&c.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

func (c *commonFlags) loaderOptions(fs *pflag.FlagSet) []config.LoaderOption {
	opts := []config.LoaderOption{
		config.WithFlag("engine.name", fs.Lookup("engine")),
		config.WithFlag("engine.url", fs.Lookup("engine-url")),
		config.WithFlag("logging.level", fs.Lookup("log-level")),
	}
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	return opts
}

func (a *app) transcribe(ctx context.Context, args []string) int {
	var (
		common    commonFlags
		audioPath string
		modelPath string
		chunkSize int
		format    string
	)
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	common.register(fs)
	fs.StringVar(&audioPath, "audio", "", "path to a mono 16-bit PCM WAV file")
	fs.StringVar(&modelPath, "model", "", "path to the recognition model directory")
	fs.IntVar(&chunkSize, "chunk-size", defaultChunkFlag, "frames fed to the engine per chunk")
	fs.StringVar(&format, "format", "", "output document: transcript or envelope")

	if err := fs.Parse(args); err != nil {
		// --help is the one run without a document: pflag has already
		// written usage to stderr.
		if stderrors.Is(err, pflag.ErrHelp) {
			return report.ExitOK
		}
		return report.New(a.stdout, format).ReportError(errors.Usage(usageMessage).WithCause(err))
	}

	// --audio selects the flag convention and its envelope document; a
	// positional audio path selects the transcript document.
	req := transcription.Request{}
	flagMode := fs.Changed("audio")
	if flagMode {
		req.AudioPath = audioPath
		req.ModelPath = modelPath
		req.ChunkFrames = chunkSize
		if format == "" {
			format = report.FormatEnvelope
		}
	} else {
		if fs.NArg() > 0 {
			req.AudioPath = fs.Arg(0)
		}
		if fs.NArg() > 1 {
			req.ModelPath = fs.Arg(1)
		}
		if modelPath != "" {
			req.ModelPath = modelPath
		}
		if fs.Changed("chunk-size") {
			req.ChunkFrames = chunkSize
		}
	}
	if format != "" && !slices.Contains(report.Formats, format) {
		return report.New(a.stdout, "").ReportError(errors.InvalidInput("format",
			"format must be one of: "+strings.Join(report.Formats, ", ")))
	}
	reporter := report.New(a.stdout, format)

	if req.AudioPath == "" {
		return reporter.ReportError(errors.Usage(usageMessage))
	}

	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return reporter.ReportError(err)
	}
	// stdout carries the document.
	cfg.Logging.Output = "stderr"

	shutdown, err := a.setup(ctx, cfg)
	if err != nil {
		return reporter.ReportError(err)
	}
	defer shutdown()

	tr, _, err := a.transcriber(cfg)
	if err != nil {
		return reporter.ReportError(err)
	}

	return reporter.Report(tr.Transcribe(ctx, req))
}

func (a *app) loadConfig(fs *pflag.FlagSet, common *commonFlags) (*AppConfig, error) {
	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg, common.loaderOptions(fs)...); err != nil {
		return nil, errors.Internal(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Validation(err.Error()).WithCause(err)
	}
	return &cfg, nil
}

// setup initializes logging and telemetry. The returned function flushes
// telemetry and never fails the run.
func (a *app) setup(ctx context.Context, cfg *AppConfig) (func(), error) {
	if cfg.Logging.Writer == nil && cfg.Logging.Output == "stderr" {
		cfg.Logging.Writer = a.stderr
	}
	logger.Init(&cfg.Logging)
	logger.RegisterComponents("transcription", "voskws", "server")

	otelShutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, version.GetShortVersion(), cfg.Environment)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("observability: %w", err))
	}
	return func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			logger.WithComponent(componentShutdown).Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}, nil
}

// transcriber resolves the configured engine and builds the driver.
func (a *app) transcriber(cfg *AppConfig) (*transcription.Transcriber, *observability.Metrics, error) {
	engine, err := a.engines.Resolve(cfg.Engine.Name, cfg.Engine.ProviderConfig())
	if err != nil {
		return nil, nil, errors.InvalidInput("engine", err.Error()).WithCause(err)
	}

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, nil, errors.Internal(err)
	}

	tr := transcription.New(engine,
		transcription.WithLogger(logger.Get("transcription")),
		transcription.WithMetrics(metrics),
		transcription.WithDefaultModel(cfg.Transcription.ModelPath),
		transcription.WithChunkFrames(cfg.Transcription.ChunkFrames),
		transcription.WithSessionLogLevel(cfg.Transcription.SessionLogLevel),
	)
	logger.WithComponent(componentCLI).Debug("transcriber ready", logger.Fields(
		logger.FieldEngine, engine.Name(),
		logger.FieldModelPath, cfg.Transcription.ModelPath,
	))
	return tr, metrics, nil
}

func (a *app) version() int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(version.GetVersionInfo()); err != nil {
		return report.ExitFailure
	}
	return report.ExitOK
}
