package main

import (
	"context"
	stderrors "errors"

	"github.com/spf13/pflag"

	"github.com/kbukum/wavscribe/config"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/report"
	"github.com/kbukum/wavscribe/server"
)

// serve runs the HTTP batch mode until ctx is cancelled.
func (a *app) serve(ctx context.Context, args []string) int {
	var common commonFlags
	fs := pflag.NewFlagSet(serviceName+" "+commandServe, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	common.register(fs)
	fs.String("host", "", "address to listen on")
	fs.Int("port", 0, "port to listen on")

	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return report.ExitOK
		}
		return report.ExitFailure
	}

	var cfg AppConfig
	opts := append(common.loaderOptions(fs),
		config.WithFlag("server.host", fs.Lookup("host")),
		config.WithFlag("server.port", fs.Lookup("port")),
	)
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		logger.WithComponent(componentCLI).Error("failed to load config", logger.Fields(logger.FieldError, err.Error()))
		return report.ExitFailure
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		logger.WithComponent(componentCLI).Error("invalid config", logger.Fields(logger.FieldError, err.Error()))
		return report.ExitFailure
	}

	shutdown, err := a.setup(ctx, &cfg)
	if err != nil {
		logger.WithComponent(componentCLI).Error("setup failed", logger.Fields(logger.FieldError, err.Error()))
		return report.ExitFailure
	}
	defer shutdown()

	tr, metrics, err := a.transcriber(&cfg)
	if err != nil {
		logger.WithComponent(componentCLI).Error("engine unavailable", logger.Fields(logger.FieldError, err.Error()))
		return report.ExitFailure
	}
	engine, _ := a.engines.Get(cfg.Engine.Name)

	srv := server.New(cfg.Server, logger.Get("server"))
	srv.ApplyDefaults(cfg.Name, server.Deps{
		Transcriber: tr,
		Engine:      engine,
		Metrics:     metrics,
	})
	if err := srv.Run(ctx); err != nil {
		logger.WithComponent(componentCLI).Error("server stopped", logger.Fields(logger.FieldError, err.Error()))
		return report.ExitFailure
	}
	return report.ExitOK
}
