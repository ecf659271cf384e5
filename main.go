package main

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/km-arc/go-dispatch/framework/app"
	"github.com/km-arc/go-dispatch/framework/config"
	"github.com/km-arc/go-dispatch/framework/interceptors"
	"github.com/km-arc/go-dispatch/framework/logging"
	"github.com/km-arc/go-dispatch/framework/module"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("loading configuration")
	}
	log := logging.New(cfg.Log, nil)

	application, err := app.New(&module.Module{
		Name:    "app",
		Imports: []*module.Module{CatsModule([]byte(cfg.App.Key))},
	}, app.WithConfig(cfg), app.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("creating application")
	}

	if err := application.UseGlobalInterceptors(
		interceptors.Logging(log),
		reflect.TypeFor[*interceptors.Metrics](),
		interceptors.Tracing(otel.GetTracerProvider()),
	); err != nil {
		log.Fatal().Err(err).Msg("registering global interceptors")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Listen(ctx, ""); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
