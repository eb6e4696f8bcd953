//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/weaviate/linesort/usecases/config"
	"github.com/weaviate/linesort/usecases/monitoring"
)

// Options represents the command line options shared by every command
type Options struct {
	config.Flags
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stderr)
	cancel()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// app is the state shared by all commands once flags, config, logging and
// metrics are resolved.
type app struct {
	ctx      context.Context
	opts     Options
	config   config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *monitoring.PrometheusMetrics
}

func run(ctx context.Context, args []string, logOut io.Writer) error {
	a := &app{ctx: ctx, logger: newLogger(logOut, config.Default().Logging)}

	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "linesort"
	parser.ShortDescription = "sort and process newline-delimited files of any size"

	if err := a.addCommands(parser); err != nil {
		return err
	}

	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if err := a.setup(); err != nil {
			return err
		}

		err := command.Execute(args)
		a.exportMetrics()
		return err
	}

	_, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return err
		}
		a.logger.WithField("action", "linesort_exit").WithError(err).Error("linesort failed")
	}
	return err
}

func (a *app) setup() error {
	var lc config.LinesortConfig
	if err := lc.LoadConfig(&a.opts.Flags, a.logger); err != nil {
		return err
	}
	a.config = lc.Config

	configureLogger(a.logger, a.config.Logging)

	// without a textfile nothing is ever gathered
	if a.config.Monitoring.TextfilePath != "" {
		a.registry = prometheus.NewRegistry()
		a.metrics = monitoring.NewPrometheusMetrics(a.registry)
	} else {
		a.metrics = monitoring.NewPrometheusMetrics(nil)
	}

	a.logger.WithField("action", "startup").
		WithField("batch_size", a.config.Sort.BatchSize).
		WithField("retain_store", a.config.Sort.RetainStore).
		Debug("configuration loaded")

	return nil
}

func (a *app) exportMetrics() {
	path := a.config.Monitoring.TextfilePath
	if path == "" {
		return
	}

	if err := monitoring.WriteTextfile(path, a.registry); err != nil {
		a.logger.WithField("action", "metrics_textfile").
			WithError(err).
			Warn("failed to export metrics")
	}
}

func newLogger(out io.Writer, cfg config.Logging) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.AddHook(appFieldHook{})
	configureLogger(logger, cfg)
	return logger
}

// configureLogger expects an already validated config
func configureLogger(logger *logrus.Logger, cfg config.Logging) {
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// appFieldHook tags every entry with the application name
type appFieldHook struct{}

func (appFieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (appFieldHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = "linesort"
	return nil
}
