package fdb

import (
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/toc"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
	Logger        *log.Logger

	Registries *Registries
	Tables     *toc.Tables
	Metrics    *prometheus.Registry
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		LogLevel: log.Info,
	}
}

func WithLogLevel(logLevel log.LogLevel) Option {
	return func(opts *Options) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() Option {
	return func(opts *Options) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) Option {
	return func(opts *Options) error {
		opts.LogFile = logFile
		return nil
	}
}

// WithLogger replaces the logger built from the level and file options.
func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

// WithRegistries uses registries prepared by the caller instead of the
// built-in ones.
func WithRegistries(registries *Registries) Option {
	return func(opts *Options) error {
		opts.Registries = registries
		return nil
	}
}

// WithTables shares a table cache between handles. Without it the process
// wide cache is used.
func WithTables(tables *toc.Tables) Option {
	return func(opts *Options) error {
		opts.Tables = tables
		return nil
	}
}

// WithMetrics records statistics on reg, regardless of the "statistics"
// setting.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(opts *Options) error {
		opts.Metrics = reg
		return nil
	}
}
