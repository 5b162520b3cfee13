// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/diffeo/go-modelserve/backend"
)

// Config holds the daemon settings.  Values come from an optional
// YAML file; command-line flags override it.
type Config struct {
	Listen          string          `yaml:"listen"`
	Backend         backend.Backend `yaml:"backend"`
	Repository      string          `yaml:"repository"`
	MaxAsyncJobs    int             `yaml:"max_async_jobs"`
	JobHistory      int             `yaml:"job_history"`
	TrainInterval   time.Duration   `yaml:"train_interval"`
	FrameInterval   time.Duration   `yaml:"frame_interval"`
	MetricsInterval time.Duration   `yaml:"metrics_interval"`
	LogLevel        string          `yaml:"log_level"`
	LogFormat       string          `yaml:"log_format"`
	LogRequests     bool            `yaml:"log_requests"`
}

// DefaultConfig returns the settings used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		Listen:          ":8080",
		Backend:         backend.Backend{Implementation: "memory"},
		JobHistory:      128,
		TrainInterval:   100 * time.Millisecond,
		FrameInterval:   40 * time.Millisecond,
		MetricsInterval: 5 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// bind registers a flag for every setting, writing into c.
func (c *Config) bind(flags *flag.FlagSet) {
	flags.StringVar(&c.Listen, "http", c.Listen,
		"[ip]:port for HTTP REST interface")
	flags.Var(&c.Backend, "backend",
		"impl[:address] of the service definition store")
	flags.StringVar(&c.Repository, "repository", c.Repository,
		"root directory of the model repository")
	flags.IntVar(&c.MaxAsyncJobs, "max-async-jobs", c.MaxAsyncJobs,
		"maximum concurrently running asynchronous training jobs (0 is unlimited)")
	flags.IntVar(&c.JobHistory, "job-history", c.JobHistory,
		"number of services whose last finished training job is kept")
	flags.DurationVar(&c.TrainInterval, "train-interval", c.TrainInterval,
		"time taken by one training iteration")
	flags.DurationVar(&c.FrameInterval, "frame-interval", c.FrameInterval,
		"time between resource frames")
	flags.DurationVar(&c.MetricsInterval, "metrics-interval", c.MetricsInterval,
		"how often to refresh entity metrics")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel,
		"minimum level of log messages")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat,
		"log format, text or json")
	flags.BoolVar(&c.LogRequests, "log-requests", c.LogRequests,
		"log all requests")
}

// LoadConfig parses command-line arguments, reading the YAML file
// named by -config if there is one.
func LoadConfig(name string, args []string) (Config, error) {
	config := DefaultConfig()
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	config.bind(flags)
	configFile := flags.String("config", "", "YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return config, err
	}
	if *configFile == "" {
		return config, nil
	}

	fileConfig := DefaultConfig()
	data, err := ioutil.ReadFile(*configFile)
	if err != nil {
		return config, err
	}
	if err = yaml.UnmarshalStrict(data, &fileConfig); err != nil {
		return config, err
	}

	// Replay the flags that were actually given over the file
	replay := flag.NewFlagSet(name, flag.ContinueOnError)
	fileConfig.bind(replay)
	flags.Visit(func(f *flag.Flag) {
		if f.Name != "config" && err == nil {
			err = replay.Set(f.Name, f.Value.String())
		}
	})
	return fileConfig, err
}

// ConfigureLogging applies the log settings to a logger.
func (c Config) ConfigureLogging(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	switch c.LogFormat {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
