// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-modelserve/backend"
)

func writeConfig(t *testing.T, contents string) string {
	dir, err := ioutil.TempDir("", "modelserved")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config, err := LoadConfig("modelserved", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestConfigFlags(t *testing.T) {
	config, err := LoadConfig("modelserved", []string{
		"-http", "127.0.0.1:9000",
		"-backend", "postgres:dbname=serving",
		"-train-interval", "1s",
		"-log-requests",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", config.Listen)
	assert.Equal(t, backend.Backend{Implementation: "postgres", Address: "dbname=serving"}, config.Backend)
	assert.Equal(t, time.Second, config.TrainInterval)
	assert.True(t, config.LogRequests)
	assert.Equal(t, 128, config.JobHistory)

	_, err = LoadConfig("modelserved", []string{"-backend", "redis"})
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9999"
backend: postgres:host=db
repository: /var/lib/models
max_async_jobs: 4
frame_interval: 10ms
log_format: json
`)
	config, err := LoadConfig("modelserved", []string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, ":9999", config.Listen)
	assert.Equal(t, "postgres", config.Backend.Implementation)
	assert.Equal(t, "/var/lib/models", config.Repository)
	assert.Equal(t, 4, config.MaxAsyncJobs)
	assert.Equal(t, 10*time.Millisecond, config.FrameInterval)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, 100*time.Millisecond, config.TrainInterval)

	// Flags win over the file, wherever they appear
	config, err = LoadConfig("modelserved", []string{
		"-max-async-jobs", "2", "-config", path, "-backend", "memory",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, config.MaxAsyncJobs)
	assert.Equal(t, "memory", config.Backend.Implementation)
	assert.Equal(t, ":9999", config.Listen)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := LoadConfig("modelserved", []string{"-config", "/nonexistent/config.yaml"})
	assert.Error(t, err)

	path := writeConfig(t, "listen: [1, 2]\n")
	_, err = LoadConfig("modelserved", []string{"-config", path})
	assert.Error(t, err)

	path = writeConfig(t, "lisen: \":80\"\n")
	_, err = LoadConfig("modelserved", []string{"-config", path})
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	logger := logrus.New()
	config := DefaultConfig()
	config.LogLevel = "debug"
	config.LogFormat = "json"
	require.NoError(t, config.ConfigureLogging(logger))
	assert.Equal(t, logrus.DebugLevel, logger.Level)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	config.LogLevel = "loud"
	assert.Error(t, config.ConfigureLogging(logger))

	config.LogLevel = "info"
	config.LogFormat = "xml"
	assert.Error(t, config.ConfigureLogging(logger))
}
