/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

// LoadEnvFile exports the variables of a dotenv file into the process environment.
// Variables that are already set win over the file.
func LoadEnvFile(filename string) error {
	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("loading env file %s: %w", filename, err)
	}
	return nil
}

// LoadFromEnv reads the launcher configuration from the environment and validates it.
func LoadFromEnv() (*Configuration, error) {
	v := newEnvReader()

	c := NewLauncherConfig(
		v.GetString(EnvApplicationName),
		v.GetString(EnvEnvironmentID),
		v.GetString(EnvExecutablePath),
	)

	maxShards, err := getInt(v, EnvMaxShardsPerContainer)
	if err != nil {
		return nil, err
	}
	compileTimeout, err := getDuration(v, EnvCompileTimeout)
	if err != nil {
		return nil, err
	}

	c.WithRetrievalMode(RetrievalMode(v.GetString(EnvRetrievalMode))).
		WithMaxShardsPerContainer(maxShards).
		WithJavaPath(v.GetString(EnvJavaPath)).
		WithJavacPath(v.GetString(EnvJavacPath)).
		WithTemplatePath(v.GetString(EnvTemplatePath)).
		WithExtraClasspath(filepath.SplitList(v.GetString(EnvClasspath))...).
		WithDebug(v.GetBool(EnvDebug)).
		WithCompileTimeout(compileTimeout).
		WithLogger(newLoggerFromEnv(v, os.Stdout))

	if dir := v.GetString(EnvJarsDir); dir != "" {
		c.WithJarsDir(dir)
	}
	if dir := v.GetString(EnvDebugSourceDir); dir != "" {
		c.WithDebugSourceDir(dir)
	}
	if pattern := v.GetString(EnvPropertiesFilePattern); pattern != "" {
		c.WithPropertiesFilePattern(pattern)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadProcessorConfigFromEnv reads the record processor configuration. The identity
// variables are exported by the launcher into the daemon environment. The logger writes
// to stderr since stdout carries the daemon protocol.
func LoadProcessorConfigFromEnv() (*ProcessorConfiguration, error) {
	v := newEnvReader()

	retries, err := getInt(v, EnvCheckpointRetries)
	if err != nil {
		return nil, err
	}
	backoff, err := getInt(v, EnvCheckpointBackoffMillis)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, &ConfigurationError{Key: EnvCheckpointRetries, Reason: "must not be negative"}
	}
	if backoff < 0 {
		return nil, &ConfigurationError{Key: EnvCheckpointBackoffMillis, Reason: "must not be negative"}
	}

	c := NewProcessorConfig(
		v.GetString(EnvDaemonApplicationName),
		v.GetString(EnvDaemonStreamName),
		v.GetString(EnvDaemonWorkerID),
	).WithRegionName(v.GetString(EnvDaemonRegion)).
		WithMetricsListenAddress(v.GetString(EnvMetricsListenAddress)).
		WithCheckpointRetries(retries).
		WithCheckpointBackoffMillis(backoff).
		WithLogger(newLoggerFromEnv(v, os.Stderr))

	return c, nil
}

func newEnvReader() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(EnvApplicationName, DefaultApplicationName)
	v.SetDefault(EnvRetrievalMode, string(DefaultRetrievalMode))
	v.SetDefault(EnvMaxShardsPerContainer, strconv.Itoa(DefaultMaxShardsPerContainer))
	v.SetDefault(EnvJavaPath, DefaultJavaPath)
	v.SetDefault(EnvJavacPath, DefaultJavacPath)
	v.SetDefault(EnvDebug, false)
	v.SetDefault(EnvCompileTimeout, "0s")
	v.SetDefault(EnvDaemonApplicationName, DefaultApplicationName)
	v.SetDefault(EnvCheckpointRetries, strconv.Itoa(DefaultCheckpointRetries))
	v.SetDefault(EnvCheckpointBackoffMillis, strconv.Itoa(DefaultCheckpointBackoffMillis))

	v.SetDefault(EnvLogLevel, logger.Info)
	v.SetDefault(EnvLogFormat, "text")
	v.SetDefault(EnvLogBackend, logger.BackendLogrus)
	return v
}

func newLoggerFromEnv(v *viper.Viper, console io.Writer) logger.Logger {
	lc := logger.NewConfiguration(v.GetString(EnvLogLevel), v.GetString(EnvLogFormat), v.GetString(EnvLogFile))
	lc.ConsoleOutput = console
	return logger.New(v.GetString(EnvLogBackend), lc)
}

func getInt(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be an integer, actual: %q", raw)}
	}
	return n, nil
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be a duration, actual: %q", raw)}
	}
	return d, nil
}
