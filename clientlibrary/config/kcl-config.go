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
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

// NewLauncherConfig creates a default Configuration based on the required fields. The
// application name is prefixed with the environment id unless the environment is "prod".
func NewLauncherConfig(applicationName, environmentID, executablePath string) *Configuration {
	if empty(applicationName) {
		applicationName = DefaultApplicationName
	}
	environmentID = strings.ToLower(strings.TrimSpace(environmentID))
	dir := launcherDir()

	// populate the launcher configuration with default values
	return &Configuration{
		ApplicationName:       ResolveApplicationName(applicationName, environmentID),
		EnvironmentID:         environmentID,
		ExecutablePath:        executablePath,
		RetrievalMode:         DefaultRetrievalMode,
		MaxShardsPerContainer: DefaultMaxShardsPerContainer,
		JavaPath:              DefaultJavaPath,
		JavacPath:             DefaultJavacPath,
		JarsDir:               filepath.Join(dir, DefaultJarsDirName),
		PropertiesFilePattern: filepath.Join(os.TempDir(), DefaultPropertiesFileName),
		DebugSourceDir:        filepath.Join(dir, DefaultDebugDirName),
		Logger:                logger.GetDefaultLogger(),
	}
}

// NewProcessorConfig creates a default ProcessorConfiguration.
func NewProcessorConfig(applicationName, streamName, workerID string) *ProcessorConfiguration {
	return &ProcessorConfiguration{
		ApplicationName:         applicationName,
		StreamName:              streamName,
		WorkerID:                workerID,
		CheckpointRetries:       DefaultCheckpointRetries,
		CheckpointBackoffMillis: DefaultCheckpointBackoffMillis,
		Logger:                  logger.GetDefaultLogger(),
	}
}

func (c *Configuration) WithRetrievalMode(mode RetrievalMode) *Configuration {
	c.RetrievalMode = RetrievalMode(strings.ToUpper(string(mode)))
	return c
}

func (c *Configuration) WithMaxShardsPerContainer(n int) *Configuration {
	c.MaxShardsPerContainer = n
	return c
}

// WithWorkerID pins the worker identifier instead of generating one per launch.
func (c *Configuration) WithWorkerID(workerID string) *Configuration {
	c.WorkerID = workerID
	return c
}

func (c *Configuration) WithJavaPath(javaPath string) *Configuration {
	c.JavaPath = javaPath
	return c
}

func (c *Configuration) WithJavacPath(javacPath string) *Configuration {
	c.JavacPath = javacPath
	return c
}

func (c *Configuration) WithJarsDir(dir string) *Configuration {
	c.JarsDir = dir
	return c
}

// WithTemplatePath replaces the embedded properties template with a file.
func (c *Configuration) WithTemplatePath(path string) *Configuration {
	c.TemplatePath = path
	return c
}

// WithPropertiesFilePattern sets the output path pattern. See StreamNameToken and WorkerIDToken.
func (c *Configuration) WithPropertiesFilePattern(pattern string) *Configuration {
	c.PropertiesFilePattern = pattern
	return c
}

// WithExtraClasspath appends user paths. They are placed ahead of the bundled jars so that
// users can shadow classes shipped with the daemon.
func (c *Configuration) WithExtraClasspath(paths ...string) *Configuration {
	for _, p := range paths {
		if !empty(p) {
			c.ExtraClasspath = append(c.ExtraClasspath, p)
		}
	}
	return c
}

func (c *Configuration) WithDebug(enable bool) *Configuration {
	c.Debug = enable
	return c
}

func (c *Configuration) WithDebugSourceDir(dir string) *Configuration {
	c.DebugSourceDir = dir
	return c
}

func (c *Configuration) WithCompileTimeout(timeout time.Duration) *Configuration {
	c.CompileTimeout = timeout
	return c
}

func (c *Configuration) WithLogger(logger logger.Logger) *Configuration {
	if logger == nil {
		log.Panic("Logger cannot be null")
	}
	c.Logger = logger
	return c
}

func (c *ProcessorConfiguration) WithRegionName(regionName string) *ProcessorConfiguration {
	c.RegionName = regionName
	return c
}

func (c *ProcessorConfiguration) WithMetricsListenAddress(address string) *ProcessorConfiguration {
	c.MetricsListenAddress = address
	return c
}

func (c *ProcessorConfiguration) WithCheckpointRetries(retries int) *ProcessorConfiguration {
	c.CheckpointRetries = retries
	return c
}

func (c *ProcessorConfiguration) WithCheckpointBackoffMillis(millis int) *ProcessorConfiguration {
	c.CheckpointBackoffMillis = millis
	return c
}

func (c *ProcessorConfiguration) WithLogger(logger logger.Logger) *ProcessorConfiguration {
	if logger == nil {
		log.Panic("Logger cannot be null")
	}
	c.Logger = logger
	return c
}
