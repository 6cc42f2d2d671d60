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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

const (
	// MultiLangDaemonClass is the entry point of the KCL multilang daemon.
	MultiLangDaemonClass = "software.amazon.kinesis.multilang.MultiLangDaemon"

	// DebugClientClass replaces MultiLangDaemonClass in debug mode. It is compiled from
	// DebugClientSource inside the debug source directory right before launch.
	DebugClientClass  = "DebugClient"
	DebugClientSource = DebugClientClass + ".java"

	// ProductionEnvironmentID is the only environment whose application name is not prefixed.
	ProductionEnvironmentID = "prod"

	// Tokens understood by PropertiesFilePattern.
	StreamNameToken = "{stream}"
	WorkerIDToken   = "{worker}"

	// LegacyPropertiesFilePattern writes one file per stream name. Concurrent launches for the
	// same stream overwrite each other's file.
	LegacyPropertiesFilePattern = "/tmp/" + StreamNameToken + ".properties"

	DefaultApplicationName       = "KCLWorker"
	DefaultRetrievalMode         = FANOUT
	DefaultMaxShardsPerContainer = 1024
	DefaultJavaPath              = "/usr/bin/java"
	DefaultJavacPath             = "/usr/bin/javac"
	DefaultJarsDirName           = "jars"
	DefaultDebugDirName          = "debug"
	DefaultPropertiesFileName    = StreamNameToken + "-" + WorkerIDToken + ".properties"

	DefaultCheckpointRetries       = 5
	DefaultCheckpointBackoffMillis = 1000
)

// Environment variables read by LoadFromEnv and LoadProcessorConfigFromEnv.
const (
	EnvApplicationName       = "APPLICATION_NAME"
	EnvExecutablePath        = "EXECUTABLE_PATH"
	EnvRetrievalMode         = "RETRIEVAL_MODE"
	EnvEnvironmentID         = "ENVIRONMENT_ID"
	EnvMaxShardsPerContainer = "MAX_SHARDS_PER_CONTAINER"
	EnvJavaPath              = "JAVA_PATH"
	EnvJavacPath             = "JAVAC_PATH"
	EnvJarsDir               = "KCL_JARS_DIR"
	EnvTemplatePath          = "KCL_TEMPLATE_PATH"
	EnvPropertiesFilePattern = "KCL_PROPERTIES_PATTERN"
	EnvClasspath             = "KCL_CLASSPATH"
	EnvDebug                 = "KCL_DEBUG"
	EnvDebugSourceDir        = "KCL_DEBUG_SOURCE_DIR"
	EnvCompileTimeout        = "KCL_COMPILE_TIMEOUT"

	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
	EnvLogBackend = "LOG_BACKEND"
	EnvLogFile    = "LOG_FILE"

	// Exported by the launcher into the daemon's environment and inherited by every
	// record processor the daemon spawns.
	EnvDaemonApplicationName = "KCL_APPLICATION_NAME"
	EnvDaemonStreamName      = "KCL_STREAM_NAME"
	EnvDaemonRegion          = "KCL_REGION"
	EnvDaemonWorkerID        = "KCL_WORKER_ID"

	EnvMetricsListenAddress    = "METRICS_LISTEN_ADDRESS"
	EnvCheckpointRetries       = "KCL_CHECKPOINT_RETRIES"
	EnvCheckpointBackoffMillis = "KCL_CHECKPOINT_BACKOFF_MILLIS"
)

const (
	// FANOUT consumes the stream through an enhanced fan-out subscription.
	FANOUT RetrievalMode = "FANOUT"
	// POLLING consumes the stream with GetRecords calls.
	POLLING RetrievalMode = "POLLING"
)

type (
	// RetrievalMode selects how the daemon reads records from the stream.
	RetrievalMode string

	// Configuration is the process-wide launcher configuration. It is built once at startup
	// and shared by pointer with the materializer and the launcher.
	Configuration struct {
		// ApplicationName is the resolved application name, already prefixed with the environment id.
		ApplicationName string

		// EnvironmentID is lower-cased. Any value other than "prod" prefixes ApplicationName.
		EnvironmentID string

		// ExecutablePath is the record processor the daemon spawns for each shard.
		ExecutablePath string

		// RetrievalMode is passed through to the daemon.
		RetrievalMode RetrievalMode

		// MaxShardsPerContainer caps the number of leases the daemon takes.
		MaxShardsPerContainer int

		// WorkerID distinguishes this launch from others sharing ApplicationName. Generated
		// per launch when empty.
		WorkerID string

		JavaPath  string
		JavacPath string

		// JarsDir holds the bundled KCL jars. Every *.jar in it joins the classpath.
		JarsDir string

		// TemplatePath points at a properties template. The embedded template is used when empty.
		TemplatePath string

		// PropertiesFilePattern is the output path of the rendered properties file. It must
		// contain StreamNameToken and may contain WorkerIDToken.
		PropertiesFilePattern string

		// ExtraClasspath entries precede everything else on the classpath.
		ExtraClasspath []string

		// Debug compiles and runs DebugClientClass instead of the daemon.
		Debug          bool
		DebugSourceDir string

		// CompileTimeout bounds the debug compile phase. Zero means no timeout.
		CompileTimeout time.Duration

		// Logger used to log message.
		Logger logger.Logger
	}

	// ProcessorConfiguration configures a multilang record processor process.
	ProcessorConfiguration struct {
		ApplicationName string
		StreamName      string
		RegionName      string
		WorkerID        string

		// MetricsListenAddress enables the Prometheus endpoint when not empty.
		MetricsListenAddress string

		// CheckpointRetries bounds the retries of a throttled checkpoint.
		CheckpointRetries int

		// CheckpointBackoffMillis is the base delay between throttled checkpoint attempts.
		CheckpointBackoffMillis int

		Logger logger.Logger
	}

	// ConfigurationError reports a required setting that is missing or invalid.
	ConfigurationError struct {
		Key    string
		Reason string
	}
)

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// IsValid reports whether the daemon understands the retrieval mode.
func (m RetrievalMode) IsValid() bool {
	return m == FANOUT || m == POLLING
}

// ResolveApplicationName prefixes the application name with the lower-cased environment id,
// unless the environment is production.
func ResolveApplicationName(applicationName, environmentID string) string {
	env := strings.ToLower(strings.TrimSpace(environmentID))
	if env == "" || env == ProductionEnvironmentID {
		return applicationName
	}
	return env + "-" + applicationName
}

// PropertiesFilePath expands the pattern tokens.
func (c *Configuration) PropertiesFilePath(streamName, workerID string) string {
	return strings.NewReplacer(StreamNameToken, streamName, WorkerIDToken, workerID).
		Replace(c.PropertiesFilePattern)
}

// Validate checks every required setting and returns the first *ConfigurationError found.
func (c *Configuration) Validate() error {
	if err := checkIsValueNotEmpty(EnvExecutablePath, c.ExecutablePath); err != nil {
		return err
	}
	if err := checkIsValueNotEmpty(EnvEnvironmentID, c.EnvironmentID); err != nil {
		return err
	}
	if err := checkIsValueNotEmpty(EnvApplicationName, c.ApplicationName); err != nil {
		return err
	}
	if err := checkIsValuePositive(EnvMaxShardsPerContainer, c.MaxShardsPerContainer); err != nil {
		return err
	}
	if !c.RetrievalMode.IsValid() {
		return &ConfigurationError{Key: EnvRetrievalMode,
			Reason: fmt.Sprintf("must be %s or %s, actual: %q", FANOUT, POLLING, c.RetrievalMode)}
	}
	if err := checkIsValueNotEmpty(EnvJavaPath, c.JavaPath); err != nil {
		return err
	}
	if !strings.Contains(c.PropertiesFilePattern, StreamNameToken) {
		return &ConfigurationError{Key: EnvPropertiesFilePattern,
			Reason: fmt.Sprintf("must contain %s, actual: %q", StreamNameToken, c.PropertiesFilePattern)}
	}
	if c.CompileTimeout < 0 {
		return &ConfigurationError{Key: EnvCompileTimeout, Reason: "must not be negative"}
	}
	if c.Debug {
		if err := checkIsValueNotEmpty(EnvJavacPath, c.JavacPath); err != nil {
			return err
		}
		if err := checkIsValueNotEmpty(EnvDebugSourceDir, c.DebugSourceDir); err != nil {
			return err
		}
	}
	return nil
}

// launcherDir is the directory holding the running binary. Bundled jars and the debug
// client live next to it.
func launcherDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func empty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// checkIsValueNotEmpty makes sure the value is not empty.
func checkIsValueNotEmpty(key string, value string) error {
	if empty(value) {
		return &ConfigurationError{Key: key, Reason: "must be set"}
	}
	return nil
}

// checkIsValuePositive makes sure the value is possitive.
func checkIsValuePositive(key string, value int) error {
	if value <= 0 {
		return &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be positive, actual: %d", value)}
	}
	return nil
}
