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
// Package launcher builds the MultiLangDaemon command line and replaces the current process
// with it. In debug mode the debug client is compiled first; a failed compile never reaches
// the exec phase.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

type (
	// Executor replaces the current process image. Exec only returns on failure.
	Executor interface {
		Exec(argv0 string, argv []string, envv []string) error
	}

	// CommandRunner runs a command to completion and returns its combined output.
	CommandRunner interface {
		Run(ctx context.Context, name string, args ...string) ([]byte, error)
	}

	// Command is a fully resolved process invocation.
	Command struct {
		// Path is the absolute path of the binary.
		Path string
		// Args includes argv[0].
		Args []string
		Env  []string
	}

	// CompileError is returned when the debug client does not compile.
	CompileError struct {
		Source string
		Output string
		Err    error
	}

	// Launcher starts the daemon for a materialized properties file.
	Launcher struct {
		kclConfig *config.Configuration
		executor  Executor
		runner    CommandRunner
		env       []string
	}

	execRunner struct{}
)

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("compiling %s: %v", e.Source, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NewLauncher constructs a Launcher that execs into the real daemon.
func NewLauncher(kclConfig *config.Configuration) *Launcher {
	if kclConfig.Logger == nil {
		kclConfig.Logger = logger.GetDefaultLogger()
	}
	return &Launcher{
		kclConfig: kclConfig,
		executor:  processExecutor{},
		runner:    execRunner{},
	}
}

// WithExecutor is used to provide a custom process replacement, mainly for unit testing.
func (l *Launcher) WithExecutor(executor Executor) *Launcher {
	l.executor = executor
	return l
}

// WithCommandRunner is used to provide a custom runner for the compile phase.
func (l *Launcher) WithCommandRunner(runner CommandRunner) *Launcher {
	l.runner = runner
	return l
}

// WithEnv adds KEY=VALUE pairs to the daemon environment on top of the current one.
func (l *Launcher) WithEnv(kv ...string) *Launcher {
	l.env = append(l.env, kv...)
	return l
}

// ClassName is the main class the launched JVM runs.
func (l *Launcher) ClassName() string {
	if l.kclConfig.Debug {
		return config.DebugClientClass
	}
	return config.MultiLangDaemonClass
}

// Classpath returns user paths, then the debug sources (debug mode only), then the bundled
// jars, then the directory of the properties file. Java resolves classes by first match, so
// users can shadow anything shipped in the jars. An empty propertiesPath leaves out the
// last entry. A jars directory without jars contributes nothing.
func (l *Launcher) Classpath(propertiesPath string) (string, error) {
	var paths []string

	for _, p := range l.kclConfig.ExtraClasspath {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		paths = append(paths, abs)
	}

	if l.kclConfig.Debug {
		abs, err := filepath.Abs(l.kclConfig.DebugSourceDir)
		if err != nil {
			return "", err
		}
		paths = append(paths, abs)
	}

	if l.kclConfig.JarsDir != "" {
		jarsDir, err := filepath.Abs(l.kclConfig.JarsDir)
		if err != nil {
			return "", err
		}
		jars, err := filepath.Glob(filepath.Join(jarsDir, "*.jar"))
		if err != nil {
			return "", err
		}
		paths = append(paths, jars...)
	}

	if propertiesPath != "" {
		abs, err := filepath.Abs(propertiesPath)
		if err != nil {
			return "", err
		}
		paths = append(paths, filepath.Dir(abs))
	}

	nonEmpty := paths[:0]
	for _, p := range paths {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, string(os.PathListSeparator)), nil
}

// Command resolves the java binary and builds the daemon invocation.
func (l *Launcher) Command(propertiesPath string) (*Command, error) {
	javaPath, err := exec.LookPath(l.kclConfig.JavaPath)
	if err != nil {
		return nil, fmt.Errorf("locating java binary %s: %w", l.kclConfig.JavaPath, err)
	}
	if javaPath, err = filepath.Abs(javaPath); err != nil {
		return nil, err
	}

	classpath, err := l.Classpath(propertiesPath)
	if err != nil {
		return nil, err
	}

	return &Command{
		Path: javaPath,
		Args: []string{javaPath, "-cp", classpath, l.ClassName(), propertiesPath},
		Env:  append(os.Environ(), l.env...),
	}, nil
}

// Compile runs the compile phase of debug mode. It blocks until javac exits, the context
// is cancelled or the configured compile timeout expires.
func (l *Launcher) Compile(ctx context.Context) error {
	log := l.kclConfig.Logger
	source := filepath.Join(l.kclConfig.DebugSourceDir, config.DebugClientSource)

	classpath, err := l.Classpath("")
	if err != nil {
		return err
	}

	if l.kclConfig.CompileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.kclConfig.CompileTimeout)
		defer cancel()
	}

	log.Infof("Compiling debug client %s", source)
	out, err := l.runner.Run(ctx, l.kclConfig.JavacPath, "-cp", classpath, source)
	if err != nil {
		return &CompileError{Source: source, Output: string(out), Err: err}
	}
	log.Debugf("Compiled debug client %s", source)
	return nil
}

// Exec replaces the current process with cmd. It returns only if the replacement failed;
// any cleanup must happen before calling it.
func (l *Launcher) Exec(cmd *Command) error {
	l.kclConfig.Logger.Infof("Executing %s", strings.Join(cmd.Args, " "))
	if err := l.executor.Exec(cmd.Path, cmd.Args, cmd.Env); err != nil {
		return fmt.Errorf("executing %s: %w", cmd.Path, err)
	}
	return nil
}

// Launch is the terminal action of the program: compile (debug mode), then exec the JVM.
// env holds KEY=VALUE pairs added to the daemon environment for this launch only.
// On success it does not return.
func (l *Launcher) Launch(ctx context.Context, propertiesPath string, env ...string) error {
	cmd, err := l.Command(propertiesPath)
	if err != nil {
		return err
	}
	cmd.Env = append(cmd.Env, env...)

	if l.kclConfig.Debug {
		if err := l.Compile(ctx); err != nil {
			return err
		}
	}

	return l.Exec(cmd)
}
