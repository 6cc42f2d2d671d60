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
// kcl-worker renders the MultiLangDaemon properties for a stream and replaces itself with the
// daemon JVM.
//
// Usage:
//
//	kcl-worker <stream_name> <region> [--extra <json>] [--debug] [--classpath <path>]... [--java <path>] [--env-file <path>]
//
// Everything else is read from the environment, see clientlibrary/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/worker"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

// version is set with ldflags at build time.
var version = "dev"

type options struct {
	extra     string
	debug     bool
	classpath []string
	javaPath  string
	envFile   string
	workerID  string

	// log replaces the logger built from the environment when set.
	log logger.Logger
}

// loggedError marks an error that already went through the configured logger.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string { return e.err.Error() }

func (e *loggedError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{}).ExecuteContext(ctx); err != nil {
		var logged *loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kcl-worker <stream_name> <region>",
		Short:         "Launch a KCL MultiLangDaemon for a Kinesis stream",
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kclConfig, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if opts.log != nil {
				kclConfig.WithLogger(opts.log)
			}
			if err := worker.NewWorker(kclConfig, args[0], args[1]).Run(cmd.Context(), opts.extra); err != nil {
				kclConfig.Logger.Errorf("kcl-worker failed: %+v", err)
				return &loggedError{err: err}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.extra, "extra", "", "JSON object of extra properties appended to the rendered template")
	flags.BoolVar(&opts.debug, "debug", false, "compile and run the debug client instead of the daemon")
	flags.StringArrayVar(&opts.classpath, "classpath", nil, "extra classpath entry, may be repeated")
	flags.StringVar(&opts.javaPath, "java", "", "java binary, overrides "+config.EnvJavaPath)
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before reading the environment")
	flags.StringVar(&opts.workerID, "worker-id", "", "worker identifier, generated when empty")

	return cmd
}

// loadConfig reads the environment and applies the flags on top of it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Configuration, error) {
	if opts.envFile != "" {
		if err := config.LoadEnvFile(opts.envFile); err != nil {
			return nil, err
		}
	}

	kclConfig, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("debug") {
		kclConfig.WithDebug(opts.debug)
	}
	if len(opts.classpath) > 0 {
		kclConfig.WithExtraClasspath(opts.classpath...)
	}
	if opts.javaPath != "" {
		kclConfig.WithJavaPath(opts.javaPath)
	}
	if opts.workerID != "" {
		kclConfig.WithWorkerID(opts.workerID)
	}
	return kclConfig, nil
}
