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
package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/launcher"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/properties"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

var errExecuted = errors.New("executed")

type recorder struct {
	steps []string
}

type fakeMaterializer struct {
	rec   *recorder
	input properties.MaterializeInput
	err   error
}

func (f *fakeMaterializer) Materialize(input properties.MaterializeInput) (*properties.PropertiesFile, error) {
	f.rec.steps = append(f.rec.steps, "materialize")
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &properties.PropertiesFile{Path: "/tmp/orders-w.properties", WorkerID: "w"}, nil
}

type fakeLauncher struct {
	rec  *recorder
	path string
	env  []string
}

func (f *fakeLauncher) Launch(_ context.Context, propertiesPath string, env ...string) error {
	f.rec.steps = append(f.rec.steps, "launch")
	f.path, f.env = propertiesPath, env
	return errExecuted
}

type fakeExecutor struct {
	argv []string
	envv []string
}

func (f *fakeExecutor) Exec(_ string, argv []string, envv []string) error {
	// the properties file must already be on disk when the process is replaced
	if _, err := os.Stat(argv[len(argv)-1]); err != nil {
		return err
	}
	f.argv, f.envv = argv, envv
	return errExecuted
}

func newTestConfig(t *testing.T) (*config.Configuration, *bytes.Buffer) {
	logs := &bytes.Buffer{}
	lc := logger.NewConfiguration(logger.Debug, "text", "")
	lc.ConsoleOutput = logs

	kclConfig := config.NewLauncherConfig("KCLWorker", "staging", "/opt/app/processor").
		WithPropertiesFilePattern(filepath.Join(t.TempDir(), "{stream}-{worker}.properties")).
		WithJarsDir(t.TempDir()).
		WithLogger(logger.NewLogrusLoggerWithConfig(lc))
	return kclConfig, logs
}

func TestWorkerMaterializesBeforeLaunch(t *testing.T) {
	kclConfig, _ := newTestConfig(t)
	rec := &recorder{}
	m := &fakeMaterializer{rec: rec}
	l := &fakeLauncher{rec: rec}

	err := NewWorker(kclConfig, "orders", "us-east-1").WithMaterializer(m).WithLauncher(l).
		Run(context.Background(), `{"foo":"bar"}`)

	assert.True(t, errors.Is(err, errExecuted))
	assert.Equal(t, []string{"materialize", "launch"}, rec.steps)
	assert.Equal(t, "orders", m.input.StreamName)
	assert.Equal(t, "us-east-1", m.input.RegionName)
	assert.Equal(t, `{"foo":"bar"}`, m.input.Extra)
	assert.Equal(t, "/tmp/orders-w.properties", l.path)
	assert.ElementsMatch(t, []string{
		config.EnvDaemonApplicationName + "=staging-KCLWorker",
		config.EnvDaemonStreamName + "=orders",
		config.EnvDaemonRegion + "=us-east-1",
		config.EnvDaemonWorkerID + "=w",
	}, l.env)
}

func TestWorkerNeverLaunchesAfterFailure(t *testing.T) {
	kclConfig, _ := newTestConfig(t)
	rec := &recorder{}
	m := &fakeMaterializer{rec: rec, err: &properties.TemplateRenderError{Template: "t", Missing: []string{"X"}}}
	l := &fakeLauncher{rec: rec}

	err := NewWorker(kclConfig, "orders", "us-east-1").WithMaterializer(m).WithLauncher(l).
		Run(context.Background(), "")

	var renderErr *properties.TemplateRenderError
	assert.True(t, errors.As(err, &renderErr))
	assert.Equal(t, []string{"materialize"}, rec.steps)
}

func TestWorkerInvalidConfiguration(t *testing.T) {
	kclConfig, _ := newTestConfig(t)
	kclConfig.ExecutablePath = ""
	rec := &recorder{}

	err := NewWorker(kclConfig, "orders", "us-east-1").
		WithMaterializer(&fakeMaterializer{rec: rec}).WithLauncher(&fakeLauncher{rec: rec}).
		Run(context.Background(), "")

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.EnvExecutablePath, cfgErr.Key)
	assert.Empty(t, rec.steps)
}

func TestWorkerCancelledContext(t *testing.T) {
	kclConfig, _ := newTestConfig(t)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWorker(kclConfig, "orders", "us-east-1").
		WithMaterializer(&fakeMaterializer{rec: rec}).WithLauncher(&fakeLauncher{rec: rec}).
		Run(ctx, "")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"materialize"}, rec.steps)
}

func TestWorkerWarnsOnUnknownRegion(t *testing.T) {
	kclConfig, logs := newTestConfig(t)
	rec := &recorder{}

	_ = NewWorker(kclConfig, "orders", "mars-north-1").
		WithMaterializer(&fakeMaterializer{rec: rec}).WithLauncher(&fakeLauncher{rec: rec}).
		Run(context.Background(), "")

	assert.Contains(t, logs.String(), "mars-north-1 is not known")
	assert.Equal(t, []string{"materialize", "launch"}, rec.steps)
}

func TestWorkerEndToEnd(t *testing.T) {
	kclConfig, _ := newTestConfig(t)
	java := filepath.Join(t.TempDir(), "java")
	require.NoError(t, os.WriteFile(java, []byte("#!/bin/sh\n"), 0o755))
	kclConfig.WithJavaPath(java).WithWorkerID("worker-1")

	executor := &fakeExecutor{}
	l := launcher.NewLauncher(kclConfig).WithExecutor(executor)

	err := NewWorker(kclConfig, "orders", "us-east-1").WithLauncher(l).Run(context.Background(), `{"foo":"bar"}`)
	require.True(t, errors.Is(err, errExecuted), "unexpected error: %v", err)

	propertiesPath := kclConfig.PropertiesFilePath("orders", "worker-1")
	assert.Equal(t, propertiesPath, executor.argv[len(executor.argv)-1])
	assert.Equal(t, config.MultiLangDaemonClass, executor.argv[3])
	assert.Contains(t, executor.envv, config.EnvDaemonWorkerID+"=worker-1")

	body, err := os.ReadFile(propertiesPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "streamName = orders")
	assert.Contains(t, string(body), "foo = bar")
}
