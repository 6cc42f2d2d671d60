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
package properties

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/utils"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

func newTestConfig(t *testing.T, dir string, out *bytes.Buffer) *config.Configuration {
	t.Helper()
	lc := logger.NewConfiguration(logger.Debug, "text", "")
	lc.ConsoleOutput = out
	return config.NewLauncherConfig("KCLWorker", "prod", "/opt/app/run.sh").
		WithPropertiesFilePattern(filepath.Join(dir, config.DefaultPropertiesFileName)).
		WithLogger(logger.NewLogrusLoggerWithConfig(lc))
}

func TestMaterializeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	kclConfig := newTestConfig(t, dir, &bytes.Buffer{}).
		WithPropertiesFilePattern(filepath.Join(dir, config.StreamNameToken+".properties"))

	file, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{
		StreamName: "orders",
		RegionName: "us-east-1",
		Extra:      `{"foo":"bar"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orders.properties"), file.Path)

	content, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "regionName = us-east-1\n")
	assert.Contains(t, text, "streamName = orders\n")
	assert.Contains(t, text, "executableName = /opt/app/run.sh\n")
	assert.Contains(t, text, "applicationName = KCLWorker\n")
	assert.Contains(t, text, "maxLeasesForWorker = 1024\n")
	assert.Contains(t, text, "retrievalMode = FANOUT\n")
	assert.Contains(t, text, "workerId = "+file.WorkerID+"\n")
	assert.True(t, utils.IsUUID(file.WorkerID))

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	assert.Equal(t, "foo = bar", lines[len(lines)-1])
}

func TestMaterializeAppendsExtraInInputOrder(t *testing.T) {
	dir := t.TempDir()
	kclConfig := newTestConfig(t, dir, &bytes.Buffer{})

	file, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{
		StreamName: "orders",
		RegionName: "us-east-1",
		Extra:      `{"zeta":"1","alpha":"2","mid":3}`,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "zeta = 1\nalpha = 2\nmid = 3\n"))
	assert.Len(t, file.Extra, 3)
}

func TestMaterializeUsesWorkerIDInPath(t *testing.T) {
	dir := t.TempDir()
	m := NewMaterializer(newTestConfig(t, dir, &bytes.Buffer{}))

	first, err := m.Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})
	require.NoError(t, err)
	second, err := m.Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, filepath.Join(dir, "orders-"+first.WorkerID+".properties"), first.Path)
	assert.FileExists(t, first.Path)
	assert.FileExists(t, second.Path)

	pinned, err := m.Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1", WorkerID: "worker-7"})
	require.NoError(t, err)
	assert.Equal(t, "worker-7", pinned.WorkerID)
	assert.Equal(t, filepath.Join(dir, "orders-worker-7.properties"), pinned.Path)
}

func TestMaterializeWithoutExecutablePath(t *testing.T) {
	dir := t.TempDir()
	kclConfig := newTestConfig(t, dir, &bytes.Buffer{})
	kclConfig.ExecutablePath = ""

	_, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.EnvExecutablePath, cfgErr.Key)
	assertEmptyDir(t, dir)
}

func TestMaterializeUndefinedPlaceholder(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(t.TempDir(), "custom.properties")
	require.NoError(t, os.WriteFile(templatePath, []byte("streamName = {{ .STREAM_NAME }}\nshardCount = {{ .SHARD_COUNT }}\n"), 0o644))

	kclConfig := newTestConfig(t, dir, &bytes.Buffer{}).WithTemplatePath(templatePath)
	_, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})

	var renderErr *TemplateRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, []string{"SHARD_COUNT"}, renderErr.Missing)
	assertEmptyDir(t, dir)
}

func TestMaterializeWarnsOnUnusedAndOverride(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(t.TempDir(), "minimal.properties")
	require.NoError(t, os.WriteFile(templatePath, []byte("streamName = {{ .STREAM_NAME }}"), 0o644))

	var out bytes.Buffer
	kclConfig := newTestConfig(t, dir, &out).WithTemplatePath(templatePath)
	file, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{
		StreamName: "orders",
		RegionName: "us-east-1",
		Extra:      `{"streamName":"other"}`,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, "streamName = orders\nstreamName = other\n", string(content))

	assert.Contains(t, out.String(), "does not reference variables")
	assert.Contains(t, out.String(), VarRegion)
	assert.Contains(t, out.String(), "overrides the templated value")
}

func TestMaterializeRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	m := NewMaterializer(newTestConfig(t, dir, &bytes.Buffer{}))

	for _, input := range []MaterializeInput{
		{StreamName: "", RegionName: "us-east-1"},
		{StreamName: "../etc", RegionName: "us-east-1"},
		{StreamName: "orders", RegionName: " "},
	} {
		_, err := m.Materialize(input)
		var cfgErr *config.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), input)
	}

	_, err := m.Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1", Extra: `[1]`})
	assert.True(t, errors.Is(err, ErrInvalidExtraProperties))
	assertEmptyDir(t, dir)
}

func TestMaterializeRejectsWorkerIDOutsideDirectory(t *testing.T) {
	base := t.TempDir()
	pattern := filepath.Join(base, "props", config.WorkerIDToken+".properties")

	for _, workerID := range []string{"../x", `..\x`, "a/b", ".."} {
		m := NewMaterializer(newTestConfig(t, base, &bytes.Buffer{}).WithPropertiesFilePattern(pattern))
		_, err := m.Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1", WorkerID: workerID})
		var cfgErr *config.ConfigurationError
		require.True(t, errors.As(err, &cfgErr), workerID)
		assert.Equal(t, VarWorkerID, cfgErr.Key)

		kclConfig := newTestConfig(t, base, &bytes.Buffer{}).WithPropertiesFilePattern(pattern).WithWorkerID(workerID)
		_, err = NewMaterializer(kclConfig).Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})
		assert.True(t, errors.As(err, &cfgErr), workerID)
	}
	assertEmptyDir(t, base)
}

func TestMaterializeMissingTemplateFile(t *testing.T) {
	dir := t.TempDir()
	kclConfig := newTestConfig(t, dir, &bytes.Buffer{}).WithTemplatePath(filepath.Join(dir, "nope.properties"))

	_, err := NewMaterializer(kclConfig).Materialize(MaterializeInput{StreamName: "orders", RegionName: "us-east-1"})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
