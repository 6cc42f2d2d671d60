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
// Package properties materializes the MultiLangDaemon properties file from a template,
// the launcher configuration and an optional JSON overlay.
package properties

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/utils"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

// Names of the variables available to the template.
const (
	VarRegion          = "REGION"
	VarStreamName      = "STREAM_NAME"
	VarApplicationName = "APPLICATION_NAME"
	VarExecutablePath  = "EXECUTABLE_PATH"
	VarMaxShards       = "MAX_SHARDS"
	VarWorkerID        = "WORKER_ID"
	VarRetrievalMode   = "RETRIEVAL_MODE"

	embeddedTemplateName = "template.properties"
)

//go:embed template.properties
var defaultTemplate string

type (
	// MaterializeInput holds the per-launch values. WorkerID is generated when empty.
	MaterializeInput struct {
		StreamName string
		RegionName string
		WorkerID   string
		// Extra is a JSON object whose pairs are appended after the rendered template.
		Extra string
	}

	// PropertiesFile describes a written properties file.
	PropertiesFile struct {
		Path     string
		WorkerID string
		Extra    []Property
	}

	// Materializer renders and writes properties files.
	Materializer struct {
		kclConfig *config.Configuration
		log       logger.Logger
	}
)

// NewMaterializer creates a Materializer for the launcher configuration.
func NewMaterializer(kclConfig *config.Configuration) *Materializer {
	log := kclConfig.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Materializer{
		kclConfig: kclConfig,
		log:       log,
	}
}

// Materialize renders the properties file and writes it to the configured path. The file is
// replaced atomically; nothing is written when any step fails.
func (m *Materializer) Materialize(input MaterializeInput) (*PropertiesFile, error) {
	if strings.TrimSpace(m.kclConfig.ExecutablePath) == "" {
		return nil, &config.ConfigurationError{Key: config.EnvExecutablePath, Reason: "must be set"}
	}
	if err := checkStreamName(input.StreamName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.RegionName) == "" {
		return nil, &config.ConfigurationError{Key: VarRegion, Reason: "must be set"}
	}

	workerID := input.WorkerID
	if workerID == "" {
		workerID = m.kclConfig.WorkerID
	}
	if workerID == "" {
		workerID = utils.MustNewUUID()
	}
	if !isPathComponent(workerID) {
		return nil, &config.ConfigurationError{Key: VarWorkerID, Reason: fmt.Sprintf("is not a valid worker id: %q", workerID)}
	}
	log := m.log.WithFields(logger.Fields{"stream": input.StreamName, "workerID": workerID})

	extra, err := ParseExtraProperties(input.Extra)
	if err != nil {
		return nil, err
	}

	tmpl, err := m.loadTemplate()
	if err != nil {
		return nil, err
	}

	body, unused, err := tmpl.Render(map[string]string{
		VarRegion:          input.RegionName,
		VarStreamName:      input.StreamName,
		VarApplicationName: m.kclConfig.ApplicationName,
		VarExecutablePath:  m.kclConfig.ExecutablePath,
		VarMaxShards:       strconv.Itoa(m.kclConfig.MaxShardsPerContainer),
		VarWorkerID:        workerID,
		VarRetrievalMode:   string(m.kclConfig.RetrievalMode),
	})
	if err != nil {
		return nil, err
	}
	if len(unused) > 0 {
		log.Warnf("Template %s does not reference variables: %s", tmpl.name, strings.Join(unused, ", "))
	}

	var buf bytes.Buffer
	buf.Write(body)
	if len(extra) > 0 {
		if buf.Len() > 0 && !bytes.HasSuffix(body, []byte("\n")) {
			buf.WriteByte('\n')
		}
		defined := propertyKeys(body)
		for _, p := range extra {
			if _, ok := defined[p.Key]; ok {
				log.Warnf("Extra property %s overrides the templated value", p.Key)
			}
			buf.WriteString(p.String())
			buf.WriteByte('\n')
		}
	}

	path := m.kclConfig.PropertiesFilePath(input.StreamName, workerID)
	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing properties file %s: %w", path, err)
	}
	log.Infof("Wrote properties file %s (%d extra properties)", path, len(extra))

	return &PropertiesFile{
		Path:     path,
		WorkerID: workerID,
		Extra:    extra,
	}, nil
}

func (m *Materializer) loadTemplate() (*Template, error) {
	if m.kclConfig.TemplatePath == "" {
		return ParseTemplate(embeddedTemplateName, defaultTemplate)
	}
	text, err := os.ReadFile(m.kclConfig.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return ParseTemplate(filepath.Base(m.kclConfig.TemplatePath), string(text))
}

// checkStreamName rejects names that would escape the properties directory.
func checkStreamName(streamName string) error {
	if strings.TrimSpace(streamName) == "" {
		return &config.ConfigurationError{Key: VarStreamName, Reason: "must be set"}
	}
	if !isPathComponent(streamName) {
		return &config.ConfigurationError{Key: VarStreamName, Reason: fmt.Sprintf("is not a valid stream name: %q", streamName)}
	}
	return nil
}

// isPathComponent reports whether s can be substituted into a file name without
// leaving its directory.
func isPathComponent(s string) bool {
	return !strings.ContainsAny(s, `/\`) && s != "." && s != ".."
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
