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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateVariables(t *testing.T) {
	tmpl, err := ParseTemplate("t", `a = {{ .B }}
{{ if .C }}c = {{ .C }}{{ end }}
{{ range .D }}{{ .Ignored }} {{ $.E }}{{ end }}
{{ with .F }}{{ .AlsoIgnored }}{{ else }}{{ .G }}{{ end }}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "D", "E", "F", "G"}, tmpl.Variables())
}

func TestRenderStrictUndefined(t *testing.T) {
	tmpl, err := ParseTemplate("t", "streamName = {{ .STREAM_NAME }}\nfoo = {{ .UNKNOWN }}\n")
	require.NoError(t, err)

	out, _, err := tmpl.Render(map[string]string{"STREAM_NAME": "orders"})
	assert.Nil(t, out)

	var renderErr *TemplateRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, []string{"UNKNOWN"}, renderErr.Missing)
	assert.Contains(t, err.Error(), "UNKNOWN")
}

func TestRenderReportsUnused(t *testing.T) {
	tmpl, err := ParseTemplate("t", "streamName = {{ .STREAM_NAME }}\n")
	require.NoError(t, err)

	out, unused, err := tmpl.Render(map[string]string{"STREAM_NAME": "orders", "REGION": "us-east-1", "WORKER_ID": "w"})
	require.NoError(t, err)
	assert.Equal(t, "streamName = orders\n", string(out))
	assert.Equal(t, []string{"REGION", "WORKER_ID"}, unused)
}

func TestParseTemplateError(t *testing.T) {
	_, err := ParseTemplate("broken", "a = {{ .A ")

	var renderErr *TemplateRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "broken", renderErr.Template)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestEmbeddedTemplateVariables(t *testing.T) {
	tmpl, err := ParseTemplate(embeddedTemplateName, defaultTemplate)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		VarRegion, VarStreamName, VarApplicationName, VarExecutablePath,
		VarMaxShards, VarWorkerID, VarRetrievalMode,
	}, tmpl.Variables())
}
