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
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"
)

// TemplateRenderError is returned when a template references a variable that was not
// supplied, or when the template cannot be parsed or executed.
type TemplateRenderError struct {
	Template string
	Missing  []string
	Err      error
}

func (e *TemplateRenderError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("rendering template %s: undefined variables %s", e.Template, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("rendering template %s: %v", e.Template, e.Err)
}

func (e *TemplateRenderError) Unwrap() error {
	return e.Err
}

// Template is a properties template with strict variable semantics: every variable it
// references must be supplied.
type Template struct {
	name      string
	tmpl      *template.Template
	variables []string
}

// ParseTemplate parses text in Go template syntax. Variables are top-level fields such as
// {{ .STREAM_NAME }}.
func ParseTemplate(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &TemplateRenderError{Template: name, Err: err}
	}

	seen := map[string]struct{}{}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			collectVariables(t.Tree.Root, false, seen)
		}
	}

	variables := make([]string, 0, len(seen))
	for v := range seen {
		variables = append(variables, v)
	}
	sort.Strings(variables)

	return &Template{name: name, tmpl: tmpl, variables: variables}, nil
}

// Variables returns the sorted names the template references.
func (t *Template) Variables() []string {
	return t.variables
}

// Render executes the template. Nothing is rendered unless every referenced variable is
// present in vars. Supplied variables the template never references are returned so the
// caller can report them.
func (t *Template) Render(vars map[string]string) ([]byte, []string, error) {
	var missing []string
	referenced := make(map[string]struct{}, len(t.variables))
	for _, v := range t.variables {
		referenced[v] = struct{}{}
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &TemplateRenderError{Template: t.name, Missing: missing}
	}

	var unused []string
	for k := range vars {
		if _, ok := referenced[k]; !ok {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, vars); err != nil {
		return nil, nil, &TemplateRenderError{Template: t.name, Err: err}
	}
	return buf.Bytes(), unused, nil
}

// collectVariables records the top-level fields referenced under node. Inside range and
// with bodies dot is rebound, so only $.X lookups refer to the top level there.
func collectVariables(node parse.Node, rebound bool, seen map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectVariables(c, rebound, seen)
		}
	case *parse.ActionNode:
		collectVariables(n.Pipe, rebound, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			collectVariables(c, rebound, seen)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			collectVariables(a, rebound, seen)
		}
	case *parse.FieldNode:
		if !rebound {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	case *parse.ChainNode:
		collectVariables(n.Node, rebound, seen)
	case *parse.IfNode:
		collectVariables(n.Pipe, rebound, seen)
		collectVariables(n.List, rebound, seen)
		collectVariables(n.ElseList, rebound, seen)
	case *parse.RangeNode:
		collectVariables(n.Pipe, rebound, seen)
		collectVariables(n.List, true, seen)
		collectVariables(n.ElseList, rebound, seen)
	case *parse.WithNode:
		collectVariables(n.Pipe, rebound, seen)
		collectVariables(n.List, true, seen)
		collectVariables(n.ElseList, rebound, seen)
	case *parse.TemplateNode:
		collectVariables(n.Pipe, rebound, seen)
	}
}
