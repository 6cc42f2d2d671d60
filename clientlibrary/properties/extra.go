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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidExtraProperties is returned for an overlay that is not a flat JSON object.
var ErrInvalidExtraProperties = errors.New("extra properties must be a flat JSON object")

// Property is one key/value line of a properties file.
type Property struct {
	Key   string
	Value string
}

// String formats the property the way it is appended to the rendered file.
func (p Property) String() string {
	return p.Key + " = " + p.Value
}

// ParseExtraProperties decodes a flat JSON object into properties, keeping the order of the
// keys in the input. Strings are taken verbatim, numbers literally, booleans as true/false
// and null as an empty value. An empty or blank input yields no properties.
func ParseExtraProperties(raw string) ([]Property, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtraProperties, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidExtraProperties, tok)
	}

	var props []Property
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExtraProperties, err)
		}
		key := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExtraProperties, err)
		}
		value, err := scalarString(key, valTok)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidExtraProperties)
		}
		// A line break would smuggle extra lines into the file.
		if strings.ContainsAny(key, "\r\n") || strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("%w: line break in %q", ErrInvalidExtraProperties, key)
		}
		props = append(props, Property{Key: key, Value: value})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtraProperties, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidExtraProperties)
	}

	return props, nil
}

func scalarString(key string, tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: nested value for %q", ErrInvalidExtraProperties, key)
	}
}

// propertyKeys returns the keys defined in a rendered properties body.
func propertyKeys(body []byte) map[string]struct{} {
	keys := map[string]struct{}{}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		end := strings.IndexAny(line, "=: \t")
		if end < 0 {
			end = len(line)
		}
		keys[line[:end]] = struct{}{}
	}
	return keys
}
