// Package frontmatter reads and writes markdown documents that carry YAML
// metadata between --- delimiters.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter reports a document that does not open with ---.
var ErrNoFrontmatter = errors.New("frontmatter: missing opening --- delimiter")

const delim = "---\n"

// Split separates a document into its raw YAML metadata and body. CRLF line
// endings are accepted.
func Split(data []byte) (meta, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, nil, ErrNoFrontmatter
	}
	rest := data[len(delim):]
	var idx int
	if bytes.HasPrefix(rest, []byte(delim)) {
		idx = 0
	} else if idx = bytes.Index(rest, []byte("\n"+delim)); idx >= 0 {
		idx++
	} else if bytes.HasSuffix(rest, []byte("\n---")) {
		idx = len(rest) - 3
	} else {
		return nil, nil, fmt.Errorf("frontmatter: missing closing --- delimiter")
	}
	meta = rest[:idx]
	body = bytes.TrimPrefix(rest[idx+3:], []byte("\n"))
	return meta, body, nil
}

// Decode unmarshals the metadata of data into v and returns the body.
func Decode(data []byte, v any) (body []byte, err error) {
	meta, body, err := Split(data)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(meta, v); err != nil {
		return nil, fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return body, nil
}

// Encode marshals v as metadata followed by body.
func Encode(v any, body string) ([]byte, error) {
	meta, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim)
	buf.Write(meta)
	buf.WriteString(delim)
	buf.WriteString(body)
	return buf.Bytes(), nil
}
