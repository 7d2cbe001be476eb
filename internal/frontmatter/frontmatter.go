// Package frontmatter splits YAML front matter from content bodies and decodes
// it into typed metadata.
//
// Parsing is total with respect to absent front matter: a file with no opening
// delimiter yields empty metadata and the unchanged input as body. Only an
// opened-but-unclosed delimiter, or enclosed text that is not a YAML mapping,
// is an error, and that error is scoped to the one unit.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Style captures newline shape so callers can reassemble documents without
// normalizing line endings.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// MalformedError reports front matter that opened but could not be parsed.
// It is fatal to the unit's output, never to the build.
type MalformedError struct {
	Path  string
	Cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed front matter in %s: %v", e.Path, e.Cause)
}

func (e *MalformedError) Unwrap() error { return e.Cause }

// Split separates `---` delimited front matter from the body.
//
// If the document does not start with a delimiter, had is false and body is
// the full input.
func Split(content []byte) (raw []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)

	nl := style.Newline
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	start := len(open)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(content[start:], closeLine) {
		bodyStart := start + len(closeLine)
		return []byte{}, content[bodyStart:], true, style, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, false, style, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	bodyStart := start + idx + len(closeSeq)
	return content[start:end], content[bodyStart:], true, style, nil
}

// Parse splits content and decodes the front matter into Metadata.
//
// path is used only for error attribution. A unit with no front matter yields
// empty Metadata and the original bytes as body; this never fails. Field-level
// problems (e.g. an unparseable date) are returned as FieldWarnings on the
// Metadata, with the offending field omitted.
func Parse(path string, content []byte) (Metadata, []byte, error) {
	raw, body, had, _, err := Split(content)
	if err != nil {
		return Metadata{}, nil, &MalformedError{Path: path, Cause: err}
	}
	if !had || len(raw) == 0 {
		return NewMetadata(), body, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return Metadata{}, nil, &MalformedError{Path: path, Cause: err}
	}
	if fields == nil {
		return NewMetadata(), body, nil
	}

	return decodeFields(fields), body, nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			break
		}
	}

	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
