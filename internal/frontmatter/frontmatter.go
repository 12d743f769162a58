// Package frontmatter splits an optional YAML metadata block off the top of
// object content.
package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Meta is the object metadata a front matter block may carry.
type Meta struct {
	Version  string `yaml:"version"`
	Section  string `yaml:"section"`
	Audience string `yaml:"audience"`
}

// Result holds the output of Parse.
type Result struct {
	Meta  Meta
	Found bool
	Body  []byte
}

// Parse separates a leading "---" delimited YAML block from the body.
// Both delimiters must be whole lines. The block only counts when it decodes
// strictly into Meta and sets at least one field; otherwise, and for an
// unterminated block, data is returned unchanged as the body.
func Parse(data []byte) Result {
	whole := Result{Body: data}

	trimmed := bytes.TrimLeft(data, "\n\r")
	first, n, more := cutLine(trimmed)
	if !more || string(first) != delim {
		return whole
	}
	rest := trimmed[n:]

	for off := 0; ; {
		line, n, more := cutLine(rest[off:])
		if string(line) == delim {
			meta, ok := decode(rest[:off])
			if !ok {
				return whole
			}
			body := bytes.TrimLeft(rest[off+n:], "\n\r")
			return Result{Meta: meta, Found: true, Body: body}
		}
		if !more {
			return whole
		}
		off += n
	}
}

// cutLine returns the first line of b without its line ending, the number
// of bytes it spans including the newline, and whether a newline followed.
func cutLine(b []byte) ([]byte, int, bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), len(b), false
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), i + 1, true
}

func decode(block []byte) (Meta, bool) {
	var meta Meta
	dec := yaml.NewDecoder(bytes.NewReader(block))
	dec.KnownFields(true)
	if err := dec.Decode(&meta); err != nil {
		return Meta{}, false
	}
	if meta == (Meta{}) {
		return Meta{}, false
	}
	return meta, true
}
