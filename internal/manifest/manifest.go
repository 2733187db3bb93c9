// Package manifest reads and writes package.json manifests and merges the
// `scripts` map of a template manifest into a project's manifest.
//
// Only the scripts field is interpreted. Every other top-level field is kept
// as raw JSON in its original order so that writing a manifest back changes
// nothing but the scripts.
package manifest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pugsite/pugsite/internal/errors"
)

const scriptsField = "scripts"

type field struct {
	name string
	raw  json.RawMessage
}

// Manifest is a parsed package.json.
type Manifest struct {
	fields          []field
	scripts         *Scripts
	trailingNewline bool
}

// Parse decodes a manifest. It fails with a manifest format error when data
// is not a JSON object or its scripts field is not an object of strings.
// A null scripts field is treated as absent.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.NewManifestFormatError("manifest is not valid JSON", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.NewManifestFormatError("manifest is not a JSON object", nil)
	}

	m := &Manifest{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.NewManifestFormatError("manifest is not valid JSON", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.NewManifestFormatError("manifest is not valid JSON", err)
		}
		if i, ok := index[key]; ok {
			m.fields[i].raw = raw
			continue
		}
		index[key] = len(m.fields)
		m.fields = append(m.fields, field{name: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.NewManifestFormatError("manifest is not valid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewManifestFormatError("unexpected data after the manifest object", err)
	}

	if i, ok := index[scriptsField]; ok && string(bytes.TrimSpace(m.fields[i].raw)) != "null" {
		scripts, err := parseScripts(m.fields[i].raw)
		if err != nil {
			return nil, err
		}
		m.scripts = scripts
	}

	trimmed := bytes.TrimRight(data, " \t\r")
	m.trailingNewline = len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\n'
	return m, nil
}

func parseScripts(raw json.RawMessage) (*Scripts, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.NewManifestFormatError("scripts is not valid JSON", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.NewManifestFormatError("scripts must be an object mapping names to commands", nil)
	}

	scripts := NewScripts()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.NewManifestFormatError("scripts is not valid JSON", err)
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, errors.NewManifestFormatError("scripts is not valid JSON", err)
		}
		command, ok := valTok.(string)
		if !ok {
			return nil, errors.NewManifestFormatError("script "+key+" is not a string", nil).
				WithContext("script", key)
		}
		scripts.Set(key, command)
	}
	return scripts, nil
}

// Scripts returns the manifest's scripts, or nil when it has none.
func (m *Manifest) Scripts() *Scripts {
	return m.scripts
}

// HasScripts reports whether the manifest declares a scripts object.
func (m *Manifest) HasScripts() bool {
	return m.scripts != nil
}

// Fields returns the top-level field names in order.
func (m *Manifest) Fields() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.name
	}
	return names
}

// WithScripts returns a copy of m whose scripts field is s. A manifest
// without a scripts field gets one appended.
func (m *Manifest) WithScripts(s *Scripts) *Manifest {
	out := &Manifest{
		fields:          make([]field, len(m.fields)),
		scripts:         s.Clone(),
		trailingNewline: m.trailingNewline,
	}
	copy(out.fields, m.fields)

	raw := s.marshal()
	for i, f := range out.fields {
		if f.name == scriptsField {
			out.fields[i].raw = raw
			return out
		}
	}
	out.fields = append(out.fields, field{name: scriptsField, raw: raw})
	return out
}

// Encode renders the manifest as JSON indented by two spaces. Field order
// and the values of untouched fields are preserved; a trailing newline is
// written when the parsed source had one.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if len(m.fields) == 0 {
		buf.WriteString("{}")
	} else {
		buf.WriteString("{\n")
		for i, f := range m.fields {
			buf.WriteString("  ")
			buf.Write(quote(f.name))
			buf.WriteString(": ")
			if err := json.Indent(&buf, f.raw, "  ", "  "); err != nil {
				return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to indent manifest field "+f.name, err)
			}
			if i < len(m.fields)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteByte('}')
	}
	if m.trailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// quote encodes s as a JSON string without HTML escaping.
func quote(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
