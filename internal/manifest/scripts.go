package manifest

import "bytes"

// Scripts is an ordered map of script names to commands.
type Scripts struct {
	keys   []string
	values map[string]string
}

// NewScripts returns an empty script map.
func NewScripts() *Scripts {
	return &Scripts{values: make(map[string]string)}
}

// Set assigns a command, appending the name when it is new.
func (s *Scripts) Set(name, command string) {
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = command
}

// Get returns the command for name.
func (s *Scripts) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Keys returns script names in order.
func (s *Scripts) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len returns the number of scripts.
func (s *Scripts) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Clone returns a copy of s. Cloning nil yields an empty map.
func (s *Scripts) Clone() *Scripts {
	c := NewScripts()
	for _, k := range s.Keys() {
		c.Set(k, s.values[k])
	}
	return c
}

func (s *Scripts) marshal() []byte {
	if s.Len() == 0 {
		return []byte("{}")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(quote(k))
		buf.WriteByte(':')
		buf.Write(quote(s.values[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Conflict records a script whose template command differs from the
// project's command. The project's command is kept.
type Conflict struct {
	Key      string `json:"key" yaml:"key"`
	Template string `json:"template" yaml:"template"`
	Current  string `json:"current" yaml:"current"`
}

// MergeScripts adds the template's scripts that the project lacks. Scripts
// present on both sides with different commands are reported as conflicts
// and keep the project's command. New names are appended in template order.
// Neither input is modified.
func MergeScripts(newScripts, oldScripts *Scripts) (merged *Scripts, conflicts []Conflict, added []string) {
	merged = oldScripts.Clone()
	for _, key := range newScripts.Keys() {
		template, _ := newScripts.Get(key)
		current, ok := oldScripts.Get(key)
		switch {
		case !ok:
			merged.Set(key, template)
			added = append(added, key)
		case current != template:
			conflicts = append(conflicts, Conflict{Key: key, Template: template, Current: current})
		}
	}
	return merged, conflicts, added
}
