package omap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v2"
)

var (
	_ yaml.Marshaler   = &Map[string, int]{}
	_ yaml.Unmarshaler = &Map[string, int]{}
	_ json.Marshaler   = &Map[string, int]{}
	_ json.Unmarshaler = &Map[string, int]{}
)

// MarshalYAML implements [yaml.Marshaler] keeping iteration order.
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	ms := make(yaml.MapSlice, 0, m.Len())
	_ = m.Range(func(k K, v V) error {
		ms = append(ms, yaml.MapItem{Key: k, Value: v})
		return nil
	})
	return ms, nil
}

// UnmarshalYAML implements [yaml.Unmarshaler]. Document order becomes iteration
// order; a key repeated in the document keeps its first position and last value.
// For string keys, plain scalars such as 0 or on keep the text they were written as.
func (m *Map[K, V]) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return err
	}
	var texts keyTexts
	if _, ok := any(*new(K)).(string); ok {
		var raw map[string]interface{}
		if err := unmarshal(&raw); err != nil {
			return err
		}
		texts = newKeyTexts(raw)
	}

	*m = Map[K, V]{vals: map[K]V{}}
	for _, item := range ms {
		k, err := yamlKey[K](item.Key, texts)
		if err != nil {
			return err
		}
		raw, err := yaml.Marshal(item.Value)
		if err != nil {
			return err
		}
		var v V
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return err
		}
		m.Set(k, v)
	}
	return nil
}

func yamlKey[K comparable](key interface{}, texts keyTexts) (K, error) {
	var zero K
	if k, ok := key.(K); ok {
		return k, nil
	}
	switch key.(type) {
	case int, int64, uint64, float64, bool:
	default:
		return zero, fmt.Errorf("omap: unexpected key %v of type %T", key, key)
	}
	s, ok := texts.take(key)
	if !ok {
		s = fmt.Sprint(key)
	}
	if k, ok := any(s).(K); ok {
		return k, nil
	}
	return zero, fmt.Errorf("omap: unexpected key %v of type %T", key, key)
}

// keyTexts maps a resolved non-string scalar key back to the text it was
// written as in the document.
type keyTexts struct {
	pending map[string][]string
	last    map[string]string
}

func scalarID(v interface{}) string {
	return fmt.Sprintf("%T/%v", v, v)
}

func newKeyTexts(raw map[string]interface{}) keyTexts {
	t := keyTexts{
		pending: map[string][]string{},
		last:    map[string]string{},
	}
	for text := range raw {
		var resolved interface{}
		if err := yaml.Unmarshal([]byte(text), &resolved); err != nil {
			continue
		}
		switch resolved.(type) {
		case int, int64, uint64, float64, bool:
			id := scalarID(resolved)
			t.pending[id] = append(t.pending[id], text)
		}
	}
	for _, v := range t.pending {
		sort.Strings(v)
	}
	return t
}

func (t keyTexts) take(key interface{}) (string, bool) {
	if t.pending == nil {
		return "", false
	}
	id := scalarID(key)
	if q := t.pending[id]; len(q) > 0 {
		t.pending[id] = q[1:]
		t.last[id] = q[0]
		return q[0], true
	}
	s, ok := t.last[id]
	return s, ok
}

// MarshalJSON implements [json.Marshaler] keeping iteration order.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	err := m.Range(func(k K, v V) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := json.Marshal(fmt.Sprint(k))
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements [json.Unmarshaler]. Only string-keyed maps can be decoded.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	*m = Map[K, V]{vals: map[K]V{}}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("omap: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, ok := any(tok).(K)
		if !ok {
			return fmt.Errorf("omap: unexpected key %v of type %T", tok, tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return err
		}
		m.Set(k, v)
	}
	_, err = dec.Token()
	return err
}
