// Package omap provides an insertion-ordered map.
//
// Set on a key that is already present replaces the value but keeps the key at
// its first-seen position, so collecting a sequence through Set resolves
// duplicates by last-write-wins while preserving first-seen order.
package omap

type Map[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		vals: map[K]V{},
	}
}

// Set stores v under k. It returns true if k was already present.
func (m *Map[K, V]) Set(k K, v V) bool {
	if m.vals == nil {
		m.vals = map[K]V{}
	}
	_, ok := m.vals[k]
	if !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
	return ok
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.vals[k]
	return v, ok
}

func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

func (m *Map[K, V]) Delete(k K) bool {
	if m == nil {
		return false
	}
	if _, ok := m.vals[k]; !ok {
		return false
	}
	delete(m.vals, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in iteration order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	ret := make([]K, len(m.keys))
	copy(ret, m.keys)
	return ret
}

// Range calls cb for every entry in iteration order until cb returns an error.
func (m *Map[K, V]) Range(cb func(k K, v V) error) error {
	if m == nil {
		return nil
	}
	for _, k := range m.keys {
		if err := cb(k, m.vals[k]); err != nil {
			return err
		}
	}
	return nil
}
