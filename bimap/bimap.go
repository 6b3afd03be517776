// Package bimap implements a bidirectional map.
package bimap

// BiMap holds a pair of maps kept in sync so values can be resolved in
// either direction. Keys and values must each be unique.
type BiMap[K, V comparable] struct {
	forward map[K]V
	inverse map[V]K
}

// New returns a BiMap preloaded with the given pairs.
func New[K, V comparable](pairs map[K]V) *BiMap[K, V] {
	m := &BiMap[K, V]{
		forward: make(map[K]V, len(pairs)),
		inverse: make(map[V]K, len(pairs)),
	}
	for k, v := range pairs {
		m.Insert(k, v)
	}
	return m
}

// Insert adds a key/value pair, replacing any previous binding of either side.
func (m *BiMap[K, V]) Insert(k K, v V) {
	if old, ok := m.forward[k]; ok {
		delete(m.inverse, old)
	}
	if old, ok := m.inverse[v]; ok {
		delete(m.forward, old)
	}
	m.forward[k] = v
	m.inverse[v] = k
}

// Get resolves a key to its value.
func (m *BiMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.forward[k]
	return v, ok
}

// GetInverse resolves a value back to its key.
func (m *BiMap[K, V]) GetInverse(v V) (K, bool) {
	k, ok := m.inverse[v]
	return k, ok
}

// Exists reports whether the key is present.
func (m *BiMap[K, V]) Exists(k K) bool {
	_, ok := m.forward[k]
	return ok
}

// ExistsInverse reports whether the value is present.
func (m *BiMap[K, V]) ExistsInverse(v V) bool {
	_, ok := m.inverse[v]
	return ok
}

// Delete removes the pair bound to the key, if any.
func (m *BiMap[K, V]) Delete(k K) {
	if v, ok := m.forward[k]; ok {
		delete(m.inverse, v)
		delete(m.forward, k)
	}
}

// DeleteInverse removes the pair bound to the value, if any.
func (m *BiMap[K, V]) DeleteInverse(v V) {
	if k, ok := m.inverse[v]; ok {
		delete(m.forward, k)
		delete(m.inverse, v)
	}
}

// Size returns the number of pairs.
func (m *BiMap[K, V]) Size() int {
	return len(m.forward)
}

// GetForwardMap returns a copy of the key→value map.
func (m *BiMap[K, V]) GetForwardMap() map[K]V {
	out := make(map[K]V, len(m.forward))
	for k, v := range m.forward {
		out[k] = v
	}
	return out
}

// GetInverseMap returns a copy of the value→key map.
func (m *BiMap[K, V]) GetInverseMap() map[V]K {
	out := make(map[V]K, len(m.inverse))
	for v, k := range m.inverse {
		out[v] = k
	}
	return out
}
