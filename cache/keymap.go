package cache

import "slices"

// keyMap is a hash-bucketed map keyed by *Key. Keys carry an ordered value
// log and are not comparable, so entries group by Key.Hash with Key.Equal
// resolving collisions. Not safe for concurrent use.
type keyMap[V any] struct {
	buckets map[uint64][]keyMapEntry[V]
	n       int
}

type keyMapEntry[V any] struct {
	key   *Key
	value V
}

func newKeyMap[V any]() *keyMap[V] {
	return &keyMap[V]{buckets: make(map[uint64][]keyMapEntry[V])}
}

func (m *keyMap[V]) size() int { return m.n }

func (m *keyMap[V]) get(k *Key) (V, bool) {
	for _, e := range m.buckets[k.Hash()] {
		if e.key.Equal(k) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (m *keyMap[V]) has(k *Key) bool {
	_, ok := m.get(k)
	return ok
}

// put stores v at k, returning the replaced value when k was present.
func (m *keyMap[V]) put(k *Key, v V) (V, bool) {
	h := k.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(k) {
			prev := e.value
			bucket[i].value = v
			return prev, true
		}
	}
	m.buckets[h] = append(bucket, keyMapEntry[V]{key: k, value: v})
	m.n++
	var zero V
	return zero, false
}

func (m *keyMap[V]) remove(k *Key) (V, bool) {
	h := k.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(k) {
			bucket = slices.Delete(bucket, i, i+1)
			if len(bucket) == 0 {
				delete(m.buckets, h)
			} else {
				m.buckets[h] = bucket
			}
			m.n--
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (m *keyMap[V]) clear() {
	m.buckets = make(map[uint64][]keyMapEntry[V])
	m.n = 0
}

// forEach visits every entry in unspecified order.
func (m *keyMap[V]) forEach(fn func(k *Key, v V)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			fn(e.key, e.value)
		}
	}
}
