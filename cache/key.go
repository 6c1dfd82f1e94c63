// Package cache implements the two-tier query result cache: composite
// fingerprint keys, the cache contract with its decorators (eviction,
// blocking, logging, serialization), and the transactional write buffer
// used to keep shared regions consistent with database transactions.
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	keySeed       = 17
	keyMultiplier = 37
	nilValueHash  = 1
)

// ErrNullKeyUpdate is returned when a value is folded into NullKey.
var ErrNullKeyUpdate = errors.New("cache: not allowed to update the null key")

// NullKey is the immutable placeholder key used where a statement produced
// no fingerprint. It rejects all updates.
var NullKey = &Key{hash: keySeed, null: true}

// Key is a composite fingerprint over an ordered sequence of values.
// Two keys are equal only if they were built from pairwise-equal values in
// the same order. The zero Key is not usable; call NewKey.
//
// A Key must not be updated after it has been handed to a cache: containers
// bucket by the current hash.
type Key struct {
	hash     uint64
	checksum uint64
	count    int
	values   []any
	null     bool
}

// NewKey returns an empty fingerprint.
func NewKey() *Key {
	return &Key{hash: keySeed}
}

// Update folds one value into the fingerprint.
func (k *Key) Update(value any) error {
	if k.null {
		return ErrNullKeyUpdate
	}
	h := valueHash(value)
	k.count++
	k.checksum += h
	h *= uint64(k.count)
	k.hash = k.hash*keyMultiplier + h
	k.values = append(k.values, value)
	return nil
}

// UpdateAll folds the values in sequence.
func (k *Key) UpdateAll(values ...any) error {
	for _, v := range values {
		if err := k.Update(v); err != nil {
			return err
		}
	}
	return nil
}

// Hash reports the bucket hash. Equal keys always share a hash; the reverse
// does not hold, so containers verify with Equal.
func (k *Key) Hash() uint64 { return k.hash }

// Count reports how many values have been folded in.
func (k *Key) Count() int { return k.count }

// Equal reports whether both fingerprints were built from the same values
// in the same order.
func (k *Key) Equal(other *Key) bool {
	if k == other {
		return true
	}
	if other == nil {
		return false
	}
	if k.hash != other.hash || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	for i := range k.values {
		if !valuesEqual(k.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy that can be updated further.
func (k *Key) Clone() *Key {
	dup := *k
	dup.values = make([]any, len(k.values))
	copy(dup.values, k.values)
	return &dup
}

func (k *Key) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d", k.hash, k.checksum)
	for _, v := range k.values {
		fmt.Fprintf(&sb, ":%v", v)
	}
	return sb.String()
}

// valuesEqual compares folded values. Slices and arrays compare
// element-wise; time values compare by instant.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// Canonical encodings keep the fingerprint stable across processes: the
// hash of a key depends only on the folded values, never on addresses.
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagUint
	tagFloat
	tagString
	tagBytes
	tagTime
	tagUUID
	tagDecimal
	tagOther
)

func valueHash(v any) uint64 {
	if v == nil {
		return nilValueHash
	}
	switch x := v.(type) {
	case string:
		return hashBytes(tagString, []byte(x))
	case []byte:
		return hashBytes(tagBytes, x)
	case bool:
		if x {
			return hashUint64(tagBool, 1)
		}
		return hashUint64(tagBool, 0)
	case int:
		return hashUint64(tagInt, uint64(int64(x)))
	case int8:
		return hashUint64(tagInt, uint64(int64(x)))
	case int16:
		return hashUint64(tagInt, uint64(int64(x)))
	case int32:
		return hashUint64(tagInt, uint64(int64(x)))
	case int64:
		return hashUint64(tagInt, uint64(x))
	case uint:
		return hashUint64(tagUint, uint64(x))
	case uint8:
		return hashUint64(tagUint, uint64(x))
	case uint16:
		return hashUint64(tagUint, uint64(x))
	case uint32:
		return hashUint64(tagUint, uint64(x))
	case uint64:
		return hashUint64(tagUint, x)
	case float32:
		return hashUint64(tagFloat, math.Float64bits(float64(x)))
	case float64:
		return hashUint64(tagFloat, math.Float64bits(x))
	case time.Time:
		return hashUint64(tagTime, uint64(x.UnixNano()))
	case uuid.UUID:
		return hashBytes(tagUUID, x[:])
	case decimal.Decimal:
		return hashBytes(tagDecimal, []byte(x.String()))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		h := uint64(nilValueHash)
		for i := 0; i < rv.Len(); i++ {
			h = h*31 + valueHash(rv.Index(i).Interface())
		}
		return h
	case reflect.Pointer:
		if rv.IsNil() {
			return nilValueHash
		}
		return valueHash(rv.Elem().Interface())
	}
	return hashBytes(tagOther, []byte(fmt.Sprintf("%v", v)))
}

func hashBytes(tag byte, b []byte) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{tag})
	_, _ = d.Write(b)
	return d.Sum64()
}

func hashUint64(tag byte, u uint64) uint64 {
	var buf [9]byte
	buf[0] = tag
	binary.BigEndian.PutUint64(buf[1:], u)
	return xxhash.Sum64(buf[:])
}
