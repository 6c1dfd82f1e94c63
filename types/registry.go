// Package types converts parameter values into driver-acceptable
// arguments and normalizes scanned column values. The registry decides
// which Go types count as directly bindable, which is also what lets a
// plain value serve as an entire parameter object.
package types

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler converts values of one registered Go type into driver
// arguments.
type Handler interface {
	ToDriver(v any) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(v any) (any, error)

func (f HandlerFunc) ToDriver(v any) (any, error) { return f(v) }

// Registry maps Go types to their driver conversions.
type Registry struct {
	handlers map[reflect.Type]Handler
}

// NewRegistry returns a registry with the built-in conversions: Go
// scalars and []byte pass through, time.Time passes to the driver,
// uuid.UUID and decimal.Decimal bind as their canonical strings.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[reflect.Type]Handler)}

	passthrough := HandlerFunc(func(v any) (any, error) { return v, nil })
	for _, sample := range []any{
		false, int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0), "", []byte(nil), time.Time{},
	} {
		r.Register(sample, passthrough)
	}
	r.Register(uuid.UUID{}, HandlerFunc(func(v any) (any, error) {
		return v.(uuid.UUID).String(), nil
	}))
	r.Register(decimal.Decimal{}, HandlerFunc(func(v any) (any, error) {
		return v.(decimal.Decimal).String(), nil
	}))
	return r
}

// Register binds a handler to sample's concrete type, replacing any
// previous registration.
func (r *Registry) Register(sample any, h Handler) {
	r.handlers[reflect.TypeOf(sample)] = h
}

// Has reports whether v's type is directly bindable. A true result means
// the value can serve as a whole parameter object without property
// resolution.
func (r *Registry) Has(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := r.handlers[reflect.TypeOf(v)]; ok {
		return true
	}
	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Pointer {
		_, ok := r.handlers[rt.Elem()]
		return ok
	}
	return false
}

// ToDriver converts v into a driver argument. nil binds as SQL NULL;
// registered types convert through their handler; nil typed pointers
// bind as NULL and non-nil ones convert as their element. Unregistered
// types are an error so a typo'd property fails loudly instead of
// binding garbage.
func (r *Registry) ToDriver(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if h, ok := r.handlers[reflect.TypeOf(v)]; ok {
		return h.ToDriver(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		elem := rv.Elem().Interface()
		if h, ok := r.handlers[reflect.TypeOf(elem)]; ok {
			return h.ToDriver(elem)
		}
	}
	return nil, fmt.Errorf("types: no handler for %T", v)
}

// Normalize adjusts a scanned column value for caching and reuse:
// []byte buffers are copied because drivers recycle them between rows.
func (r *Registry) Normalize(v any) any {
	if b, ok := v.([]byte); ok {
		dup := make([]byte, len(b))
		copy(dup, b)
		return dup
	}
	return v
}
