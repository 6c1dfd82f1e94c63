// Package meta reads and writes object properties by dotted path, the
// reflection glue behind parameter binding and deferred result loads.
// Paths traverse maps with string keys and exported struct fields;
// pointers and interfaces are dereferenced along the way.
package meta

import (
	"fmt"
	"reflect"
	"strings"
)

// Get resolves path against obj. The second return is false when any
// segment is missing or nil along the way. Struct fields match exactly
// first, then case-insensitively, so mapper properties like "name" reach
// the exported field "Name".
func Get(obj any, path string) (any, bool) {
	current := obj
	for _, segment := range strings.Split(path, ".") {
		v, ok := getSegment(current, segment)
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

func getSegment(obj any, name string) (any, bool) {
	if obj == nil || name == "" {
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		field, ok := fieldByProperty(rv, name)
		if !ok {
			return nil, false
		}
		return field.Interface(), true
	default:
		return nil, false
	}
}

// TypeOf reports the declared type of the property at path: the field
// type for structs, the value type for maps. The second return is false
// when the path cannot be resolved.
func TypeOf(obj any, path string) (reflect.Type, bool) {
	segments := strings.Split(path, ".")
	parent := obj
	for _, segment := range segments[:len(segments)-1] {
		v, ok := getSegment(parent, segment)
		if !ok {
			return nil, false
		}
		parent = v
	}
	if parent == nil {
		return nil, false
	}
	rv := reflect.ValueOf(parent)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	name := segments[len(segments)-1]
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		// The declared value type, not the type of what is stored now.
		return rv.Type().Elem(), true
	case reflect.Struct:
		field, ok := fieldByProperty(rv, name)
		if !ok {
			return nil, false
		}
		return field.Type(), true
	default:
		return nil, false
	}
}

// Set assigns value at path on obj. Struct targets must be reachable
// through a pointer so the field is addressable; map targets are written
// in place. Intermediate segments must already exist.
func Set(obj any, path string, value any) error {
	segments := strings.Split(path, ".")
	parent := obj
	for _, segment := range segments[:len(segments)-1] {
		v, ok := getSegment(parent, segment)
		if !ok {
			return fmt.Errorf("meta: path %q: segment %q not found", path, segment)
		}
		parent = v
	}
	return setSegment(parent, segments[len(segments)-1], value, path)
}

func setSegment(obj any, name string, value any, fullPath string) error {
	if obj == nil {
		return fmt.Errorf("meta: path %q: cannot set on nil object", fullPath)
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return fmt.Errorf("meta: path %q: nil along the way", fullPath)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("meta: path %q: map keys must be strings", fullPath)
		}
		mv, err := coerce(value, rv.Type().Elem())
		if err != nil {
			return fmt.Errorf("meta: path %q: %w", fullPath, err)
		}
		rv.SetMapIndex(reflect.ValueOf(name), mv)
		return nil
	case reflect.Struct:
		field, ok := fieldByProperty(rv, name)
		if !ok {
			return fmt.Errorf("meta: path %q: no field matches %q", fullPath, name)
		}
		if !field.CanSet() {
			return fmt.Errorf("meta: path %q: field %q is not settable (pass a pointer)", fullPath, name)
		}
		fv, err := coerce(value, field.Type())
		if err != nil {
			return fmt.Errorf("meta: path %q: %w", fullPath, err)
		}
		field.Set(fv)
		return nil
	default:
		return fmt.Errorf("meta: path %q: cannot set a property on %s", fullPath, rv.Kind())
	}
}

func fieldByProperty(structValue reflect.Value, name string) (reflect.Value, bool) {
	t := structValue.Type()
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return structValue.FieldByIndex(f.Index), true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return structValue.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func coerce(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(target), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot assign nil to %s", target)
		}
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, target)
}
