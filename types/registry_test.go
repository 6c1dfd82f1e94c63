package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()

	for _, v := range []any{int64(1), "s", 1.5, true, []byte("b"), time.Now(), uuid.New(), decimal.New(1, 0)} {
		if !r.Has(v) {
			t.Errorf("Has(%T) = false, want true", v)
		}
	}
	for _, v := range []any{nil, map[string]any{}, struct{ X int }{}} {
		if r.Has(v) {
			t.Errorf("Has(%T) = true, want false", v)
		}
	}

	// Pointers to registered types are bindable too.
	n := int64(5)
	if !r.Has(&n) {
		t.Error("Has(*int64) = false, want true")
	}
}

func TestRegistry_ToDriver(t *testing.T) {
	r := NewRegistry()

	t.Run("passthrough scalars", func(t *testing.T) {
		for _, v := range []any{int64(42), "text", 2.5, true} {
			got, err := r.ToDriver(v)
			if err != nil || got != v {
				t.Errorf("ToDriver(%v) = (%v, %v), want identity", v, got, err)
			}
		}
	})

	t.Run("nil binds as NULL", func(t *testing.T) {
		got, err := r.ToDriver(nil)
		if err != nil || got != nil {
			t.Errorf("ToDriver(nil) = (%v, %v), want (nil, nil)", got, err)
		}
	})

	t.Run("nil typed pointer binds as NULL", func(t *testing.T) {
		var p *int64
		got, err := r.ToDriver(p)
		if err != nil || got != nil {
			t.Errorf("ToDriver(nil *int64) = (%v, %v), want (nil, nil)", got, err)
		}
	})

	t.Run("pointer dereferences", func(t *testing.T) {
		n := int64(7)
		got, err := r.ToDriver(&n)
		if err != nil || got != int64(7) {
			t.Errorf("ToDriver(*int64) = (%v, %v), want 7", got, err)
		}
	})

	t.Run("uuid binds as canonical string", func(t *testing.T) {
		id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		got, err := r.ToDriver(id)
		if err != nil || got != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
			t.Errorf("ToDriver(uuid) = (%v, %v), want canonical string", got, err)
		}
	})

	t.Run("decimal binds as exact string", func(t *testing.T) {
		got, err := r.ToDriver(decimal.RequireFromString("19.99"))
		if err != nil || got != "19.99" {
			t.Errorf("ToDriver(decimal) = (%v, %v), want 19.99", got, err)
		}
	})

	t.Run("unregistered type errors", func(t *testing.T) {
		if _, err := r.ToDriver(struct{ X int }{}); err == nil {
			t.Error("ToDriver on an unregistered struct succeeded, want error")
		}
	})
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry()
	r.Register(time.Time{}, HandlerFunc(func(v any) (any, error) {
		return v.(time.Time).UTC().Format(time.RFC3339), nil
	}))

	at := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	got, err := r.ToDriver(at)
	if err != nil || got != "2025-11-03T12:00:00Z" {
		t.Errorf("ToDriver(time) = (%v, %v), want RFC3339 string after override", got, err)
	}
}

func TestRegistry_NormalizeCopiesBytes(t *testing.T) {
	r := NewRegistry()
	src := []byte("driver-owned")

	got := r.Normalize(src).([]byte)
	src[0] = 'X'

	if string(got) != "driver-owned" {
		t.Errorf("Normalize shared the driver buffer: %q", got)
	}
	if r.Normalize(int64(3)) != int64(3) {
		t.Error("Normalize changed a scalar")
	}
}
