package meta

import "testing"

type author struct {
	ID   int64
	Name string
	home *address
	Home *address
}

type address struct {
	City string
}

func TestGet(t *testing.T) {
	t.Run("map value", func(t *testing.T) {
		obj := map[string]any{"id": int64(7)}
		v, ok := Get(obj, "id")
		if !ok || v != int64(7) {
			t.Errorf("Get(id) = (%v, %v), want (7, true)", v, ok)
		}
	})

	t.Run("missing map key", func(t *testing.T) {
		if _, ok := Get(map[string]any{}, "id"); ok {
			t.Error("Get on missing key = true, want false")
		}
	})

	t.Run("struct field case-insensitive", func(t *testing.T) {
		a := author{ID: 3, Name: "ada"}
		if v, ok := Get(a, "name"); !ok || v != "ada" {
			t.Errorf("Get(name) = (%v, %v), want (ada, true)", v, ok)
		}
		if v, ok := Get(&a, "id"); !ok || v != int64(3) {
			t.Errorf("Get(id) through pointer = (%v, %v), want (3, true)", v, ok)
		}
	})

	t.Run("nested path", func(t *testing.T) {
		a := author{Home: &address{City: "paris"}}
		if v, ok := Get(a, "home.city"); !ok || v != "paris" {
			t.Errorf("Get(home.city) = (%v, %v), want (paris, true)", v, ok)
		}
	})

	t.Run("nil along the path", func(t *testing.T) {
		if _, ok := Get(author{}, "home.city"); ok {
			t.Error("Get through nil pointer = true, want false")
		}
		if _, ok := Get(nil, "x"); ok {
			t.Error("Get on nil object = true, want false")
		}
	})

	t.Run("nested maps", func(t *testing.T) {
		obj := map[string]any{"user": map[string]any{"id": 5}}
		if v, ok := Get(obj, "user.id"); !ok || v != 5 {
			t.Errorf("Get(user.id) = (%v, %v), want (5, true)", v, ok)
		}
	})

	t.Run("unexported fields stay hidden", func(t *testing.T) {
		a := author{home: &address{City: "x"}}
		_ = a.home
		if _, ok := Get(a, "home.city"); ok {
			// "home" matches the exported Home field (nil here), never the
			// unexported one.
			t.Error("Get resolved through an unexported field")
		}
	})
}

func TestSet(t *testing.T) {
	t.Run("map entry", func(t *testing.T) {
		obj := map[string]any{}
		if err := Set(obj, "name", "ada"); err != nil {
			t.Fatalf("Set = %v, want nil", err)
		}
		if obj["name"] != "ada" {
			t.Errorf("map after Set = %v, want name=ada", obj)
		}
	})

	t.Run("struct field through pointer", func(t *testing.T) {
		a := &author{}
		if err := Set(a, "name", "grace"); err != nil {
			t.Fatalf("Set = %v, want nil", err)
		}
		if a.Name != "grace" {
			t.Errorf("Name = %q, want grace", a.Name)
		}
	})

	t.Run("nested struct field", func(t *testing.T) {
		a := &author{Home: &address{}}
		if err := Set(a, "home.city", "oslo"); err != nil {
			t.Fatalf("Set = %v, want nil", err)
		}
		if a.Home.City != "oslo" {
			t.Errorf("Home.City = %q, want oslo", a.Home.City)
		}
	})

	t.Run("numeric conversion", func(t *testing.T) {
		a := &author{}
		if err := Set(a, "id", 42); err != nil {
			t.Fatalf("Set int into int64 field = %v, want conversion", err)
		}
		if a.ID != 42 {
			t.Errorf("ID = %d, want 42", a.ID)
		}
	})

	t.Run("nil into pointer field", func(t *testing.T) {
		a := &author{Home: &address{}}
		if err := Set(a, "home", nil); err != nil {
			t.Fatalf("Set nil = %v, want nil error", err)
		}
		if a.Home != nil {
			t.Error("Home != nil after Set(nil)")
		}
	})

	t.Run("unsettable value errors", func(t *testing.T) {
		if err := Set(author{}, "name", "x"); err == nil {
			t.Error("Set on a struct value succeeded, want addressability error")
		}
	})

	t.Run("missing segment errors", func(t *testing.T) {
		if err := Set(&author{}, "office.city", "x"); err == nil {
			t.Error("Set through a missing segment succeeded, want error")
		}
	})
}

func TestTypeOf(t *testing.T) {
	type order struct {
		Lines []any
		Total int64
	}
	obj := &order{}

	t.Run("slice field", func(t *testing.T) {
		typ, ok := TypeOf(obj, "lines")
		if !ok || typ.Kind().String() != "slice" {
			t.Errorf("TypeOf(lines) = (%v, %v), want slice type", typ, ok)
		}
	})

	t.Run("scalar field", func(t *testing.T) {
		typ, ok := TypeOf(obj, "total")
		if !ok || typ.Kind().String() != "int64" {
			t.Errorf("TypeOf(total) = (%v, %v), want int64 type", typ, ok)
		}
	})

	t.Run("map declares its value type", func(t *testing.T) {
		typ, ok := TypeOf(map[string]int{"n": 1}, "anything")
		if !ok || typ.Kind().String() != "int" {
			t.Errorf("TypeOf(map) = (%v, %v), want int type", typ, ok)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if _, ok := TypeOf(obj, "nope.deeper"); ok {
			t.Error("TypeOf on missing path = true, want false")
		}
	})
}
