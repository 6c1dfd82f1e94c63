package expr

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func mapBinder(m map[string]any) Binder {
	return func(path string) (any, bool) {
		v, ok := m[path]
		return v, ok
	}
}

func TestProgram_EvalBool(t *testing.T) {
	bindings := map[string]any{
		"name":   "Bob",
		"empty":  "",
		"age":    int64(30),
		"zero":   0,
		"active": false,
		"price":  decimal.RequireFromString("19.90"),
		"id":     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		"tags":   []string{"a"},
		"none":   []string(nil),
	}

	tests := []struct {
		src  string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"nil", false},
		{"1", true},
		{"0", false},
		{"'x'", true},
		{"''", false},

		{"name", true},
		{"empty", false},
		{"missing", false},
		{"zero", false},
		{"tags", true},
		{"none", false},

		{"age == 30", true},
		{"age != 30", false},
		{"age >= 30", true},
		{"age > 30", false},
		{"age < 31", true},
		{"age <= 29", false},
		{"name == 'Bob'", true},
		{"name == \"Bob\"", true},
		{"name != 'Alice'", true},
		{"missing == nil", true},
		{"missing != null", false},
		{"name != nil", true},
		{"price > 9.99", true},
		{"price == 19.90", true},
		{"id == '6ba7b810-9dad-11d1-80b4-00c04fd430c8'", true},

		{"!active", true},
		{"!name", false},
		{"age > 18 and name != nil", true},
		{"age > 18 && active", false},
		{"age < 18 or name == 'Bob'", true},
		{"age < 18 || active", false},
		{"true or false and false", true},
		{"(true or false) and false", false},
		{"!(age < 18)", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile(%q) = %v, want nil", tt.src, err)
			}
			got, err := p.EvalBool(mapBinder(bindings))
			if err != nil {
				t.Fatalf("EvalBool(%q) = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("EvalBool(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestProgram_EvalValue(t *testing.T) {
	p := MustCompile("age")
	v, err := p.Eval(mapBinder(map[string]any{"age": int64(7)}))
	if err != nil {
		t.Fatalf("Eval = %v, want nil", err)
	}
	if v != int64(7) {
		t.Errorf("Eval(age) = %v (%T), want int64 7", v, v)
	}

	v, err = MustCompile("nil").Eval(mapBinder(nil))
	if err != nil {
		t.Fatalf("Eval(nil) = %v, want nil error", err)
	}
	if v != nil {
		t.Errorf("Eval(nil) = %v, want nil", v)
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, src := range []string{"", "age >", "and true", "(true", "== 1"} {
		t.Run(src, func(t *testing.T) {
			if _, err := Compile(src); err == nil {
				t.Errorf("Compile(%q) = nil error, want parse failure", src)
			}
		})
	}
}

func TestCompare_OrderMismatch(t *testing.T) {
	p := MustCompile("name > 5")
	_, err := p.EvalBool(mapBinder(map[string]any{"name": "Bob"}))
	if err == nil {
		t.Fatal("EvalBool(name > 5) = nil error, want ordering error")
	}
	if !strings.Contains(err.Error(), "cannot order") {
		t.Errorf("error = %q, want it to mention cannot order", err)
	}
}

func TestProgram_ShortCircuit(t *testing.T) {
	var asked []string
	binder := func(path string) (any, bool) {
		asked = append(asked, path)
		return nil, false
	}

	if got, err := MustCompile("true or expensive").EvalBool(binder); err != nil || !got {
		t.Fatalf("EvalBool = (%v, %v), want (true, nil)", got, err)
	}
	if got, err := MustCompile("false and expensive").EvalBool(binder); err != nil || got {
		t.Fatalf("EvalBool = (%v, %v), want (false, nil)", got, err)
	}
	for _, path := range asked {
		if path == "expensive" {
			t.Error("short-circuit still resolved the right-hand operand")
		}
	}
}

func TestProgram_Source(t *testing.T) {
	p := MustCompile("a == 1")
	if p.Source() != "a == 1" {
		t.Errorf("Source() = %q, want %q", p.Source(), "a == 1")
	}
	if p.String() != p.Source() {
		t.Errorf("String() = %q, want Source()", p.String())
	}
}
