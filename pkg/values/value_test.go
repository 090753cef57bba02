package values

import "testing"

func TestStrictEqualsStructural(t *testing.T) {
	a := NewArray([]Value{Number(1), String("x")})
	b := NewArray([]Value{Number(1), String("x")})
	if !StrictEquals(a, b) {
		t.Fatalf("expected structurally identical arrays to be ===, got not equal")
	}

	c := NewArray([]Value{Number(1), String("y")})
	if StrictEquals(a, c) {
		t.Fatalf("expected arrays differing by element to not be ===")
	}
}

func TestArrayCopyOnWrite(t *testing.T) {
	orig := NewArray([]Value{Number(1), Number(2)})
	body := AsArray(orig)

	if !body.IsUnique() {
		t.Fatalf("freshly constructed array should be unique")
	}

	alias := Retain(orig)
	if body.IsUnique() {
		t.Fatalf("array retained a second time should no longer report unique")
	}

	owned := body.Own()
	if owned == body {
		t.Fatalf("Own() on a shared body should have cloned")
	}
	owned.Elements[0] = Number(99)

	if AsArray(alias).Elements[0].String() != "1" {
		t.Fatalf("mutating the owned clone must not affect the original alias")
	}
}

func TestObjectPropertyOrderPreserved(t *testing.T) {
	obj := AsObject(NewObject())
	obj.Set("b", Number(2))
	obj.Set("a", Number(1))
	obj.Set("b", Number(20))

	if len(obj.Keys) != 2 || obj.Keys[0] != "b" || obj.Keys[1] != "a" {
		t.Fatalf("expected insertion order [b a], got %v", obj.Keys)
	}
	v, ok := obj.Get("b")
	if !ok || AsNumber(v) != 20 {
		t.Fatalf("expected updated value for key b, got %v ok=%v", v, ok)
	}
}

func TestObjectCopyOnWrite(t *testing.T) {
	objVal := NewObject()
	body := AsObject(objVal)
	body.Set("x", Number(1))

	alias := Retain(objVal)
	owned := body.Own()
	if owned == body {
		t.Fatalf("Own() on a shared object body should have cloned")
	}
	owned.Set("x", Number(2))

	origVal, _ := AsObject(alias).Get("x")
	if AsNumber(origVal) != 1 {
		t.Fatalf("mutating the cloned object must not affect the original alias")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Undefined(), false},
		{Null(), false},
		{Number(0), false},
		{Number(1), true},
		{String(""), false},
		{String("0"), true},
		{NewArray(nil), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}
