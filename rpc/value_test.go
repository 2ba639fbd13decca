package rpc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Int(42),
		Float(3.5),
		String("hello"),
		Array(Int(1), Int(2), Int(3)),
		Object(map[string]Value{"a": Int(1), "b": String("x")}),
	}

	for _, v := range cases {
		data, err := v.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", v, err)
		}
		got, err := ParseValue(data)
		if err != nil {
			t.Fatalf("ParseValue(%s): %v", data, err)
		}
		if diff := cmp.Diff(v, got); diff != "" {
			t.Errorf("round trip mismatch (json=%s):\n%s", data, diff)
		}
	}
}

func TestValueObjectMarshalIsSorted(t *testing.T) {
	v := Object(map[string]Value{"z": Int(1), "a": Int(2), "m": Int(3)})
	data, err := v.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":2,"m":3,"z":1}` {
		t.Errorf("expected sorted keys, got %s", data)
	}
}

func TestValueOfConvertsNativeTypes(t *testing.T) {
	got := ValueOf(map[string]interface{}{"name": "", "year": 2012})
	want := Object(map[string]Value{"name": String(""), "year": Int(2012)})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValueOf mismatch:\n%s", diff)
	}
}

func TestAsArraySingleValue(t *testing.T) {
	v := Int(7)
	arr := v.AsArray()
	if len(arr) != 1 || !arr[0].Equal(Int(7)) {
		t.Errorf("AsArray on a scalar should wrap it, got %v", arr)
	}
}

func TestAsArrayNull(t *testing.T) {
	if got := Null().AsArray(); len(got) != 0 {
		t.Errorf("AsArray on null should be empty, got %v", got)
	}
}
