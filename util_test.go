package vdf

import (
	"reflect"
	"testing"

	"github.com/andreyvit/vdf/internal/vdftest"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func testOptions(t testing.TB) Options {
	return Options{
		Logger:  vdftest.Logger(t),
		Verbose: true,
	}
}

func objEq(t testing.TB, a, e *Object) {
	if !a.Equal(e) {
		t.Helper()
		t.Errorf("** got:\n%s\nwanted:\n%s", Dump(a), Dump(e))
	}
}

// obj builds an Object from alternating keys and values.
func obj(kv ...any) *Object {
	o := NewObject()
	for i := 0; i < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1].(Value))
	}
	return o
}
