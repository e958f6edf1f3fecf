package chash

import (
	"errors"
	"reflect"
)

// ErrNilKey is raised when a public operation is called with a nil key
// (spec.md §6: "passing null key or null value fails with a 'null argument'
// error"). Raised before any state is mutated (§7).
var ErrNilKey = errors.New("chash: nil key")

// ErrNilValue is ErrNilKey's counterpart for values.
var ErrNilValue = errors.New("chash: nil value")

// ErrNilFunc is raised when a required callback argument (compute/merge
// function, equality predicate) is nil, the function-argument case of the
// same §6 "null argument" error.
var ErrNilFunc = errors.New("chash: nil function argument")

// isNilArg reports whether v is nil for any of the kinds that can actually
// be nil (pointer, interface, map, slice, channel, func, unsafe pointer) or
// is itself an untyped nil boxed as any. Non-nilable kinds (int, string,
// struct, ...) never qualify, so passing e.g. an int key never panics here.
func isNilArg(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// requireNonNilKey panics with ErrNilKey if key is nil. Called at the top of
// every public operation, before any state is touched.
func requireNonNilKey(key any) {
	if isNilArg(key) {
		panic(ErrNilKey)
	}
}

// requireNonNilValue panics with ErrNilValue if value is nil.
func requireNonNilValue(value any) {
	if isNilArg(value) {
		panic(ErrNilValue)
	}
}

// requireNonNilFunc panics with ErrNilFunc if fn is nil.
func requireNonNilFunc(fn any) {
	if isNilArg(fn) {
		panic(ErrNilFunc)
	}
}

// ErrReentrant is raised when a compute/merge callback calls back into the
// map for the same key on the same goroutine. Spec §4.3 leaves behavior on
// reentrancy unspecified beyond "implementations should detect obvious
// self-recursion and fail loudly"; this is that best-effort net, not a
// general deadlock detector.
var ErrReentrant = errors.New("chash: reentrant callback on same key")

// ErrPoisoned is reported when an internal invariant is found broken. The
// only check that raises it is a forwarding marker with no target table;
// tree-bin balance is not checked. A poisoned Map must not be used
// further; there is no recovery path.
var ErrPoisoned = errors.New("chash: internal invariant violated, map is poisoned")
